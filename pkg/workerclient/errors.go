package workerclient

import (
	"errors"
	"fmt"
)

// Kind classifies a failed worker call.
type Kind string

const (
	// KindConnection: the worker could not be reached, or the connection
	// dropped before a reply arrived.
	KindConnection Kind = "connection"
	// KindProtocol: the worker answered with an error or a malformed reply.
	KindProtocol Kind = "protocol"
	// KindTimeout: no reply within the response timeout or the caller's deadline.
	KindTimeout Kind = "timeout"
)

var (
	// ErrConnection matches any CallError of KindConnection.
	ErrConnection = errors.New("worker connection failed")
	// ErrProtocol matches any CallError of KindProtocol.
	ErrProtocol = errors.New("worker protocol violation")
	// ErrCallTimeout matches any CallError of KindTimeout.
	ErrCallTimeout = errors.New("worker call timed out")
)

// CallError is the failure of one call to one endpoint. It never aborts a
// dispatch on its own; the coordinator records it and moves on.
type CallError struct {
	Kind      Kind
	Endpoint  string
	Retryable bool
	Attempts  int
	Err       error
}

// Error reports the kind, the endpoint and the underlying cause.
func (e *CallError) Error() string {
	return fmt.Sprintf("%s error calling %s: %v", e.Kind, e.Endpoint, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind, so callers can write
// errors.Is(err, workerclient.ErrProtocol).
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrConnection:
		return e.Kind == KindConnection
	case ErrProtocol:
		return e.Kind == KindProtocol
	case ErrCallTimeout:
		return e.Kind == KindTimeout
	}
	return false
}

// KindOf returns the kind of a call error, or "" if err is not one.
func KindOf(err error) Kind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return ""
}
