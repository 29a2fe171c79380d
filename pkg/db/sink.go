package db

import (
	"log/slog"

	"github.com/dtnitsch/distributed-wordcount/pkg/events"
)

// AttemptSink stores connect events for one run. Write failures are logged,
// never returned, so history problems cannot fail a dispatch.
type AttemptSink struct {
	DB     *DB
	RunID  int64
	Logger *slog.Logger
}

func (s AttemptSink) Emit(e events.Event) {
	var a ConnectAttempt
	switch e.Kind {
	case events.Connected:
		a = ConnectAttempt{Endpoint: e.Endpoint, Attempt: e.Attempt, Remaining: e.Remaining, Success: true}
	case events.ConnectFailed:
		a = ConnectAttempt{Endpoint: e.Endpoint, Attempt: e.Attempt, Remaining: e.Remaining}
		if e.Err != nil {
			a.ErrorMessage = e.Err.Error()
		}
	default:
		return
	}

	if err := s.DB.RecordConnectAttempt(s.RunID, a); err != nil {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Failed to record connect attempt", "endpoint", e.Endpoint, "error", err)
	}
}
