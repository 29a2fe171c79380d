// Package workerclient calls one counting worker: connect with retry, send one
// chunk, validate one reply, and always close the connection.
package workerclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/rpc"
	"strings"
	"syscall"
	"time"

	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/dtnitsch/distributed-wordcount/pkg/events"
)

// DialFunc opens a raw connection. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client holds the retry policy and transport used for every call.
// A Client is safe for concurrent use; every call owns its own connection.
type Client struct {
	policy models.RetryPolicy
	dial   DialFunc
	sink   events.Sink
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the network dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithSink sets where connection and call events go.
func WithSink(sink events.Sink) Option {
	return func(c *Client) { c.sink = sink }
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a Client. Zero policy fields take the package defaults.
func New(policy models.RetryPolicy, opts ...Option) *Client {
	c := &Client{
		policy: policy.WithDefaults(),
		sink:   events.Discard,
		logger: slog.Default(),
	}
	dialer := &net.Dialer{Timeout: c.policy.ResponseTimeout}
	c.dial = dialer.DialContext

	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = events.Discard
	}
	return c
}

// Policy returns the effective retry policy.
func (c *Client) Policy() models.RetryPolicy {
	return c.policy
}

// Call sends chunk to endpoint and returns the worker's counts for it.
// Only the connect phase is retried; a failure after connecting is returned as is.
func (c *Client) Call(ctx context.Context, endpoint models.Endpoint, chunk string) (map[string]int, error) {
	addr := endpoint.Addr()

	client, attempts, err := c.connect(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	c.logger.Debug("Sending chunk to worker", "endpoint", addr, "bytes", len(chunk))

	args := &models.CountArgs{Chunk: chunk}
	reply := &models.CountReply{}
	call := client.Go(models.CountWordsMethod, args, reply, make(chan *rpc.Call, 1))

	timer := time.NewTimer(c.policy.ResponseTimeout)
	defer timer.Stop()

	select {
	case <-call.Done:
	case <-timer.C:
		return nil, &CallError{
			Kind:     KindTimeout,
			Endpoint: addr,
			Attempts: attempts,
			Err:      fmt.Errorf("%w: no reply within %s", ErrCallTimeout, c.policy.ResponseTimeout),
		}
	case <-ctx.Done():
		return nil, &CallError{Kind: KindTimeout, Endpoint: addr, Attempts: attempts, Err: ctx.Err()}
	}

	if call.Error != nil {
		return nil, classifyCallError(addr, attempts, call.Error)
	}

	if err := validateReply(chunk, reply); err != nil {
		return nil, &CallError{Kind: KindProtocol, Endpoint: addr, Attempts: attempts, Err: err}
	}
	if reply.Counts == nil {
		reply.Counts = map[string]int{}
	}
	return reply.Counts, nil
}

// Ping checks that endpoint accepts a connection, with a single attempt.
func (c *Client) Ping(ctx context.Context, endpoint models.Endpoint) error {
	conn, err := c.dial(ctx, "tcp", endpoint.Addr())
	if err != nil {
		return &CallError{Kind: KindConnection, Endpoint: endpoint.Addr(), Retryable: isRefused(err), Attempts: 1, Err: err}
	}
	return conn.Close()
}

func (c *Client) connect(ctx context.Context, addr string) (*rpc.Client, int, error) {
	maxAttempts := c.policy.MaxRetries

	for attempt := 1; ; attempt++ {
		conn, err := c.dial(ctx, "tcp", addr)
		if err == nil {
			c.sink.Emit(events.Event{Kind: events.Connected, Endpoint: addr, Attempt: attempt, Remaining: maxAttempts - attempt})
			return rpc.NewClient(conn), attempt, nil
		}

		remaining := maxAttempts - attempt
		if !isRefused(err) {
			c.sink.Emit(events.Event{Kind: events.ConnectFailed, Endpoint: addr, Attempt: attempt, Err: err})
			return nil, attempt, &CallError{Kind: KindConnection, Endpoint: addr, Attempts: attempt, Err: err}
		}

		c.sink.Emit(events.Event{Kind: events.ConnectFailed, Endpoint: addr, Attempt: attempt, Remaining: remaining, Err: err})
		if remaining <= 0 {
			return nil, attempt, &CallError{
				Kind:      KindConnection,
				Endpoint:  addr,
				Retryable: true,
				Attempts:  attempt,
				Err:       fmt.Errorf("giving up after %d attempts: %w", attempt, err),
			}
		}

		select {
		case <-time.After(c.policy.RetryDelay):
		case <-ctx.Done():
			return nil, attempt, &CallError{Kind: KindConnection, Endpoint: addr, Retryable: true, Attempts: attempt, Err: ctx.Err()}
		}
	}
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func classifyCallError(addr string, attempts int, err error) error {
	var serverErr rpc.ServerError
	switch {
	case errors.As(err, &serverErr):
		// The worker read the request and rejected it.
		return &CallError{Kind: KindProtocol, Endpoint: addr, Attempts: attempts, Err: fmt.Errorf("%w: %v", ErrProtocol, err)}
	case errors.Is(err, rpc.ErrShutdown), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return &CallError{Kind: KindConnection, Endpoint: addr, Attempts: attempts, Err: fmt.Errorf("connection dropped mid-call: %w", err)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &CallError{Kind: KindConnection, Endpoint: addr, Attempts: attempts, Err: err}
	}
	// Anything else failed while decoding the reply.
	return &CallError{Kind: KindProtocol, Endpoint: addr, Attempts: attempts, Err: fmt.Errorf("%w: %v", ErrProtocol, err)}
}

func validateReply(chunk string, reply *models.CountReply) error {
	// gob drops empty maps, so a nil mapping is only wrong when there were words to count.
	if reply.Counts == nil && strings.TrimSpace(chunk) != "" {
		return fmt.Errorf("%w: reply carried no word mapping", ErrProtocol)
	}
	for word, count := range reply.Counts {
		if count < 0 {
			return fmt.Errorf("%w: negative count %d for %q", ErrProtocol, count, word)
		}
	}
	return nil
}
