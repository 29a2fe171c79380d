// Package events carries structured observations emitted by the worker client
// and the dispatch coordinator. Sinks decide what to do with them.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	ConnectFailed Kind = "connect_failed"
	Connected     Kind = "connected"
	CallSucceeded Kind = "call_succeeded"
	CallFailed    Kind = "call_failed"
	ChunksClamped Kind = "chunks_clamped"
	DispatchDone  Kind = "dispatch_done"
)

// Event is one observation. Fields that do not apply to a Kind stay zero.
type Event struct {
	Kind       Kind
	Endpoint   string
	ChunkIndex int
	Attempt    int
	Remaining  int
	Latency    time.Duration
	ErrorKind  string
	Err        error
	Succeeded  int
	Failed     int
}

// Sink consumes events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Multi fans an event out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	var active []Sink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range active {
			s.Emit(e)
		}
	})
}

// LogSink writes events through a slog.Logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{"event", string(e.Kind)}
	if e.Endpoint != "" {
		attrs = append(attrs, "endpoint", e.Endpoint)
	}

	switch e.Kind {
	case ConnectFailed:
		attrs = append(attrs, "attempt", e.Attempt, "remaining", e.Remaining, "error", e.Err)
		logger.Warn("Worker connection attempt failed", attrs...)
	case Connected:
		attrs = append(attrs, "attempt", e.Attempt)
		logger.Debug("Connected to worker", attrs...)
	case CallSucceeded:
		attrs = append(attrs, "chunk_index", e.ChunkIndex, "latency_ms", e.Latency.Milliseconds())
		logger.Info("Worker call succeeded", attrs...)
	case CallFailed:
		attrs = append(attrs, "chunk_index", e.ChunkIndex, "latency_ms", e.Latency.Milliseconds(),
			"error_kind", e.ErrorKind, "error", e.Err)
		logger.Error("Worker call failed", attrs...)
	case DispatchDone:
		attrs = append(attrs, "succeeded", e.Succeeded, "failed", e.Failed, "latency_ms", e.Latency.Milliseconds())
		logger.Info("Dispatch finished", attrs...)
	default:
		logger.Info("Dispatch event", attrs...)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
