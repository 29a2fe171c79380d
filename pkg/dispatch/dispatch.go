// Package dispatch splits text across a static set of workers, calls them
// concurrently, and merges whatever partial counts come back.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/dtnitsch/distributed-wordcount/pkg/chunker"
	"github.com/dtnitsch/distributed-wordcount/pkg/events"
	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
	"github.com/dtnitsch/distributed-wordcount/pkg/workerclient"
)

var (
	// ErrNoWorkersAvailable means every worker call failed, so there is nothing to merge.
	ErrNoWorkersAvailable = errors.New("no workers available")
	// ErrNoEndpoints means the dispatch was given an empty endpoint list.
	ErrNoEndpoints = errors.New("at least one worker endpoint is required")
)

// Caller performs one worker call. *workerclient.Client implements it.
type Caller interface {
	Call(ctx context.Context, endpoint models.Endpoint, chunk string) (map[string]int, error)
}

// Outcome is the tagged result of one chunk/endpoint pairing: either Counts or Err is set.
type Outcome struct {
	ChunkIndex int
	Endpoint   models.Endpoint
	Words      int
	Counts     map[string]int
	Err        error
	Latency    time.Duration
}

// Succeeded reports whether the worker returned counts.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// ErrorKind returns the workerclient kind of a failure, or "" on success.
func (o Outcome) ErrorKind() string {
	if o.Err == nil {
		return ""
	}
	if kind := workerclient.KindOf(o.Err); kind != "" {
		return string(kind)
	}
	return "unknown"
}

// Result is the merged output of one dispatch plus what happened on every call.
type Result struct {
	Counts    map[string]int
	Outcomes  []Outcome
	Words     int
	Requested int
	Duration  time.Duration
}

// Succeeded returns how many calls produced counts.
func (r *Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns how many calls produced no counts.
func (r *Result) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Coordinator owns no endpoint state; endpoints are passed to every Dispatch.
type Coordinator struct {
	caller Caller
	sink   events.Sink
	logger *slog.Logger
}

// NewCoordinator creates a coordinator around caller. sink and logger may be nil.
func NewCoordinator(caller Caller, sink events.Sink, logger *slog.Logger) *Coordinator {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{caller: caller, sink: sink, logger: logger}
}

// Dispatch splits text into len(endpoints) chunks, sends chunk i to endpoint i,
// waits for every call to finish, and merges the successful partial maps.
//
// Failing calls are recorded in the Result and never abort the others. The
// returned error is nil, chunker.ErrEmptyInput (nothing was dispatched), or
// ErrNoWorkersAvailable (every call failed; the Result is still returned).
func (c *Coordinator) Dispatch(ctx context.Context, text string, endpoints []models.Endpoint) (*Result, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	start := time.Now()

	chunks, err := chunker.Split(c.logger, text, len(endpoints))
	if err != nil {
		return nil, err
	}
	if len(chunks) < len(endpoints) {
		c.sink.Emit(events.Event{Kind: events.ChunksClamped, Remaining: len(endpoints) - len(chunks)})
	}

	c.logger.Info("Starting dispatch", "chunks", len(chunks), "endpoints", len(endpoints))

	// Each goroutine writes only its own slot; nothing is shared until wg.Wait returns.
	outcomes := make([]Outcome, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk chunker.Chunk, endpoint models.Endpoint) {
			defer wg.Done()
			outcomes[i] = c.call(ctx, chunk, endpoint)
		}(i, chunk, endpoints[i])
	}
	wg.Wait()

	result := &Result{
		Outcomes:  outcomes,
		Requested: len(endpoints),
		Duration:  time.Since(start),
	}
	partials := make([]map[string]int, 0, len(outcomes))
	for _, o := range outcomes {
		result.Words += o.Words
		if o.Succeeded() {
			partials = append(partials, o.Counts)
		}
	}
	result.Counts = mapreduce.Reduce(partials)

	c.sink.Emit(events.Event{
		Kind:      events.DispatchDone,
		Succeeded: result.Succeeded(),
		Failed:    result.Failed(),
		Latency:   result.Duration,
	})

	if len(partials) == 0 {
		return result, fmt.Errorf("%w: all %d worker calls failed", ErrNoWorkersAvailable, len(outcomes))
	}
	return result, nil
}

func (c *Coordinator) call(ctx context.Context, chunk chunker.Chunk, endpoint models.Endpoint) Outcome {
	start := time.Now()
	counts, err := c.caller.Call(ctx, endpoint, chunk.Text)
	outcome := Outcome{
		ChunkIndex: chunk.Index,
		Endpoint:   endpoint,
		Words:      chunk.Words,
		Latency:    time.Since(start),
	}

	if err != nil {
		outcome.Err = err
		c.sink.Emit(events.Event{
			Kind:       events.CallFailed,
			Endpoint:   endpoint.Addr(),
			ChunkIndex: chunk.Index,
			Latency:    outcome.Latency,
			ErrorKind:  outcome.ErrorKind(),
			Err:        err,
		})
		return outcome
	}

	outcome.Counts = counts
	c.sink.Emit(events.Event{
		Kind:       events.CallSucceeded,
		Endpoint:   endpoint.Addr(),
		ChunkIndex: chunk.Index,
		Latency:    outcome.Latency,
	})
	return outcome
}
