package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/dtnitsch/distributed-wordcount/pkg/analytics"
	"github.com/dtnitsch/distributed-wordcount/pkg/chunker"
	"github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/dtnitsch/distributed-wordcount/pkg/dispatch"
	"github.com/dtnitsch/distributed-wordcount/pkg/events"
	"github.com/dtnitsch/distributed-wordcount/pkg/workerclient"
)

// ErrHistory wraps failures to read or write the run history database.
var ErrHistory = errors.New("run history failed")

// Pipeline normalizes text, dispatches it and records the run. DB and
// Normalizer are optional.
type Pipeline struct {
	Config     *models.DispatchConfig
	DB         *db.DB
	Normalizer *analytics.Normalizer
	Logger     *slog.Logger

	// MaxAge enables reuse of a stored successful run over the same text and
	// endpoints when positive.
	MaxAge time.Duration

	// Dial overrides how worker connections are made.
	Dial workerclient.DialFunc
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// NewClient builds the worker client for one run, reporting to sink.
func (p *Pipeline) NewClient(sink events.Sink) *workerclient.Client {
	opts := []workerclient.Option{workerclient.WithSink(sink), workerclient.WithLogger(p.logger())}
	if p.Dial != nil {
		opts = append(opts, workerclient.WithDialer(p.Dial))
	}
	return workerclient.New(p.Config.Retry, opts...)
}

// Run counts text across the configured workers. On ErrNoWorkersAvailable
// the report is still returned so callers can show what failed.
func (p *Pipeline) Run(ctx context.Context, text, source string) (*Report, error) {
	logger := p.logger()

	if p.Config.Normalize && p.Normalizer != nil {
		text = p.Normalizer.Normalize(text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, chunker.ErrEmptyInput
	}

	endpoints := p.Config.Endpoints
	hash := ContentHash([]byte(text))
	key := EndpointsKey(endpoints)

	if p.DB != nil && p.MaxAge > 0 {
		report, found, err := p.reuse(hash, key)
		if err != nil {
			return nil, err
		}
		if found {
			logger.Info("Reusing recent run", "run_id", report.RunID)
			return report, nil
		}
	}

	sink := events.Sink(events.LogSink{Logger: logger})
	var runID int64
	if p.DB != nil {
		var err error
		runID, err = p.DB.InsertRun(db.NewRun{
			TextHash:     hash,
			EndpointsKey: key,
			Source:       source,
			Normalized:   p.Config.Normalize,
			Requested:    len(endpoints),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrHistory, err)
		}
		sink = events.Multi(sink, db.AttemptSink{DB: p.DB, RunID: runID, Logger: logger})
	}

	if p.Config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.Deadline)
		defer cancel()
	}

	coordinator := dispatch.NewCoordinator(p.NewClient(sink), sink, logger)
	res, dispatchErr := coordinator.Dispatch(ctx, text, endpoints)
	if res == nil {
		return nil, dispatchErr
	}

	report := NewReport(source, res)
	report.RunID = runID
	if p.DB != nil {
		if err := p.record(runID, res); err != nil {
			return report, fmt.Errorf("%w: %w", ErrHistory, err)
		}
	}
	return report, dispatchErr
}

func (p *Pipeline) reuse(hash, key string) (*Report, bool, error) {
	run, found, err := p.DB.FindRecentRun(hash, key, p.MaxAge)
	if err != nil || !found {
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrHistory, err)
		}
		return nil, false, err
	}
	calls, err := p.DB.GetRunCalls(run.RunID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrHistory, err)
	}
	counts, err := p.DB.GetRunWords(run.RunID)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrHistory, err)
	}
	return reportFromRun(run, calls, counts), true, nil
}

func (p *Pipeline) record(runID int64, res *dispatch.Result) error {
	for _, o := range res.Outcomes {
		call := db.RunCall{
			ChunkIndex: o.ChunkIndex,
			Endpoint:   o.Endpoint.Addr(),
			ChunkWords: o.Words,
			Status:     db.StatusOK,
			LatencyMS:  o.Latency.Milliseconds(),
		}
		if !o.Succeeded() {
			call.Status = db.StatusFailed
			call.ErrorKind = o.ErrorKind()
			call.ErrorMessage = o.Err.Error()
		}
		if err := p.DB.InsertRunCall(runID, call); err != nil {
			return err
		}
	}
	if err := p.DB.InsertRunWords(runID, res.Counts); err != nil {
		return err
	}
	return p.DB.FinishRun(runID, db.RunStats{
		Chunks:      len(res.Outcomes),
		Succeeded:   res.Succeeded(),
		Failed:      res.Failed(),
		TotalWords:  res.Words,
		UniqueWords: len(res.Counts),
		Duration:    res.Duration,
	})
}
