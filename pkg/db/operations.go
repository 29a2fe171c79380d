package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// NewRun describes a run about to be dispatched.
type NewRun struct {
	TextHash     string
	EndpointsKey string
	Source       string
	Normalized   bool
	Requested    int
}

// RunStats are written once the dispatch has finished.
type RunStats struct {
	Chunks      int
	Succeeded   int
	Failed      int
	TotalWords  int
	UniqueWords int
	Duration    time.Duration
}

// RunCall is the stored outcome of one chunk/endpoint pair.
type RunCall struct {
	ChunkIndex   int
	Endpoint     string
	ChunkWords   int
	Status       string
	ErrorKind    string
	ErrorMessage string
	LatencyMS    int64
}

// ConnectAttempt is one dial made against a worker endpoint.
type ConnectAttempt struct {
	Endpoint     string
	Attempt      int
	Remaining    int
	Success      bool
	ErrorMessage string
}

// InsertRun creates a run in the running state and returns its run_id.
func (db *DB) InsertRun(r NewRun) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (text_hash, endpoints_key, source, normalized, requested, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.TextHash, r.EndpointsKey, r.Source, r.Normalized, r.Requested, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun stores the run's totals. A run with no successful call is failed;
// one with some failed calls is partial.
func (db *DB) FinishRun(runID int64, stats RunStats) error {
	status := StatusOK
	switch {
	case stats.Succeeded == 0:
		status = StatusFailed
	case stats.Failed > 0:
		status = StatusPartial
	}

	result, err := db.Exec(`
		UPDATE runs
		SET finished_at = CURRENT_TIMESTAMP, chunks = ?, succeeded = ?, failed = ?,
		    total_words = ?, unique_words = ?, duration_ms = ?, status = ?
		WHERE run_id = ?
	`, stats.Chunks, stats.Succeeded, stats.Failed, stats.TotalWords, stats.UniqueWords,
		stats.Duration.Milliseconds(), status, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// InsertRunCall records the outcome of one worker call.
func (db *DB) InsertRunCall(runID int64, c RunCall) error {
	_, err := db.Exec(`
		INSERT INTO run_calls (run_id, chunk_index, endpoint, chunk_words, status, error_kind, error_message, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, c.ChunkIndex, c.Endpoint, c.ChunkWords, c.Status,
		nullString(c.ErrorKind), nullString(c.ErrorMessage), c.LatencyMS)
	if err != nil {
		return fmt.Errorf("failed to insert run call: %w", err)
	}
	return nil
}

// InsertRunWords stores the merged counts of a run in a single transaction.
func (db *DB) InsertRunWords(runID int64, counts map[string]int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after Commit

	stmt, err := tx.Prepare("INSERT INTO run_words (run_id, word, count) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare run word insert: %w", err)
	}
	defer stmt.Close()

	for word, count := range counts {
		if _, err := stmt.Exec(runID, word, count); err != nil {
			return fmt.Errorf("failed to insert run word %q: %w", word, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run words: %w", err)
	}
	return nil
}

// RecordConnectAttempt logs a dial. runID 0 records an attempt outside any run.
func (db *DB) RecordConnectAttempt(runID int64, a ConnectAttempt) error {
	var run sql.NullInt64
	if runID > 0 {
		run = sql.NullInt64{Int64: runID, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO connect_attempts (run_id, endpoint, attempt, remaining, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run, a.Endpoint, a.Attempt, a.Remaining, a.Success, nullString(a.ErrorMessage))
	if err != nil {
		return fmt.Errorf("failed to record connect attempt: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
