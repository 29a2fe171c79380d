package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
)

// Run is a stored dispatch.
type Run struct {
	RunID        int64
	CreatedAt    time.Time
	FinishedAt   sql.NullTime
	TextHash     string
	EndpointsKey string
	Source       string
	Normalized   bool
	Requested    int
	Chunks       int
	Succeeded    int
	Failed       int
	TotalWords   int
	UniqueWords  int
	DurationMS   int64
	Status       string
}

const runColumns = `run_id, created_at, finished_at, text_hash, endpoints_key, source, normalized,
	requested, chunks, succeeded, failed, total_words, unique_words, duration_ms, status`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var source sql.NullString
	err := row.Scan(&r.RunID, &r.CreatedAt, &r.FinishedAt, &r.TextHash, &r.EndpointsKey, &source,
		&r.Normalized, &r.Requested, &r.Chunks, &r.Succeeded, &r.Failed, &r.TotalWords,
		&r.UniqueWords, &r.DurationMS, &r.Status)
	if err != nil {
		return nil, err
	}
	r.Source = source.String
	return &r, nil
}

// GetRunByID retrieves a run by its ID
func (db *DB) GetRunByID(runID int64) (*Run, error) {
	run, err := scanRun(db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs ordered by most recent first
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, run_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// LatestRunID returns the most recent run_id.
func (db *DB) LatestRunID() (int64, error) {
	var runID int64
	err := db.QueryRow("SELECT run_id FROM runs ORDER BY created_at DESC, run_id DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("no runs recorded")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	return runID, nil
}

// FindRecentRun returns the newest fully successful run over the same text and
// endpoint list. Partial runs are never returned. A maxAge of zero means any age is fresh.
func (db *DB) FindRecentRun(textHash, endpointsKey string, maxAge time.Duration) (*Run, bool, error) {
	run, err := scanRun(db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE text_hash = ? AND endpoints_key = ? AND status = ?
		ORDER BY created_at DESC, run_id DESC
		LIMIT 1
	`, textHash, endpointsKey, StatusOK))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find recent run: %w", err)
	}

	if maxAge > 0 && time.Since(run.CreatedAt) > maxAge {
		return nil, false, nil
	}
	return run, true, nil
}

// GetRunCalls retrieves the per-chunk outcomes of a run in chunk order
func (db *DB) GetRunCalls(runID int64) ([]RunCall, error) {
	rows, err := db.Query(`
		SELECT chunk_index, endpoint, chunk_words, status, error_kind, error_message, latency_ms
		FROM run_calls
		WHERE run_id = ?
		ORDER BY chunk_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run calls: %w", err)
	}
	defer rows.Close()

	var calls []RunCall
	for rows.Next() {
		var c RunCall
		var errorKind, errorMessage sql.NullString
		if err := rows.Scan(&c.ChunkIndex, &c.Endpoint, &c.ChunkWords, &c.Status,
			&errorKind, &errorMessage, &c.LatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan run call: %w", err)
		}
		c.ErrorKind = errorKind.String
		c.ErrorMessage = errorMessage.String
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// GetRunWords returns the merged counts of a run.
func (db *DB) GetRunWords(runID int64) (map[string]int, error) {
	rows, err := db.Query("SELECT word, count FROM run_words WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run words: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var word string
		var count int
		if err := rows.Scan(&word, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run word: %w", err)
		}
		counts[word] = count
	}
	return counts, rows.Err()
}

// TopRunWords returns the n most frequent words of a run, ties broken
// alphabetically. n <= 0 returns every word.
func (db *DB) TopRunWords(runID int64, n int) ([]mapreduce.WordCount, error) {
	query := "SELECT word, count FROM run_words WHERE run_id = ? ORDER BY count DESC, word ASC"
	if n > 0 {
		query += fmt.Sprintf(" LIMIT %d", n)
	}

	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get top run words: %w", err)
	}
	defer rows.Close()

	var words []mapreduce.WordCount
	for rows.Next() {
		var wc mapreduce.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan run word: %w", err)
		}
		words = append(words, wc)
	}
	return words, rows.Err()
}

// GetConnectAttempts returns the dials recorded for a run in the order they happened.
func (db *DB) GetConnectAttempts(runID int64) ([]ConnectAttempt, error) {
	rows, err := db.Query(`
		SELECT endpoint, attempt, remaining, success, error_message
		FROM connect_attempts
		WHERE run_id = ?
		ORDER BY attempt_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get connect attempts: %w", err)
	}
	defer rows.Close()

	var attempts []ConnectAttempt
	for rows.Next() {
		var a ConnectAttempt
		var msg sql.NullString
		if err := rows.Scan(&a.Endpoint, &a.Attempt, &a.Remaining, &a.Success, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan connect attempt: %w", err)
		}
		a.ErrorMessage = msg.String
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
