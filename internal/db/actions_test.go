package db

import (
	"bytes"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	dbpkg "github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/urfave/cli/v2"
)

func openTestDB(t *testing.T) *dbpkg.DB {
	t.Helper()
	database, err := dbpkg.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func seedRun(t *testing.T, database *dbpkg.DB) int64 {
	t.Helper()
	runID, err := database.InsertRun(dbpkg.NewRun{TextHash: "h", EndpointsKey: "localhost:18861,localhost:18862", Source: "story.txt", Requested: 2})
	if err != nil {
		t.Fatalf("InsertRun() error = %v", err)
	}
	calls := []dbpkg.RunCall{
		{ChunkIndex: 0, Endpoint: "localhost:18861", ChunkWords: 3, Status: dbpkg.StatusOK, LatencyMS: 3},
		{ChunkIndex: 1, Endpoint: "localhost:18862", ChunkWords: 3, Status: dbpkg.StatusFailed, ErrorKind: "connection", ErrorMessage: "giving up after 3 attempts"},
	}
	for _, c := range calls {
		if err := database.InsertRunCall(runID, c); err != nil {
			t.Fatalf("InsertRunCall() error = %v", err)
		}
	}
	if err := database.RecordConnectAttempt(runID, dbpkg.ConnectAttempt{Endpoint: "localhost:18862", Attempt: 1, Remaining: 2, ErrorMessage: "connection refused"}); err != nil {
		t.Fatalf("RecordConnectAttempt() error = %v", err)
	}
	if err := database.InsertRunWords(runID, map[string]int{"the": 1, "cat": 1, "sat": 1}); err != nil {
		t.Fatalf("InsertRunWords() error = %v", err)
	}
	if err := database.FinishRun(runID, dbpkg.RunStats{Chunks: 2, Succeeded: 1, Failed: 1, TotalWords: 6, UniqueWords: 3, Duration: 40 * time.Millisecond}); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	return runID
}

func TestPrintRuns(t *testing.T) {
	database := openTestDB(t)

	var buf bytes.Buffer
	if err := printRuns(&buf, database, 10); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No runs found") {
		t.Errorf("empty output = %q", buf.String())
	}

	seedRun(t, database)
	buf.Reset()
	if err := printRuns(&buf, database, 10); err != nil {
		t.Fatalf("printRuns() error = %v", err)
	}
	for _, want := range []string{"story.txt", "1/2", "Total: 1 runs"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("printRuns() output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPrintRun(t *testing.T) {
	database := openTestDB(t)
	runID := seedRun(t, database)

	var buf bytes.Buffer
	if err := printRun(&buf, database, runID, 2); err != nil {
		t.Fatalf("printRun() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Status:      partial", "[connection] giving up after 3 attempts", "attempt 1 (2 remaining) failed", " 1. cat: 1", " 2. sat: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("printRun() output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "the: 1") {
		t.Errorf("printRun() shows more than top 2 words:\n%s", out)
	}

	if err := printRun(&buf, database, runID+1, 0); err == nil {
		t.Error("printRun() on missing run error = nil")
	}
}

func TestRunIDOrLatest(t *testing.T) {
	database := openTestDB(t)
	newContext := func(args ...string) *cli.Context {
		set := flag.NewFlagSet("run", flag.ContinueOnError)
		_ = set.Parse(args)
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	if _, err := runIDOrLatest(newContext(), database); err == nil {
		t.Error("runIDOrLatest() on empty db error = nil")
	}

	runID := seedRun(t, database)
	got, err := runIDOrLatest(newContext(), database)
	if err != nil || got != runID {
		t.Errorf("runIDOrLatest() = %d, %v, want %d", got, err, runID)
	}

	got, err = runIDOrLatest(newContext("7"), database)
	if err != nil || got != 7 {
		t.Errorf("runIDOrLatest(7) = %d, %v", got, err)
	}
	if _, err := runIDOrLatest(newContext("abc"), database); err == nil {
		t.Error("runIDOrLatest(abc) error = nil")
	}
}
