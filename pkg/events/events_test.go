package events

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestMulti(t *testing.T) {
	var a, b Recorder
	sink := Multi(&a, nil, &b)

	sink.Emit(Event{Kind: Connected, Endpoint: "localhost:1"})
	sink.Emit(Event{Kind: ConnectFailed, Endpoint: "localhost:1"})

	if len(a.Events()) != 2 || len(b.Events()) != 2 {
		t.Errorf("recorders got %d and %d events, want 2 each", len(a.Events()), len(b.Events()))
	}
	if a.Count(ConnectFailed) != 1 {
		t.Errorf("Count(ConnectFailed) = %d, want 1", a.Count(ConnectFailed))
	}
}

func TestRecorder_Concurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Emit(Event{Kind: CallSucceeded})
		}()
	}
	wg.Wait()

	if got := r.Count(CallSucceeded); got != 50 {
		t.Errorf("Count() = %d, want 50", got)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := LogSink{Logger: logger}

	sink.Emit(Event{Kind: ConnectFailed, Endpoint: "localhost:18861", Attempt: 1, Remaining: 2, Err: errors.New("refused")})

	out := buf.String()
	for _, want := range []string{`"event":"connect_failed"`, `"endpoint":"localhost:18861"`, `"attempt":1`, `"remaining":2`, `"level":"WARN"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}
