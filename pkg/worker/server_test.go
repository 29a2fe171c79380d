package worker

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/rpc"
	"reflect"
	"testing"
	"time"

	"github.com/dtnitsch/distributed-wordcount/models"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func startServer(t *testing.T) string {
	t.Helper()
	srv, err := NewServer(quietLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })
	return l.Addr().String()
}

func TestWordCount_CountWords(t *testing.T) {
	w := &WordCount{logger: quietLogger()}

	var reply models.CountReply
	if err := w.CountWords(&models.CountArgs{Chunk: "the cat sat on the mat"}, &reply); err != nil {
		t.Fatalf("CountWords() error = %v", err)
	}

	want := map[string]int{"the": 2, "cat": 1, "sat": 1, "on": 1, "mat": 1}
	if !reflect.DeepEqual(reply.Counts, want) {
		t.Errorf("CountWords() = %v, want %v", reply.Counts, want)
	}
}

func TestWordCount_NilArgs(t *testing.T) {
	w := &WordCount{logger: quietLogger()}
	if err := w.CountWords(nil, &models.CountReply{}); err != ErrNilRequest {
		t.Errorf("CountWords(nil) error = %v, want ErrNilRequest", err)
	}
}

func TestServer_ServesRPC(t *testing.T) {
	addr := startServer(t)

	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("rpc.Dial() error = %v", err)
	}
	defer client.Close()

	var reply models.CountReply
	if err := client.Call(models.CountWordsMethod, &models.CountArgs{Chunk: "a b a"}, &reply); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if reply.Counts["a"] != 2 || reply.Counts["b"] != 1 {
		t.Errorf("Call() counts = %v, want a:2 b:1", reply.Counts)
	}
}

func TestServer_CloseStopsServing(t *testing.T) {
	srv, err := NewServer(quietLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	client, err := rpc.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("rpc.Dial() error = %v", err)
	}
	defer client.Close()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Errorf("Serve() returned %v after Close, want nil", err)
	}

	var reply models.CountReply
	if err := client.Call(models.CountWordsMethod, &models.CountArgs{Chunk: "a"}, &reply); err == nil {
		t.Error("Call() after Close succeeded, want error")
	}
}

// failingListener fails Accept a fixed number of times, then reports closed.
type failingListener struct {
	net.Listener
	failures int
	accepts  int
}

func (l *failingListener) Accept() (net.Conn, error) {
	l.accepts++
	if l.accepts <= l.failures {
		return nil, errors.New("accept: too many open files")
	}
	return nil, net.ErrClosed
}

func TestServer_BacksOffOnAcceptErrors(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer inner.Close()

	srv, err := NewServer(quietLogger())
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	l := &failingListener{Listener: inner, failures: 3}

	start := time.Now()
	if err := srv.Serve(l); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if l.accepts != 4 {
		t.Errorf("accepts = %d, want 4", l.accepts)
	}
	// 5ms + 10ms + 20ms of backoff.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("Serve() returned after %v, want backoff between failed accepts", elapsed)
	}
}

func TestAcceptBackoff(t *testing.T) {
	tests := []struct {
		prev time.Duration
		want time.Duration
	}{
		{prev: 0, want: 5 * time.Millisecond},
		{prev: 5 * time.Millisecond, want: 10 * time.Millisecond},
		{prev: 600 * time.Millisecond, want: time.Second},
		{prev: time.Second, want: time.Second},
	}
	for _, tt := range tests {
		if got := acceptBackoff(tt.prev); got != tt.want {
			t.Errorf("acceptBackoff(%v) = %v, want %v", tt.prev, got, tt.want)
		}
	}
}
