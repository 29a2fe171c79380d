// Package worker implements the counting service that the coordinator dispatches chunks to.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"sync"
	"time"

	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
)

// ServiceName is the name the counting service is registered under.
const ServiceName = "WordCount"

// ErrNilRequest is returned to the caller when a request carries no payload.
var ErrNilRequest = errors.New("input must be a string chunk")

// WordCount is the RPC receiver. Its exported method set is the wire contract.
type WordCount struct {
	logger *slog.Logger
}

// CountWords tallies the words in args.Chunk. net/rpc always allocates args,
// so the nil check only matters for direct callers.
func (w *WordCount) CountWords(args *models.CountArgs, reply *models.CountReply) error {
	if args == nil {
		w.logger.Error("Rejected counting request", "error", ErrNilRequest)
		return ErrNilRequest
	}

	counts := mapreduce.Map(args.Chunk)
	reply.Counts = counts
	w.logger.Info("Processed chunk", "words", mapreduce.Total(counts), "unique_words", len(counts))
	return nil
}

// Server accepts connections and serves each one on its own goroutine.
type Server struct {
	rpc    *rpc.Server
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	closed   bool
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// NewServer registers the counting service on a private rpc.Server.
func NewServer(logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return NewServerWithReceiver(logger, ServiceName, &WordCount{logger: logger})
}

// NewServerWithReceiver registers an arbitrary receiver under name. It exists
// so other implementations of the contract can reuse the accept loop.
func NewServerWithReceiver(logger *slog.Logger, name string, receiver any) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := rpc.NewServer()
	if err := srv.RegisterName(name, receiver); err != nil {
		return nil, fmt.Errorf("failed to register %s service: %w", name, err)
	}
	return &Server{
		rpc:    srv,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Serve accepts connections on l until Close is called. It returns nil after Close.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return l.Close()
	}
	s.listener = l
	s.mu.Unlock()

	s.logger.Info("Worker listening", "addr", l.Addr().String())
	var tempDelay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			tempDelay = acceptBackoff(tempDelay)
			s.logger.Warn("Accept error", "error", err, "retry_in", tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.rpc.ServeConn(conn)
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

// acceptBackoff doubles the pause after a failed Accept, from 5ms up to 1s.
func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < time.Second {
		return next
	}
	return time.Second
}

// Close stops accepting, drops open connections and waits for their handlers.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
