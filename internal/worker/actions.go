package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/distributed-wordcount/internal/common"
	"github.com/dtnitsch/distributed-wordcount/models"
	workerpkg "github.com/dtnitsch/distributed-wordcount/pkg/worker"
	"github.com/urfave/cli/v2"
)

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Value: "localhost", Usage: "Interface to listen on"},
		&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: models.DefaultPorts[0], Usage: "Port to listen on"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
		&cli.BoolFlag{Name: "verbose", Usage: "Log debug output"},
	}
}

// WorkerAction serves the counting service until SIGINT or SIGTERM.
func WorkerAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	endpoint := models.Endpoint{Host: c.String("host"), Port: c.Int("port")}
	if err := endpoint.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	srv, err := workerpkg.NewServer(logger)
	if err != nil {
		logger.Error("failed to create worker", "error", err)
		os.Exit(2)
	}

	l, err := net.Listen("tcp", endpoint.Addr())
	if err != nil {
		logger.Error("failed to listen", "addr", endpoint.Addr(), "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serveUntil(ctx, srv, l, logger)
}

type server interface {
	Serve(net.Listener) error
	Close() error
}

func serveUntil(ctx context.Context, srv server, l net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down worker", "addr", l.Addr().String())
		if err := srv.Close(); err != nil {
			return fmt.Errorf("failed to close listener: %w", err)
		}
		return <-errCh
	}
}
