package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dtnitsch/distributed-wordcount/internal/common"
	"github.com/dtnitsch/distributed-wordcount/pkg/analytics"
	"github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/dtnitsch/distributed-wordcount/pkg/events"
	"github.com/dtnitsch/distributed-wordcount/pkg/ingest"
	"github.com/urfave/cli/v2"
)

func Flags() []cli.Flag {
	return append(common.DispatchFlags(),
		&cli.StringFlag{Name: "addr", Value: "localhost:8080", Usage: "HTTP listen address"},
	)
}

// ServeAction runs the HTTP front end until SIGINT or SIGTERM.
func ServeAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	config, err := common.ResolveConfig(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pipeline := &common.Pipeline{Config: config, Logger: logger}
	if config.Normalize {
		pipeline.Normalizer = analytics.NewNormalizer(analytics.WithLanguageDetection())
	}
	if !c.Bool("no-history") {
		database, err := db.Open(c.String("db"))
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(2)
		}
		defer database.Close()
		pipeline.DB = database
	}

	handler := &Handler{
		Counter:   pipeline,
		Extractor: &ingest.Extractor{Logger: logger},
		Pinger:    pipeline.NewClient(events.LogSink{Logger: logger}),
		Endpoints: config.Endpoints,
		Logger:    logger,
	}

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "endpoints", common.EndpointsKey(config.Endpoints))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(2)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
