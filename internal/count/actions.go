package count

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/distributed-wordcount/internal/common"
	"github.com/dtnitsch/distributed-wordcount/pkg/analytics"
	"github.com/dtnitsch/distributed-wordcount/pkg/caching"
	"github.com/dtnitsch/distributed-wordcount/pkg/chunker"
	"github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/dtnitsch/distributed-wordcount/pkg/dispatch"
	"github.com/dtnitsch/distributed-wordcount/pkg/ingest"
	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
	"github.com/dtnitsch/distributed-wordcount/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// Flags returns the flags of the count command.
func Flags() []cli.Flag {
	return append(common.DispatchFlags(),
		&cli.StringFlag{Name: "text", Aliases: []string{"t"}, Usage: "Text to count"},
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File to count (.txt, .html, .htm, .pdf)"},
		&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Web page to fetch and count"},
		&cli.StringFlag{Name: "format", Value: "table", Usage: "Output format: table, list, json, yaml"},
		&cli.IntFlag{Name: "top", Value: 25, Usage: "Number of words to print (0 = all)"},
		&cli.StringFlag{Name: "output-dir", Usage: "Also write the full run report to this directory"},
		&cli.DurationFlag{Name: "max-age", Usage: "Reuse a successful run of the same text and endpoints younger than this"},
		&cli.StringFlag{Name: "cache-dir", Usage: "Directory for fetched URL bodies (default: $TMPDIR/dwc-cache)"},
		&cli.DurationFlag{Name: "cache-ttl", Value: time.Hour, Usage: "How long fetched URL bodies stay fresh"},
		&cli.BoolFlag{Name: "refresh", Usage: "Drop the cached body of --url and fetch it again"},
		&cli.DurationFlag{Name: "fetch-timeout", Value: 30 * time.Second, Usage: "HTTP timeout for --url"},
	)
}

func CountAction(c *cli.Context) error {
	logger := common.NewLogger(c.Bool("quiet"), c.Bool("verbose"))

	config, err := common.ResolveConfig(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	format := strings.ToLower(c.String("format"))
	switch format {
	case "table", "list", "json", "yaml":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown --format %q (want table, list, json or yaml)\n", format)
		os.Exit(1)
	}

	src, err := sourceFromFlags(c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  dwc count --text "the cat sat the cat ran"`)
		fmt.Fprintln(os.Stderr, `  dwc count --file report.pdf --endpoints localhost:18861,localhost:18862`)
		fmt.Fprintln(os.Stderr, `  dwc count --url https://example.com --normalize --top 10`)
		os.Exit(1)
	}

	extractor, err := newExtractor(c, logger)
	if err != nil {
		logger.Error("failed to initialize URL cache", "error", err)
		os.Exit(2)
	}
	text, err := extractor.ExtractText(c.Context, src)
	if err != nil {
		if errors.Is(err, ingest.ErrNoInput) || errors.Is(err, ingest.ErrUnsupportedSource) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Error("failed to read input", "error", err)
		os.Exit(2)
	}

	pipeline := &common.Pipeline{
		Config: config,
		Logger: logger,
		MaxAge: c.Duration("max-age"),
	}
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

	report, runErr := pipeline.Run(c.Context, text, describeSource(src))
	if errors.Is(runErr, chunker.ErrEmptyInput) {
		fmt.Fprintln(os.Stderr, "Error: input contains no words")
		os.Exit(1)
	}
	if report == nil {
		logger.Error("count failed", "error", runErr)
		os.Exit(2)
	}

	if dir := c.String("output-dir"); dir != "" {
		path, err := saveArtifact(dir, report, format)
		if err != nil {
			logger.Error("failed to write run artifact", "error", err)
		} else {
			logger.Info("Run artifact saved", "path", path)
		}
	}

	if err := render(os.Stdout, report.WithTop(c.Int("top")), format); err != nil {
		logger.Error("failed to render output", "error", err)
		os.Exit(2)
	}

	switch {
	case errors.Is(runErr, dispatch.ErrNoWorkersAvailable):
		fmt.Fprintln(os.Stderr, "Error: no workers available")
		os.Exit(2)
	case runErr != nil:
		logger.Error("count failed", "error", runErr)
		os.Exit(2)
	}
	return nil
}

// sourceFromFlags requires exactly one of --text, --file and --url.
func sourceFromFlags(c *cli.Context) (ingest.Source, error) {
	src := ingest.Source{Text: c.String("text"), Path: c.String("file"), URL: c.String("url")}

	set := 0
	for _, name := range []string{"text", "file", "url"} {
		if c.IsSet(name) {
			set++
		}
	}
	switch {
	case set == 0:
		return src, fmt.Errorf("no input provided")
	case set > 1:
		return src, fmt.Errorf("use only one of --text, --file and --url")
	}
	return src, nil
}

func describeSource(src ingest.Source) string {
	switch {
	case src.Path != "":
		return src.Path
	case src.URL != "":
		return src.URL
	}
	return "text"
}

func newExtractor(c *cli.Context, logger *slog.Logger) (*ingest.Extractor, error) {
	extractor := &ingest.Extractor{Logger: logger}
	if !c.IsSet("url") {
		return extractor, nil
	}

	dir := c.String("cache-dir")
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "dwc-cache")
	}
	cache, err := caching.NewCache(dir, c.Duration("cache-ttl"))
	if err != nil {
		return nil, err
	}
	extractor.Fetcher = ingest.NewFetcher(c.Duration("fetch-timeout"))
	extractor.Cache = cache
	extractor.Refresh = c.Bool("refresh")
	return extractor, nil
}

func render(w io.Writer, report *common.Report, format string) error {
	var outputData []byte
	var err error
	switch format {
	case "json":
		outputData, err = json.MarshalIndent(report, "", "  ")
	case "yaml":
		outputData, err = yaml.Marshal(report)
	case "list":
		mapreduce.PrintRanked(w, report.Words)
		return nil
	default:
		return report.WriteTable(w)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, strings.TrimRight(string(outputData), "\n"))
	return err
}

// saveArtifact writes the untruncated report. Table output is saved as JSON.
func saveArtifact(dir string, report *common.Report, format string) (string, error) {
	s, err := storage.New(dir)
	if err != nil {
		return "", err
	}
	if format == "yaml" {
		return s.SaveYAML(storage.RunArtifactName(report.RunID, time.Now(), "yaml"), report)
	}
	return s.SaveJSON(storage.RunArtifactName(report.RunID, time.Now(), "json"), report)
}
