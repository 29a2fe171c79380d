package common

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/urfave/cli/v2"
)

// ResolveConfig layers flags over the optional --config file over defaults.
// Only flags the user actually set override the file.
func ResolveConfig(c *cli.Context) (*models.DispatchConfig, error) {
	config := models.DefaultDispatchConfig()
	if path := c.String("config"); path != "" {
		loaded, err := models.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	if c.IsSet("endpoints") {
		endpoints, invalid := ParseEndpoints(c.String("endpoints"))
		if len(invalid) > 0 {
			return nil, fmt.Errorf("invalid endpoints: %s", strings.Join(invalid, ", "))
		}
		if len(endpoints) == 0 {
			return nil, fmt.Errorf("--endpoints is empty")
		}
		config.Endpoints = endpoints
	}
	if c.IsSet("max-retries") {
		config.Retry.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		config.Retry.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("timeout") {
		config.Retry.ResponseTimeout = c.Duration("timeout")
	}
	if c.IsSet("deadline") {
		config.Deadline = c.Duration("deadline")
	}
	if c.IsSet("normalize") {
		config.Normalize = c.Bool("normalize")
	}

	if config.Retry.MaxRetries < 1 {
		return nil, fmt.Errorf("--max-retries must be at least 1, got %d", config.Retry.MaxRetries)
	}
	if config.Retry.RetryDelay < 0 {
		return nil, fmt.Errorf("--retry-delay must not be negative")
	}
	config.Retry = config.Retry.WithDefaults()
	if config.Deadline < 0 {
		return nil, fmt.Errorf("--deadline must not be negative")
	}
	return config, nil
}

// DispatchFlags are shared by every command that talks to workers.
func DispatchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
		&cli.StringFlag{Name: "endpoints", Aliases: []string{"e"}, Usage: "Comma-separated worker host:port list, in chunk order"},
		&cli.IntFlag{Name: "max-retries", Value: models.DefaultMaxRetries, Usage: "Connection attempts per worker before giving up"},
		&cli.DurationFlag{Name: "retry-delay", Value: models.DefaultRetryDelay, Usage: "Pause between connection attempts"},
		&cli.DurationFlag{Name: "timeout", Value: models.DefaultResponseTimeout, Usage: "Maximum wait for a worker's reply"},
		&cli.DurationFlag{Name: "deadline", Usage: "Overall limit for one dispatch (0 = none)"},
		&cli.BoolFlag{Name: "normalize", Usage: "Lower-case, strip punctuation and drop stop words before counting"},
		&cli.StringFlag{Name: "db", Usage: "Run history database path (default: next to the binary)"},
		&cli.BoolFlag{Name: "no-history", Usage: "Do not record the run in the history database"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
		&cli.BoolFlag{Name: "verbose", Usage: "Log debug events such as successful connects"},
	}
}
