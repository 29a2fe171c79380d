package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dtnitsch/distributed-wordcount/internal/count"
	"github.com/dtnitsch/distributed-wordcount/internal/db"
	"github.com/dtnitsch/distributed-wordcount/internal/serve"
	"github.com/dtnitsch/distributed-wordcount/internal/worker"
	"github.com/dtnitsch/distributed-wordcount/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "dwc",
		Usage: "Count words across a pool of RPC workers",
		Commands: []*cli.Command{
			{
				Name:   "count",
				Usage:  "Split text across workers and merge their word counts",
				Flags:  count.Flags(),
				Action: count.CountAction,
			},
			{
				Name:   "worker",
				Usage:  "Run a counting worker",
				Flags:  worker.Flags(),
				Action: worker.WorkerAction,
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP upload front end",
				Flags:  serve.Flags(),
				Action: serve.ServeAction,
			},
			{
				Name:  "db",
				Usage: "Inspect the run history database",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Usage: "Run history database path (default: next to the binary)"},
				},
				Subcommands: []*cli.Command{
					{
						Name:   "runs",
						Usage:  "List recent runs",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum runs to list (0 = all)"}},
						Action: db.RunsAction,
					},
					{
						Name:      "run",
						Usage:     "Show one run (latest if no ID)",
						ArgsUsage: "[run-id]",
						Flags:     []cli.Flag{&cli.IntFlag{Name: "top", Value: 10, Usage: "Words to show (0 = all)"}},
						Action:    db.RunAction,
					},
					{
						Name:   "init",
						Usage:  "Create the database schema",
						Action: db.InitAction,
					},
				},
			},
			{
				Name:  "quickstart",
				Usage: "Print a quick reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
