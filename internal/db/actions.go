package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	dbpkg "github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
	"github.com/urfave/cli/v2"
)

func openDB(c *cli.Context) (*dbpkg.DB, error) {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

func RunsAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	return printRuns(os.Stdout, database, c.Int("limit"))
}

func printRuns(w io.Writer, database *dbpkg.DB, limit int) error {
	runs, err := database.ListRuns(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-20s %-8s %-10s %-8s %-8s %-10s %s\n",
		"ID", "Created", "Status", "Workers", "Words", "Unique", "Duration", "Source")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-20s %-8s %-10s %-8d %-8d %-10s %s\n",
			r.RunID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			fmt.Sprintf("%d/%d", r.Succeeded, r.Requested),
			r.TotalWords,
			r.UniqueWords,
			fmt.Sprintf("%dms", r.DurationMS),
			r.Source,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'dwc db run <id>' to see details\n")
	return nil
}

// RunAction shows details for one run, the latest when no ID is given.
func RunAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := runIDOrLatest(c, database)
	if err != nil {
		return err
	}
	return printRun(os.Stdout, database, runID, c.Int("top"))
}

func printRun(w io.Writer, database *dbpkg.DB, runID int64, top int) error {
	run, err := database.GetRunByID(runID)
	if err != nil {
		return err
	}
	calls, err := database.GetRunCalls(runID)
	if err != nil {
		return err
	}
	attempts, err := database.GetConnectAttempts(runID)
	if err != nil {
		return err
	}
	words, err := database.TopRunWords(runID, top)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Run %d\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Created:     %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	fmt.Fprintf(w, "Source:      %s\n", run.Source)
	fmt.Fprintf(w, "Endpoints:   %s\n", run.EndpointsKey)
	fmt.Fprintf(w, "Workers:     %d requested, %d used (%d ok, %d failed)\n",
		run.Requested, run.Chunks, run.Succeeded, run.Failed)
	fmt.Fprintf(w, "Words:       %d total, %d unique\n", run.TotalWords, run.UniqueWords)
	fmt.Fprintf(w, "Normalized:  %t\n", run.Normalized)
	fmt.Fprintf(w, "Duration:    %dms\n", run.DurationMS)

	fmt.Fprintf(w, "\nCalls (%d):\n", len(calls))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, call := range calls {
		fmt.Fprintf(w, "%2d. [%s] %s (%d words, %dms)\n", call.ChunkIndex, call.Status, call.Endpoint, call.ChunkWords, call.LatencyMS)
		if call.Status == dbpkg.StatusFailed {
			fmt.Fprintf(w, "    Error: [%s] %s\n", call.ErrorKind, call.ErrorMessage)
		}
	}

	if len(attempts) > 0 {
		fmt.Fprintf(w, "\nConnect attempts (%d):\n", len(attempts))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, a := range attempts {
			state := "connected"
			if !a.Success {
				state = "failed: " + a.ErrorMessage
			}
			fmt.Fprintf(w, "    %s attempt %d (%d remaining) %s\n", a.Endpoint, a.Attempt, a.Remaining, state)
		}
	}

	if len(words) > 0 {
		fmt.Fprintf(w, "\nTop words:\n")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		mapreduce.PrintRanked(w, words)
	}
	return nil
}

// runIDOrLatest returns the run ID from args, or the latest run if not provided
func runIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		runID, err := database.LatestRunID()
		if err != nil {
			return 0, fmt.Errorf("%w. Run 'dwc count --text \"...\"' first", err)
		}
		return runID, nil
	}

	var runID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &runID); err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}

// InitAction creates the schema without running anything.
func InitAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Printf("Database ready at %s\n", database.Path())
	return nil
}
