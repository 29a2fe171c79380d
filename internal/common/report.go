package common

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dtnitsch/distributed-wordcount/pkg/db"
	"github.com/dtnitsch/distributed-wordcount/pkg/dispatch"
	"github.com/dtnitsch/distributed-wordcount/pkg/mapreduce"
)

// CallReport is the rendered outcome of one worker call.
type CallReport struct {
	ChunkIndex int    `json:"chunk_index" yaml:"chunk_index"`
	Endpoint   string `json:"endpoint" yaml:"endpoint"`
	Words      int    `json:"words" yaml:"words"`
	Status     string `json:"status" yaml:"status"`
	ErrorKind  string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	LatencyMS  int64  `json:"latency_ms" yaml:"latency_ms"`
}

// Report is what count prints and what gets written as a run artifact.
type Report struct {
	RunID       int64                 `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Status      string                `json:"status" yaml:"status"`
	Reused      bool                  `json:"reused,omitempty" yaml:"reused,omitempty"`
	Source      string                `json:"source" yaml:"source"`
	TotalWords  int                   `json:"total_words" yaml:"total_words"`
	UniqueWords int                   `json:"unique_words" yaml:"unique_words"`
	Requested   int                   `json:"requested" yaml:"requested"`
	Succeeded   int                   `json:"succeeded" yaml:"succeeded"`
	Failed      int                   `json:"failed" yaml:"failed"`
	DurationMS  int64                 `json:"duration_ms" yaml:"duration_ms"`
	Calls       []CallReport          `json:"calls" yaml:"calls"`
	Words       []mapreduce.WordCount `json:"words" yaml:"words"`

	counts map[string]int
}

// Counts returns the merged frequency map behind Words.
func (r *Report) Counts() map[string]int {
	return r.counts
}

// WithTop returns a copy whose Words list is cut to the n most frequent. n <= 0 keeps all.
func (r *Report) WithTop(n int) *Report {
	out := *r
	out.Words = mapreduce.Top(r.counts, n)
	return &out
}

func runStatus(succeeded, failed int) string {
	switch {
	case failed == 0:
		return "success"
	case succeeded > 0:
		return "partial_failure"
	}
	return "failure"
}

// NewReport renders a dispatch result.
func NewReport(source string, res *dispatch.Result) *Report {
	r := &Report{
		Source:     source,
		TotalWords: res.Words,
		Requested:  res.Requested,
		Succeeded:  res.Succeeded(),
		Failed:     res.Failed(),
		DurationMS: res.Duration.Milliseconds(),
		counts:     res.Counts,
	}
	r.UniqueWords = len(res.Counts)
	r.Words = mapreduce.Sorted(res.Counts)
	r.Status = runStatus(r.Succeeded, r.Failed)

	for _, o := range res.Outcomes {
		call := CallReport{
			ChunkIndex: o.ChunkIndex,
			Endpoint:   o.Endpoint.Addr(),
			Words:      o.Words,
			Status:     db.StatusOK,
			LatencyMS:  o.Latency.Milliseconds(),
		}
		if !o.Succeeded() {
			call.Status = db.StatusFailed
			call.ErrorKind = o.ErrorKind()
			call.Error = o.Err.Error()
		}
		r.Calls = append(r.Calls, call)
	}
	return r
}

// reportFromRun rebuilds a report from stored history.
func reportFromRun(run *db.Run, calls []db.RunCall, counts map[string]int) *Report {
	r := &Report{
		RunID:       run.RunID,
		Reused:      true,
		Source:      run.Source,
		TotalWords:  run.TotalWords,
		UniqueWords: len(counts),
		Requested:   run.Requested,
		Succeeded:   run.Succeeded,
		Failed:      run.Failed,
		DurationMS:  run.DurationMS,
		Words:       mapreduce.Sorted(counts),
		counts:      counts,
	}
	r.Status = runStatus(r.Succeeded, r.Failed)
	for _, c := range calls {
		r.Calls = append(r.Calls, CallReport{
			ChunkIndex: c.ChunkIndex,
			Endpoint:   c.Endpoint,
			Words:      c.ChunkWords,
			Status:     c.Status,
			ErrorKind:  c.ErrorKind,
			Error:      c.ErrorMessage,
			LatencyMS:  c.LatencyMS,
		})
	}
	return r
}

// WriteTable prints the per-endpoint summary followed by the word table.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := fmt.Sprintf("Words: %d total, %d unique | Workers: %d/%d succeeded | %dms",
		r.TotalWords, r.UniqueWords, r.Succeeded, r.Requested, r.DurationMS)
	if r.RunID > 0 {
		header = fmt.Sprintf("Run %d | %s", r.RunID, header)
	}
	if r.Reused {
		header += " (reused)"
	}
	fmt.Fprintln(tw, header)
	fmt.Fprintln(tw, strings.Repeat("-", len(header)))

	fmt.Fprintln(tw, "CHUNK\tENDPOINT\tWORDS\tSTATUS\tERROR\tLATENCY")
	for _, c := range r.Calls {
		errText := "-"
		if c.ErrorKind != "" {
			errText = c.ErrorKind
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%dms\n", c.ChunkIndex, c.Endpoint, c.Words, c.Status, errText, c.LatencyMS)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "RANK\tWORD\tCOUNT")
	for i, wc := range r.Words {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, wc.Word, wc.Count)
	}
	return tw.Flush()
}
