package serve

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dtnitsch/distributed-wordcount/internal/common"
	"github.com/dtnitsch/distributed-wordcount/models"
	"github.com/dtnitsch/distributed-wordcount/pkg/chunker"
	"github.com/dtnitsch/distributed-wordcount/pkg/dispatch"
	"github.com/dtnitsch/distributed-wordcount/pkg/ingest"
)

const maxUploadBytes = 32 << 20

// Counter runs one count. *common.Pipeline implements it.
type Counter interface {
	Run(ctx context.Context, text, source string) (*common.Report, error)
}

// Pinger probes one worker. *workerclient.Client implements it.
type Pinger interface {
	Ping(ctx context.Context, endpoint models.Endpoint) error
}

// Handler is the HTTP front end: an upload form, /process and /health.
type Handler struct {
	Counter       Counter
	Extractor     *ingest.Extractor
	Pinger        Pinger
	Endpoints     []models.Endpoint
	Logger        *slog.Logger
	HealthTimeout time.Duration
}

// Routes returns the handler's mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("POST /process", h.process)
	mux.HandleFunc("GET /health", h.health)
	return mux
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

type callsSummary struct {
	Status    string              `json:"status"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []common.CallReport `json:"results"`
}

type processResponse struct {
	RunID int64        `json:"run_id,omitempty"`
	Words [][2]any     `json:"words"`
	Calls callsSummary `json:"calls"`
}

type errorResponse struct {
	Error string        `json:"error"`
	Calls *callsSummary `json:"calls,omitempty"`
}

func summarize(report *common.Report) callsSummary {
	return callsSummary{
		Status:    report.Status,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Results:   report.Calls,
	}
}

func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No valid input provided."})
		return
	}

	text, source, status, msg := h.readInput(r)
	if status != 0 {
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	report, err := h.Counter.Run(r.Context(), text, source)
	switch {
	case errors.Is(err, chunker.ErrEmptyInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No valid input provided."})
		return
	case errors.Is(err, dispatch.ErrNoWorkersAvailable):
		h.logger().Error("No worker produced counts", "source", source)
		resp := errorResponse{Error: "No workers available."}
		if report != nil {
			calls := summarize(report)
			resp.Calls = &calls
		}
		writeJSON(w, http.StatusBadGateway, resp)
		return
	case err != nil:
		h.logger().Error("Count failed", "source", source, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Processing failed."})
		return
	}

	resp := processResponse{
		RunID: report.RunID,
		Words: make([][2]any, len(report.Words)),
		Calls: summarize(report),
	}
	for i, wc := range report.Words {
		resp.Words[i] = [2]any{wc.Word, wc.Count}
	}
	writeJSON(w, http.StatusOK, resp)
}

// readInput prefers an uploaded file over form text. A non-zero status means
// the request is rejected with msg.
func (h *Handler) readInput(r *http.Request) (text, source string, status int, msg string) {
	file, header, err := r.FormFile("file")
	if err == nil && header.Filename != "" {
		defer file.Close()
		text, err := h.Extractor.ExtractReader(header.Filename, file)
		if errors.Is(err, ingest.ErrUnsupportedSource) {
			return "", "", http.StatusBadRequest, "Unsupported file type."
		}
		if err != nil {
			return "", "", http.StatusBadRequest, err.Error()
		}
		return text, header.Filename, 0, ""
	}

	if text := r.FormValue("text"); len(text) > 0 {
		return text, "text", 0, ""
	}
	return "", "", http.StatusBadRequest, "No valid input provided."
}

type healthResponse struct {
	Status    string            `json:"status"`
	Endpoints map[string]string `json:"endpoints"`
}

// health probes every endpoint once, concurrently.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	timeout := h.HealthTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	results := make([]error, len(h.Endpoints))
	var wg sync.WaitGroup
	for i, ep := range h.Endpoints {
		wg.Add(1)
		go func(i int, ep models.Endpoint) {
			defer wg.Done()
			results[i] = h.Pinger.Ping(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	resp := healthResponse{Endpoints: make(map[string]string, len(h.Endpoints))}
	up := 0
	for i, ep := range h.Endpoints {
		if results[i] != nil {
			resp.Endpoints[ep.Addr()] = "down: " + results[i].Error()
			continue
		}
		resp.Endpoints[ep.Addr()] = "up"
		up++
	}

	status := http.StatusOK
	switch {
	case up == len(h.Endpoints):
		resp.Status = "ok"
	case up > 0:
		resp.Status = "degraded"
	default:
		resp.Status = "down"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Distributed word count</title></head>
<body>
<h1>Distributed word count</h1>
<form action="/process" method="post" enctype="multipart/form-data">
<p><input type="file" name="file" accept=".txt,.html,.htm,.pdf"></p>
<p><textarea name="text" rows="10" cols="80" placeholder="...or paste text here"></textarea></p>
<p><button type="submit">Count</button></p>
</form>
</body>
</html>
`
