package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/distributed-wordcount/pkg/caching"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Counting Words</title><script>var secretToken = "hidden";</script><style>p { color: red; }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Counting Words</h1>
<p>Distributed counting splits a long document into contiguous chunks and sends every chunk to a worker process.</p>
<p>Each worker tallies the words it received and returns a frequency map to the coordinator, which merges the partial maps.</p>
<p>When a worker fails, the coordinator keeps going and merges whatever partial results survived the dispatch.</p>
</article>
</body>
</html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestExtractText_RawText(t *testing.T) {
	e := &Extractor{}
	got, err := e.ExtractText(context.Background(), Source{Text: "the cat sat"})
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "the cat sat" {
		t.Errorf("ExtractText() = %q", got)
	}
}

func TestExtractText_NoInput(t *testing.T) {
	e := &Extractor{}
	for _, src := range []Source{{}, {Text: "   \n"}} {
		if _, err := e.ExtractText(context.Background(), src); !errors.Is(err, ErrNoInput) {
			t.Errorf("ExtractText(%+v) error = %v, want ErrNoInput", src, err)
		}
	}
}

func TestExtractText_TextFile(t *testing.T) {
	path := writeFile(t, "sample.txt", "alpha beta\ngamma")
	e := &Extractor{}

	got, err := e.ExtractText(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "alpha beta\ngamma" {
		t.Errorf("ExtractText() = %q", got)
	}
}

func TestExtractText_UnsupportedFile(t *testing.T) {
	path := writeFile(t, "sheet.xlsx", "binary")
	e := &Extractor{}
	if _, err := e.ExtractText(context.Background(), Source{Path: path}); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("ExtractText() error = %v, want ErrUnsupportedSource", err)
	}
}

func TestExtractText_HTMLFile(t *testing.T) {
	path := writeFile(t, "article.html", articleHTML)
	e := &Extractor{}

	got, err := e.ExtractText(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	for _, want := range []string{"contiguous chunks", "frequency map", "partial results survived"} {
		if !strings.Contains(got, want) {
			t.Errorf("ExtractText() = %q, missing %q", got, want)
		}
	}
	for _, unwanted := range []string{"secretToken", "color: red"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("ExtractText() = %q, should not contain %q", got, unwanted)
		}
	}
}

func TestHTMLText_SeparatesBlocks(t *testing.T) {
	got, err := HTMLText("<html><body><div>one</div><div>two</div><ul><li>three</li></ul></body></html>", nil)
	if err != nil {
		t.Fatalf("HTMLText() error = %v", err)
	}
	if strings.Contains(got, "onetwo") || strings.Contains(got, "twothree") {
		t.Errorf("HTMLText() = %q, blocks fused together", got)
	}
}

func TestExtractReader(t *testing.T) {
	e := &Extractor{}

	got, err := e.ExtractReader("notes.txt", strings.NewReader("uploaded words"))
	if err != nil {
		t.Fatalf("ExtractReader() error = %v", err)
	}
	if got != "uploaded words" {
		t.Errorf("ExtractReader() = %q", got)
	}

	if _, err := e.ExtractReader("image.png", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("ExtractReader(png) error = %v, want ErrUnsupportedSource", err)
	}
}

func TestPDFText_Invalid(t *testing.T) {
	if _, err := PDFText([]byte("not a pdf")); err == nil {
		t.Error("PDFText() error = nil, want error for invalid document")
	}
}

func TestExtractText_URL(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		switch r.URL.Path {
		case "/plain":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "plain words from the web")
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, articleHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	e := &Extractor{Fetcher: NewFetcher(5 * time.Second), Cache: cache, Logger: quietLogger()}

	got, err := e.ExtractText(context.Background(), Source{URL: srv.URL + "/plain"})
	if err != nil {
		t.Fatalf("ExtractText(plain) error = %v", err)
	}
	if got != "plain words from the web" {
		t.Errorf("ExtractText(plain) = %q", got)
	}

	got, err = e.ExtractText(context.Background(), Source{URL: srv.URL + "/article"})
	if err != nil {
		t.Fatalf("ExtractText(article) error = %v", err)
	}
	if !strings.Contains(got, "contiguous chunks") {
		t.Errorf("ExtractText(article) = %q", got)
	}

	// Served from cache the second time.
	again, err := e.ExtractText(context.Background(), Source{URL: srv.URL + "/article"})
	if err != nil {
		t.Fatalf("ExtractText(article, cached) error = %v", err)
	}
	if !strings.Contains(again, "contiguous chunks") {
		t.Errorf("ExtractText(article, cached) = %q", again)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("server hits = %d, want 2", got)
	}

	e.Refresh = true
	if _, err := e.ExtractText(context.Background(), Source{URL: srv.URL + "/article"}); err != nil {
		t.Fatalf("ExtractText(article, refresh) error = %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hits after refresh = %d, want 3", got)
	}

	if _, err := e.ExtractText(context.Background(), Source{URL: srv.URL + "/missing"}); err == nil {
		t.Error("ExtractText(404) error = nil, want error")
	}
}

func TestExtractText_URLWithoutFetcher(t *testing.T) {
	e := &Extractor{}
	if _, err := e.ExtractText(context.Background(), Source{URL: "https://example.com"}); !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("ExtractText() error = %v, want ErrUnsupportedSource", err)
	}
}

func TestKindForContentType(t *testing.T) {
	tests := map[string]Kind{
		"text/plain; charset=utf-8": KindText,
		"application/pdf":           KindPDF,
		"text/html":                 KindHTML,
		"":                          KindHTML,
	}
	for ct, want := range tests {
		if got := KindForContentType(ct); got != want {
			t.Errorf("KindForContentType(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestSniffKind(t *testing.T) {
	if got := sniffKind([]byte("%PDF-1.7 ...")); got != KindPDF {
		t.Errorf("sniffKind(pdf) = %q", got)
	}
	if got := sniffKind([]byte("  <!doctype html><p>x</p>")); got != KindHTML {
		t.Errorf("sniffKind(html) = %q", got)
	}
	if got := sniffKind([]byte("just words")); got != KindText {
		t.Errorf("sniffKind(text) = %q", got)
	}
}
