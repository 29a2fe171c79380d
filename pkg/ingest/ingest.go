// Package ingest turns uploaded files, local paths, URLs and raw form text
// into plain UTF-8 text for counting.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dtnitsch/distributed-wordcount/pkg/caching"
)

var (
	// ErrNoInput means the source carried nothing to read.
	ErrNoInput = errors.New("no valid input provided")
	// ErrUnsupportedSource means the file type cannot be turned into text.
	ErrUnsupportedSource = errors.New("unsupported file type")
)

// Source names exactly one input. Text wins over Path, Path over URL.
type Source struct {
	Text string
	Path string
	URL  string
}

// Kind of document, decided by extension or content type.
type Kind string

const (
	KindText Kind = "text"
	KindHTML Kind = "html"
	KindPDF  Kind = "pdf"
)

// KindForName picks a Kind from a file name's extension.
func KindForName(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text":
		return KindText, nil
	case ".html", ".htm":
		return KindHTML, nil
	case ".pdf":
		return KindPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedSource, filepath.Base(name))
}

// KindForContentType picks a Kind from an HTTP Content-Type header.
// Unknown types are treated as HTML.
func KindForContentType(contentType string) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return KindHTML
	}
	switch mediaType {
	case "text/plain":
		return KindText
	case "application/pdf":
		return KindPDF
	}
	return KindHTML
}

// Extractor reads sources. The zero value handles text and local files;
// URLs need a Fetcher.
type Extractor struct {
	Fetcher *Fetcher
	Cache   *caching.Cache
	Logger  *slog.Logger

	// Refresh drops any cached body before fetching a URL.
	Refresh bool
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// ExtractText returns the text of src.
func (e *Extractor) ExtractText(ctx context.Context, src Source) (string, error) {
	switch {
	case strings.TrimSpace(src.Text) != "":
		return src.Text, nil
	case src.Path != "":
		return e.extractFile(src.Path)
	case src.URL != "":
		return e.extractURL(ctx, src.URL)
	}
	return "", ErrNoInput
}

// ExtractReader reads an uploaded document named name.
func (e *Extractor) ExtractReader(name string, r io.Reader) (string, error) {
	kind, err := KindForName(name)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return e.extractBytes(kind, data, nil)
}

func (e *Extractor) extractFile(path string) (string, error) {
	kind, err := KindForName(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	abs, _ := filepath.Abs(path)
	return e.extractBytes(kind, data, &url.URL{Scheme: "file", Path: abs})
}

func (e *Extractor) extractURL(ctx context.Context, rawURL string) (string, error) {
	if e.Fetcher == nil {
		return "", fmt.Errorf("%w: no fetcher configured for %s", ErrUnsupportedSource, rawURL)
	}
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	var contentType string
	fetch := func() ([]byte, error) {
		body, ct, err := e.Fetcher.Get(ctx, rawURL)
		contentType = ct
		return body, err
	}

	var body []byte
	if e.Cache != nil {
		if e.Refresh {
			if err := e.Cache.Invalidate(rawURL); err != nil {
				e.logger().Warn("Failed to drop cached source", "url", rawURL, "error", err)
			}
		}
		var hit bool
		body, hit, err = e.Cache.GetOrFill(rawURL, fetch)
		if hit {
			e.logger().Info("Source found in cache", "url", rawURL)
		}
	} else {
		body, err = fetch()
	}
	if err != nil {
		return "", err
	}

	kind := KindForContentType(contentType)
	if contentType == "" {
		kind = sniffKind(body)
	}
	return e.extractBytes(kind, body, pageURL)
}

func (e *Extractor) extractBytes(kind Kind, data []byte, pageURL *url.URL) (string, error) {
	switch kind {
	case KindText:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("text input is not valid UTF-8")
		}
		return string(data), nil
	case KindHTML:
		return HTMLText(string(data), pageURL)
	case KindPDF:
		return PDFText(data)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, kind)
}

// sniffKind guesses the kind of a cached body whose content type was not kept.
func sniffKind(body []byte) Kind {
	if bytes.HasPrefix(body, []byte("%PDF-")) {
		return KindPDF
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	if bytes.HasPrefix(head, []byte("<")) {
		return KindHTML
	}
	return KindText
}
