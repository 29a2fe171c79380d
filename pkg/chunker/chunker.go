// Package chunker partitions text into contiguous, order-preserving chunks of words.
package chunker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrEmptyInput means the text held no words. Nothing may be dispatched.
	ErrEmptyInput = errors.New("no words to process")
	// ErrInvalidChunkCount means fewer than one chunk was requested.
	ErrInvalidChunkCount = errors.New("chunk count must be at least 1")
)

// Chunk is one contiguous slice of the input words, joined by single spaces.
type Chunk struct {
	Index int
	Text  string
	Words int
}

// Split tokenizes text on whitespace and returns exactly min(n, k) chunks.
//
// The first chunks hold n/k words each (floor division); the last chunk
// absorbs the remainder, so any imbalance lands on the final chunk only.
// Inter-word whitespace is not preserved.
func Split(logger *slog.Logger, text string, k int) ([]Chunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkCount, k)
	}

	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return nil, ErrEmptyInput
	}

	effective := k
	if n < k {
		effective = n
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("Fewer words than requested chunks, reducing chunk count",
			"words", n, "requested", k, "chunks", effective)
	}

	size := n / effective
	if size < 1 {
		size = 1
	}

	chunks := make([]Chunk, 0, effective)
	for i := 0; i < effective; i++ {
		start := i * size
		end := start + size
		if i == effective-1 {
			end = n
		}
		chunks = append(chunks, Chunk{
			Index: i,
			Text:  strings.Join(words[start:end], " "),
			Words: end - start,
		})
	}
	return chunks, nil
}
