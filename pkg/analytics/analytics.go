// Package analytics normalizes text before it is counted: lower-casing,
// punctuation trimming and stop-word removal.
package analytics

import (
	"strings"
	"unicode"

	"github.com/pemistahl/lingua-go"
)

// DetectableLanguages is the candidate set handed to the lingua detector.
// Keeping it small keeps detector construction cheap.
var DetectableLanguages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
}

// minConfidence is the lingua confidence needed before a non-English result
// disables English stop-word removal.
const minConfidence = 0.5

// Normalizer rewrites text into lower-case words with edge punctuation removed.
// With a detector set, English stop words are kept for confidently non-English text.
type Normalizer struct {
	detector      lingua.LanguageDetector
	keepStopwords bool
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLanguageDetection enables lingua-based language detection.
func WithLanguageDetection() Option {
	return func(n *Normalizer) {
		n.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(DetectableLanguages...).
			Build()
	}
}

// KeepStopwords disables stop-word removal entirely.
func KeepStopwords() Option {
	return func(n *Normalizer) { n.keepStopwords = true }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DetectLanguage returns the detected language name, or "" if no detector is
// configured or detection is not confident.
func (n *Normalizer) DetectLanguage(text string) string {
	if n.detector == nil {
		return ""
	}
	language, exists := n.detector.DetectLanguageOf(text)
	if !exists {
		return ""
	}
	if n.detector.ComputeLanguageConfidence(text, language) < minConfidence {
		return ""
	}
	return language.String()
}

// Normalize returns the cleaned words of text joined by single spaces.
func (n *Normalizer) Normalize(text string) string {
	dropStopwords := !n.keepStopwords
	if dropStopwords {
		if lang := n.DetectLanguage(text); lang != "" && lang != lingua.English.String() {
			dropStopwords = false
		}
	}

	words := strings.Fields(strings.ToLower(text))
	kept := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if word == "" {
			continue
		}
		if dropStopwords {
			if IsStopword(word) {
				continue
			}
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}
