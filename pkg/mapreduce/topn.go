package mapreduce

import (
	"fmt"
	"io"
	"sort"
)

// WordCount is one row of a rendered frequency table.
type WordCount struct {
	Word  string `json:"word" yaml:"word"`
	Count int    `json:"count" yaml:"count"`
}

// Sorted returns every entry ordered by count descending, then word ascending,
// so output is stable across runs.
func Sorted(wordCounts map[string]int) []WordCount {
	ss := make([]WordCount, 0, len(wordCounts))
	for k, v := range wordCounts {
		ss = append(ss, WordCount{Word: k, Count: v})
	}

	sort.Slice(ss, func(i, j int) bool {
		if ss[i].Count != ss[j].Count {
			return ss[i].Count > ss[j].Count
		}
		return ss[i].Word < ss[j].Word
	})
	return ss
}

// Top returns the n most frequent entries. n <= 0 returns all of them.
func Top(wordCounts map[string]int, n int) []WordCount {
	ss := Sorted(wordCounts)
	if n > 0 && len(ss) > n {
		ss = ss[:n]
	}
	return ss
}

// PrintRanked writes entries as a numbered list, one "rank. word: count" per line.
func PrintRanked(w io.Writer, words []WordCount) {
	for i, wc := range words {
		fmt.Fprintf(w, "%2d. %s: %d\n", i+1, wc.Word, wc.Count)
	}
}
