// Package mapreduce holds the worker-side tally and the coordinator-side merge.
package mapreduce

import "strings"

// Map tallies whitespace-separated words in a single chunk. Words are counted
// as-is; normalization happens before dispatch, never on the worker.
func Map(content string) map[string]int {
	counts := make(map[string]int)
	for _, word := range strings.Fields(content) {
		counts[word]++
	}
	return counts
}

// Reduce folds partial frequency maps into one, summing counts for shared words.
// The fold is associative and commutative, so input order does not matter.
// It must run on a single goroutine once every partial map is final.
func Reduce(intermediate []map[string]int) map[string]int {
	finalResults := make(map[string]int)

	for _, counts := range intermediate {
		for word, count := range counts {
			finalResults[word] += count
		}
	}

	return finalResults
}

// Total returns the sum of all counts.
func Total(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}
