package models

// CountWordsMethod is the net/rpc service method every worker exposes.
const CountWordsMethod = "WordCount.CountWords"

// CountArgs is the sole payload of a counting request. It carries no chunk
// index: pairing is implied by which endpoint was called.
type CountArgs struct {
	Chunk string
}

// CountReply carries the word counts for the requested chunk only.
type CountReply struct {
	Counts map[string]int
}
