package service

import "strings"

// Default chunking parameters, measured in words.
const (
	DefaultChunkSize    = 200
	DefaultChunkOverlap = 40
)

// Chunker splits document text into overlapping word windows sized for
// embedding. Overlap preserves context across chunk boundaries so a query
// matching text near a boundary still retrieves a coherent chunk.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker with the given window size and overlap.
// Non-positive size falls back to the default; overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}

	if overlap < 0 {
		overlap = 0
	}

	if overlap >= size {
		overlap = size / 5
	}

	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into overlapping chunks. Whitespace runs collapse to
// single spaces. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if len(words) <= c.size {
		return []string{strings.Join(words, " ")}
	}

	step := c.size - c.overlap

	var chunks []string

	for start := 0; start < len(words); start += step {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))

		if end == len(words) {
			break
		}
	}

	return chunks
}
