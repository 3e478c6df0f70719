// Package chunker splits long text into overlapping, sentence-aligned
// segments for retrieval.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Splitter splits text into overlapping chunks, preferring to cut at
// sentence boundaries rather than mid-word.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Overlap must leave room for the cursor to advance.
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// Split returns the ordered chunk texts for the input. Text that fits in a
// single chunk is returned as one element. Every chunk is trimmed of
// leading and trailing whitespace; the union of chunk spans covers the
// whole input.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	estimated := len(text)/(s.chunkSize-s.overlap) + 1
	chunks := make([]string, 0, estimated)

	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			// Cut at the nearest sentence boundary after the window
			// midpoint instead of mid-word.
			end = s.cutPoint(text, start, end)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}

		next := end - s.overlap
		// The cursor must strictly advance each iteration.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// cutPoint searches backward from end for a sentence terminator located
// after the window midpoint: '.', then '\n', then space, in that priority.
// Falls back to the raw window edge when no terminator is found.
func (s *Splitter) cutPoint(text string, start, end int) int {
	mid := start + (end-start)/2

	for _, term := range []byte{'.', '\n', ' '} {
		for i := end - 1; i > mid; i-- {
			if text[i] == term {
				return i + 1
			}
		}
	}
	return end
}
