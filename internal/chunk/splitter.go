// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk converts filtered Articles into retrievable Documents,
// cutting long body text into overlapping windows.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Defaults for body chunking, in characters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word,
// and finally a hard cut between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into ordered chunks.
type Splitter interface {
	Split(text string) []string
}

// RecursiveSplitter splits on the coarsest separator present, merges the
// pieces into windows of at most ChunkSize characters with ChunkOverlap
// characters carried between neighbours, and recurses into any piece that
// is still too long using the next separator.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// NewRecursiveSplitter returns a splitter with DefaultSeparators. Invalid
// sizes fall back to the defaults; an overlap not smaller than the size is
// reduced to a fifth of it.
func NewRecursiveSplitter(size, overlap int) *RecursiveSplitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		overlap = size / 5
	}
	return &RecursiveSplitter{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Separators:   DefaultSeparators,
	}
}

// Split implements Splitter. Chunks are whitespace-trimmed and never empty.
func (s *RecursiveSplitter) Split(text string) []string {
	return s.split(text, s.Separators)
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var chunks, pending []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge packs consecutive pieces into windows. When a window is emitted,
// pieces are dropped from its front until at most ChunkOverlap characters
// remain to seed the next window.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var out, window []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.ChunkSize && len(window) > 0 {
			if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
				out = append(out, doc)
			}
			for len(window) > 0 && (total > s.ChunkOverlap || total+n > s.ChunkSize) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(window, "")); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeep splits text after each occurrence of sep, keeping sep on the
// end of the preceding piece. An empty sep splits between characters.
func splitKeep(text, sep string) []string {
	var out []string
	for _, p := range strings.SplitAfter(text, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
