package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// DefaultChunkSize is the default chunk size budget in bytes.
const DefaultChunkSize = 500

// Sentence and clause boundaries: a terminal mark, an optional closing
// quote, then whitespace. The whitespace is captured so the split can
// keep the terminator with the preceding text.
var (
	sentenceBoundary = regexp.MustCompile(`[.!?。！？]["'”’]?(\s+)`)
	clauseBoundary   = regexp.MustCompile(`[,;:，；：]["'”’]?(\s+)`)
)

// Chunker splits one chapter's text into an ordered sequence of
// bounded-length chunks at sentence boundaries. Oversized sentences
// fall back to clause boundaries, then to a whitespace hard-split.
//
// Guarantee: the chunk texts, concatenated in order with single-space
// joins, equal the chapter text (which is already whitespace-normalised
// by the extractor). Identical input always yields identical chunks.
type Chunker struct {
	maxChars int
}

// ChunkerOption configures the chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the chunk size budget in bytes.
func WithChunkSize(n int) ChunkerOption {
	return func(c *Chunker) {
		c.maxChars = n
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{maxChars: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Split produces the ordered chunk sequence for a chapter.
// A non-positive size budget or empty chapter text is a ChunkingError.
func (c *Chunker) Split(ch domain.Chapter) ([]domain.Chunk, error) {
	if c.maxChars <= 0 {
		return nil, &domain.ChunkingError{
			Err: fmt.Errorf("%w: chunk size budget %d", domain.ErrInvalidInput, c.maxChars),
		}
	}
	text := strings.TrimSpace(ch.Text)
	if text == "" {
		return nil, &domain.ChunkingError{
			Err: fmt.Errorf("%w: chapter %d has no text", domain.ErrInvalidInput, ch.Index),
		}
	}

	b := &chunkBuilder{chapter: ch.Index, max: c.maxChars}

	for _, sent := range splitAt(sentenceBoundary, text) {
		if len(sent) <= c.maxChars {
			b.add(sent)
			continue
		}

		// Oversized sentence: break on clauses first.
		for _, clause := range splitAt(clauseBoundary, sent) {
			if len(clause) <= c.maxChars {
				b.add(clause)
				continue
			}

			// Still oversized: hard-split at whitespace before the limit.
			b.flush()
			for i, part := range hardSplit(clause, c.maxChars) {
				b.emit(part, i > 0)
			}
		}
	}
	b.flush()

	return b.chunks, nil
}

// splitAt splits text at the boundary pattern, keeping the terminator
// with the preceding piece and consuming the boundary whitespace.
func splitAt(boundary *regexp.Regexp, text string) []string {
	locs := boundary.FindAllStringSubmatchIndex(text, -1)
	pieces := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		// loc[2]:loc[3] is the captured whitespace group.
		if piece := strings.TrimSpace(text[start:loc[2]]); piece != "" {
			pieces = append(pieces, piece)
		}
		start = loc[3]
	}
	if piece := strings.TrimSpace(text[start:]); piece != "" {
		pieces = append(pieces, piece)
	}
	return pieces
}

// hardSplit breaks s into pieces of at most max bytes, cutting at the
// nearest whitespace before the limit. Only when a piece contains no
// whitespace at all is it truncated mid-word, at a rune boundary.
func hardSplit(s string, max int) []string {
	var parts []string
	for len(s) > max {
		window := s[:max+1]
		cut := strings.LastIndexByte(window, ' ')
		if cut <= 0 {
			cut = runeBoundaryBefore(s, max)
			parts = append(parts, s[:cut])
			s = s[cut:]
			continue
		}
		parts = append(parts, s[:cut])
		s = s[cut+1:] // skip the split-point space; joins restore it
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}

// runeBoundaryBefore returns the largest byte offset <= max that does
// not cut a UTF-8 sequence.
func runeBoundaryBefore(s string, max int) int {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max // malformed input, cut anyway
	}
	return cut
}

// chunkBuilder accumulates pieces greedily into chunks no longer than
// max bytes when joined with single spaces.
type chunkBuilder struct {
	chapter int
	max     int
	pending []string
	length  int // joined length of pending
	chunks  []domain.Chunk
}

// add appends a piece (guaranteed <= max bytes), closing the current
// chunk first when the piece would not fit.
func (b *chunkBuilder) add(piece string) {
	if b.length > 0 && b.length+1+len(piece) > b.max {
		b.flush()
	}
	if b.length > 0 {
		b.length++ // join space
	}
	b.pending = append(b.pending, piece)
	b.length += len(piece)
}

// flush closes the current chunk, if any.
func (b *chunkBuilder) flush() {
	if len(b.pending) == 0 {
		return
	}
	b.emit(strings.Join(b.pending, " "), false)
	b.pending = b.pending[:0]
	b.length = 0
}

// emit appends a finished chunk.
func (b *chunkBuilder) emit(text string, continued bool) {
	b.chunks = append(b.chunks, domain.Chunk{
		Chapter:   b.chapter,
		Index:     len(b.chunks),
		Text:      text,
		Continued: continued,
	})
}
