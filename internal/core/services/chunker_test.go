package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// joinChunks reassembles chunk texts the way the round-trip property
// prescribes: in order, with single-space joins.
func joinChunks(chunks []domain.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}

func TestChunker_Split_InvalidBudget(t *testing.T) {
	for _, budget := range []int{0, -1} {
		_, err := NewChunker(WithChunkSize(budget)).Split(domain.Chapter{Text: "Some text."})

		require.Error(t, err)
		var chunkingErr *domain.ChunkingError
		assert.ErrorAs(t, err, &chunkingErr)
	}
}

func TestChunker_Split_EmptyText(t *testing.T) {
	_, err := NewChunker().Split(domain.Chapter{Index: 3, Text: "   "})

	require.Error(t, err)
	var chunkingErr *domain.ChunkingError
	assert.ErrorAs(t, err, &chunkingErr)
}

func TestChunker_Split_SingleSentence(t *testing.T) {
	chunks, err := NewChunker().Split(domain.Chapter{Index: 2, Text: "One short sentence."})

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One short sentence.", chunks[0].Text)
	assert.Equal(t, 2, chunks[0].Chapter)
	assert.Equal(t, 0, chunks[0].Index)
	assert.False(t, chunks[0].Continued)
}

func TestChunker_Split_GroupsSentences(t *testing.T) {
	text := "First sentence here. Second sentence here. Third sentence here."

	chunks, err := NewChunker(WithChunkSize(45)).Split(domain.Chapter{Text: text})

	require.NoError(t, err)
	// Two 20-byte sentences join to 41 bytes; the third starts a new chunk.
	require.Len(t, chunks, 2)
	assert.Equal(t, "First sentence here. Second sentence here.", chunks[0].Text)
	assert.Equal(t, "Third sentence here.", chunks[1].Text)
}

func TestChunker_Split_QuestionExclamationAndCJKTerminals(t *testing.T) {
	text := "Is this a sentence? Indeed it is! 这是一句话。 And one more."

	chunks, err := NewChunker(WithChunkSize(25)).Split(domain.Chapter{Text: text})

	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, "Is this a sentence?", chunks[0].Text)
	assert.Equal(t, "Indeed it is!", chunks[1].Text)
	assert.Equal(t, "这是一句话。", chunks[2].Text)
	assert.Equal(t, "And one more.", chunks[3].Text)
}

func TestChunker_Split_ClauseFallback(t *testing.T) {
	// A single 120-byte sentence with clause boundaries, budget 60.
	text := "The clauses of this long sentence keep arriving, one after the other, until the reader finally reaches its quiet end."

	chunks, err := NewChunker(WithChunkSize(60)).Split(domain.Chapter{Text: text})

	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 60)
		assert.False(t, c.Continued)
	}
	assert.Equal(t, text, joinChunks(chunks))
}

func TestChunker_Split_HardSplitFallback(t *testing.T) {
	// Scenario: a single sentence far over budget with no clause
	// boundaries forces the whitespace hard-split.
	words := make([]string, 0, 1200)
	for len(words) < 1200 {
		words = append(words, "word")
	}
	sentence := strings.Join(words, " ") + "." // ~6000 bytes, no , ; :

	chunks, err := NewChunker(WithChunkSize(400)).Split(domain.Chapter{Text: sentence})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(chunks), 15)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Text)
		assert.LessOrEqual(t, len(c.Text), 400)
	}
	// Pieces after the first are continuations of the split sentence.
	assert.False(t, chunks[0].Continued)
	for _, c := range chunks[1:] {
		assert.True(t, c.Continued)
	}
	// The concatenation reconstructs the original sentence exactly.
	assert.Equal(t, sentence, joinChunks(chunks))
}

func TestChunker_Split_HardSplitNoWhitespace(t *testing.T) {
	// No whitespace at all: truncation at the limit is the last resort.
	text := strings.Repeat("x", 1000)

	chunks, err := NewChunker(WithChunkSize(400)).Split(domain.Chapter{Text: text})

	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 400)
	}
	assert.Equal(t, text, strings.Join([]string{chunks[0].Text, chunks[1].Text, chunks[2].Text}, ""))
}

func TestChunker_Split_RoundTrip(t *testing.T) {
	texts := []string{
		"One short sentence.",
		"Two sentences. Here is the second one!",
		"A question? An answer. An exclamation! And a trailing fragment without a terminal",
		strings.Repeat("A steady sentence of medium length marches on. ", 40),
		"“Quoted speech ends here.” Then the narration continues, as it tends to do.",
	}

	for _, text := range texts {
		normalised := NormalizeText(text)
		chunker := NewChunker(WithChunkSize(64))

		chunks, err := chunker.Split(domain.Chapter{Text: normalised})

		require.NoError(t, err)
		assert.Equal(t, normalised, joinChunks(chunks), "round-trip failed for %q", text)
		for _, c := range chunks {
			assert.NotEmpty(t, c.Text)
		}
	}
}

func TestChunker_Split_Deterministic(t *testing.T) {
	text := strings.Repeat("Determinism matters for reproducible audio output. ", 30)
	chunker := NewChunker(WithChunkSize(200))

	first, err := chunker.Split(domain.Chapter{Text: NormalizeText(text)})
	require.NoError(t, err)
	second, err := chunker.Split(domain.Chapter{Text: NormalizeText(text)})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunker_Split_IndicesSequential(t *testing.T) {
	text := strings.Repeat("Sentences pile up one after another in this chapter. ", 20)

	chunks, err := NewChunker(WithChunkSize(120)).Split(domain.Chapter{Index: 7, Text: NormalizeText(text)})

	require.NoError(t, err)
	for i, c := range chunks {
		assert.Equal(t, 7, c.Chapter)
		assert.Equal(t, i, c.Index)
	}
}
