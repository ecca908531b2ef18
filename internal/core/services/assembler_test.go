package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

func segmentOf(rate int, samples ...float32) domain.AudioSegment {
	return domain.AudioSegment{Samples: samples, SampleRate: rate}
}

func TestAssembler_Assemble_PreservesOrder(t *testing.T) {
	asm := NewAssembler()

	out, err := asm.Assemble(0, []domain.AudioSegment{
		segmentOf(24000, 1, 2),
		segmentOf(24000, 3),
		segmentOf(24000, 4, 5, 6),
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.Samples)
	assert.Equal(t, 24000, out.SampleRate)
}

func TestAssembler_Assemble_RateMismatch(t *testing.T) {
	asm := NewAssembler()

	_, err := asm.Assemble(5, []domain.AudioSegment{
		segmentOf(24000, 1),
		segmentOf(44100, 2),
	})

	require.Error(t, err)
	var formatErr *domain.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 5, formatErr.Chapter)
	assert.Equal(t, 24000, formatErr.Want)
	assert.Equal(t, 44100, formatErr.Got)
}

func TestAssembler_Assemble_NoSegments(t *testing.T) {
	_, err := NewAssembler().Assemble(0, nil)

	require.Error(t, err)
	var formatErr *domain.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestAssembler_Assemble_ChunkGap(t *testing.T) {
	// 0.5s gap at 10 Hz is 5 silent samples, between segments only.
	asm := NewAssembler(WithChunkGap(0.5))

	out, err := asm.Assemble(0, []domain.AudioSegment{
		segmentOf(10, 1, 1),
		segmentOf(10, 2, 2),
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 1, 0, 0, 0, 0, 0, 2, 2}, out.Samples)
}

func TestComputeMarks_Contiguous(t *testing.T) {
	chapters := []domain.Chapter{
		{Index: 0, Title: "Chapter 1"},
		{Index: 1, Title: "Chapter 2"},
		{Index: 2, Title: "Chapter 3"},
	}
	segments := []domain.AudioSegment{
		segmentOf(24000, make([]float32, 24000)...),     // 1.0s
		segmentOf(24000, make([]float32, 60000)...),     // 2.5s
		segmentOf(24000, make([]float32, 12000)...),     // 0.5s
	}

	marks := ComputeMarks(chapters, segments)

	require.Len(t, marks, 3)
	assert.Equal(t, 0.0, marks[0].Start)
	for i := 1; i < len(marks); i++ {
		assert.Equal(t, marks[i-1].End, marks[i].Start, "mark %d not contiguous", i)
	}
	assert.Equal(t, "Chapter 2", marks[1].Title)
	assert.InDelta(t, 1.0, marks[0].End-marks[0].Start, 1e-9)
	assert.InDelta(t, 2.5, marks[1].End-marks[1].Start, 1e-9)

	// The last mark's end accounts for the whole book.
	var total float64
	for _, seg := range segments {
		total += seg.Duration()
	}
	assert.True(t, math.Abs(marks[len(marks)-1].End-total) < 1e-9)
}

func TestConcatSegments_JoinsInOrder(t *testing.T) {
	out, err := ConcatSegments([]domain.AudioSegment{
		segmentOf(24000, 1, 2),
		segmentOf(24000, 3, 4),
	})

	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Samples)
}

func TestConcatSegments_CrossChapterMismatch(t *testing.T) {
	_, err := ConcatSegments([]domain.AudioSegment{
		segmentOf(24000, 1),
		segmentOf(22050, 2),
	})

	require.Error(t, err)
	var formatErr *domain.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 1, formatErr.Chapter)
}
