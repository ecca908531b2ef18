package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
)

func chunksFor(chapter int, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{Chapter: chapter, Index: i, Text: text}
	}
	return chunks
}

func TestOrchestrator_SynthesizeChapter_InOrder(t *testing.T) {
	synth := newStubSynth()
	orch := NewOrchestrator()
	chunks := chunksFor(0, "First chunk.", "Second chunk.", "Third chunk.")

	segments, err := orch.SynthesizeChapter(context.Background(), synth, chunks, domain.Voice{}, nil)

	require.NoError(t, err)
	require.Len(t, segments, 3)
	// One call per chunk, issued strictly in chunk order.
	assert.Equal(t, []string{"First chunk.", "Second chunk.", "Third chunk."}, synth.callTexts())
	for i, seg := range segments {
		assert.Equal(t, len(chunks[i].Text)*10, len(seg.Samples))
		assert.Equal(t, stubSampleRate, seg.SampleRate)
	}
}

func TestOrchestrator_SynthesizeChapter_EmitsProgress(t *testing.T) {
	synth := newStubSynth()
	orch := NewOrchestrator()
	chunks := chunksFor(4, "One.", "Two.")

	var events []driving.ProgressEvent
	_, err := orch.SynthesizeChapter(context.Background(), synth, chunks, domain.Voice{},
		func(ev driving.ProgressEvent) { events = append(events, ev) })

	require.NoError(t, err)
	require.Len(t, events, 2)
	for i, ev := range events {
		assert.Equal(t, driving.StageSynthesize, ev.Stage)
		assert.Equal(t, 4, ev.Chapter)
		assert.Equal(t, i, ev.Chunk)
		assert.Equal(t, 2, ev.ChunkCount)
	}
}

func TestOrchestrator_SynthesizeChapter_RetriesTransientFailure(t *testing.T) {
	synth := newStubSynth()
	synth.failFirst = 1
	orch := NewOrchestrator(WithMaxRetries(2))

	segments, err := orch.SynthesizeChapter(context.Background(), synth,
		chunksFor(0, "Flaky chunk."), domain.Voice{}, nil)

	require.NoError(t, err)
	require.Len(t, segments, 1)
	// First call failed, the retry repeated the same input.
	assert.Equal(t, []string{"Flaky chunk.", "Flaky chunk."}, synth.callTexts())
}

func TestOrchestrator_SynthesizeChapter_ExhaustedRetries(t *testing.T) {
	synth := newStubSynth()
	synth.failOn = "cursed"
	orch := NewOrchestrator(WithMaxRetries(0))
	chunks := chunksFor(3, "A fine chunk.", "A cursed chunk.", "Never reached.")

	segments, err := orch.SynthesizeChapter(context.Background(), synth, chunks, domain.Voice{}, nil)

	require.Error(t, err)
	assert.Nil(t, segments)
	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, 3, synthErr.Chapter)
	assert.Equal(t, 1, synthErr.Chunk)
	// The chapter aborted at the failing chunk.
	assert.Equal(t, []string{"A fine chunk.", "A cursed chunk."}, synth.callTexts())
}

func TestOrchestrator_SynthesizeChapter_CancelledContext(t *testing.T) {
	synth := newStubSynth()
	synth.failOn = "chunk" // fail every call so the retry path is taken
	orch := NewOrchestrator(WithMaxRetries(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.SynthesizeChapter(ctx, synth, chunksFor(0, "A chunk."), domain.Voice{}, nil)

	require.Error(t, err)
	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	// Cancellation cut the retry loop short.
	assert.LessOrEqual(t, len(synth.callTexts()), 1)
}

func TestSynthPool_Run_SingleDevice(t *testing.T) {
	synth := newStubSynth()
	pool := NewSynthPool(NewOrchestrator(), synth)
	jobs := []chapterJob{
		{chapter: domain.Chapter{Index: 0}, chunks: chunksFor(0, "Chapter zero.")},
		{chapter: domain.Chapter{Index: 1}, chunks: chunksFor(1, "Chapter one, part one.", "Chapter one, part two.")},
	}

	var mu sync.Mutex
	got := make(map[int]int)
	err := pool.Run(context.Background(), jobs, domain.Voice{}, nil, func(res chapterResult) error {
		mu.Lock()
		defer mu.Unlock()
		got[res.chapter] = len(res.segments)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 1, 1: 2}, got)
}

func TestSynthPool_Run_MultiDevice(t *testing.T) {
	a, b := newStubSynth(), newStubSynth()
	pool := NewSynthPool(NewOrchestrator(), a, b)

	jobs := make([]chapterJob, 6)
	for i := range jobs {
		jobs[i] = chapterJob{
			chapter: domain.Chapter{Index: i},
			chunks:  chunksFor(i, "Some chapter text."),
		}
	}

	var mu sync.Mutex
	var done []int
	err := pool.Run(context.Background(), jobs, domain.Voice{}, nil, func(res chapterResult) error {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, res.chapter)
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, done, 6)
	// Both devices took a share of the work.
	assert.Equal(t, 6, len(a.callTexts())+len(b.callTexts()))
}

func TestSynthPool_Run_FailureStopsRemainingWork(t *testing.T) {
	synth := newStubSynth()
	synth.failOn = "doomed"
	pool := NewSynthPool(NewOrchestrator(WithMaxRetries(0)), synth)

	jobs := []chapterJob{
		{chapter: domain.Chapter{Index: 0}, chunks: chunksFor(0, "A good chapter.")},
		{chapter: domain.Chapter{Index: 1}, chunks: chunksFor(1, "The doomed chapter.")},
		{chapter: domain.Chapter{Index: 2}, chunks: chunksFor(2, "Never started.")},
	}

	var mu sync.Mutex
	var done []int
	err := pool.Run(context.Background(), jobs, domain.Voice{}, nil, func(res chapterResult) error {
		mu.Lock()
		defer mu.Unlock()
		done = append(done, res.chapter)
		return nil
	})

	require.Error(t, err)
	var synthErr *domain.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, 1, synthErr.Chapter)
	// The chapter that finished before the failure is kept.
	assert.Equal(t, []int{0}, done)
}

func TestSynthPool_Run_NoDevices(t *testing.T) {
	pool := NewSynthPool(NewOrchestrator())

	err := pool.Run(context.Background(), nil, domain.Voice{}, nil, func(chapterResult) error { return nil })

	require.Error(t, err)
	_, ok := domain.IsSynthesis(err)
	assert.True(t, ok)
}
