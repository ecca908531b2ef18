package services

import (
	"context"
	"time"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// DefaultMaxRetries is the default number of retries per chunk after a
// failed synthesis call.
const DefaultMaxRetries = 2

// retryBackoff is the base delay between synthesis retries.
const retryBackoff = 500 * time.Millisecond

// Orchestrator drives a synthesiser over a chapter's chunks strictly in
// order. Ordering matters: some synthesisers carry conversational state
// across consecutive calls for voice consistency, so chunks of one
// chapter are never issued concurrently or out of order.
type Orchestrator struct {
	maxRetries int
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxRetries sets the per-chunk retry bound.
func WithMaxRetries(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// NewOrchestrator creates a synthesis orchestrator.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SynthesizeChapter produces one audio segment per chunk, in chunk
// order, calling the synthesiser once per chunk sequentially. On
// failure a chunk is retried with the same input up to the configured
// bound; an unrecoverable chunk aborts the chapter with a
// SynthesisError carrying the chapter and chunk index.
func (o *Orchestrator) SynthesizeChapter(
	ctx context.Context,
	synth driven.Synthesizer,
	chunks []domain.Chunk,
	voice domain.Voice,
	emit func(driving.ProgressEvent),
) ([]domain.AudioSegment, error) {
	segments := make([]domain.AudioSegment, 0, len(chunks))

	for _, chunk := range chunks {
		if emit != nil {
			emit(driving.ProgressEvent{
				Stage:      driving.StageSynthesize,
				Chapter:    chunk.Chapter,
				Chunk:      chunk.Index,
				ChunkCount: len(chunks),
			})
		}

		seg, err := o.synthesizeChunk(ctx, synth, chunk, voice)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}

	return segments, nil
}

// synthesizeChunk performs one synthesis call with bounded retries.
func (o *Orchestrator) synthesizeChunk(
	ctx context.Context,
	synth driven.Synthesizer,
	chunk domain.Chunk,
	voice domain.Voice,
) (domain.AudioSegment, error) {
	var lastErr error

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying chapter %d chunk %d (attempt %d/%d): %v",
				chunk.Chapter, chunk.Index, attempt, o.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return domain.AudioSegment{}, &domain.SynthesisError{
					Chapter: chunk.Chapter, Chunk: chunk.Index, Err: ctx.Err(),
				}
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		seg, err := synth.Synthesize(ctx, chunk.Text, voice)
		if err == nil {
			logger.Debug("Synthesised chapter %d chunk %d: %.1fs at %d Hz",
				chunk.Chapter, chunk.Index, seg.Duration(), seg.SampleRate)
			return seg, nil
		}
		lastErr = err

		// Cancellation is not retryable.
		if ctx.Err() != nil {
			break
		}
	}

	return domain.AudioSegment{}, &domain.SynthesisError{
		Chapter: chunk.Chapter, Chunk: chunk.Index, Err: lastErr,
	}
}
