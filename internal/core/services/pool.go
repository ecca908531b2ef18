package services

import (
	"context"
	"sync"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// chapterJob is one chapter's worth of synthesis work.
type chapterJob struct {
	chapter domain.Chapter
	chunks  []domain.Chunk
}

// chapterResult is a finished chapter's chunk segments.
type chapterResult struct {
	chapter  int
	segments []domain.AudioSegment
}

// SynthPool dispatches chapter jobs to device-bound synthesisers.
// Each device runs one worker goroutine that processes its chapters'
// chunks strictly sequentially; the single-worker-per-device queue is
// the explicit form of the in-order synthesis constraint, and a
// single-device deployment degenerates to fully sequential processing.
type SynthPool struct {
	synths []driven.Synthesizer
	orch   *Orchestrator
}

// NewSynthPool creates a pool over one synthesiser per device.
// At least one synthesiser is required.
func NewSynthPool(orch *Orchestrator, synths ...driven.Synthesizer) *SynthPool {
	return &SynthPool{synths: synths, orch: orch}
}

// Run synthesises every job and delivers each finished chapter to
// collect, which is invoked from worker goroutines and must be safe
// for concurrent use. On the first chapter failure all remaining work
// is cancelled and the failure is returned; sibling chapters already
// finished are unaffected.
func (p *SynthPool) Run(
	ctx context.Context,
	jobs []chapterJob,
	voice domain.Voice,
	emit func(driving.ProgressEvent),
	collect func(chapterResult) error,
) error {
	if len(p.synths) == 0 {
		return &domain.SynthesisError{Err: domain.ErrInvalidInput}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan chapterJob)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	for device, synth := range p.synths {
		wg.Add(1)
		go func(device int, synth driven.Synthesizer) {
			defer wg.Done()
			for job := range queue {
				logger.Debug("Device %d: chapter %d (%d chunks)", device, job.chapter.Index, len(job.chunks))
				segments, err := p.orch.SynthesizeChapter(ctx, synth, job.chunks, voice, emit)
				if err != nil {
					fail(err)
					return
				}
				if err := collect(chapterResult{chapter: job.chapter.Index, segments: segments}); err != nil {
					fail(err)
					return
				}
			}
		}(device, synth)
	}

	for _, job := range jobs {
		select {
		case queue <- job:
		case <-ctx.Done():
			// A worker failed; stop feeding.
			goto drain
		}
	}
drain:
	close(queue)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
