package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// DefaultBitrate is the default AAC encoding bitrate.
const DefaultBitrate = "64k"

// Ensure Pipeline implements the interface.
var _ driving.Converter = (*Pipeline)(nil)

// PipelineConfig carries the collaborators and scalar options for the
// conversion pipeline. Options are validated once at pipeline start.
type PipelineConfig struct {
	// Synthesizers holds one synthesiser per device. At least one is
	// required; each gets its own internally sequential chapter queue.
	Synthesizers []driven.Synthesizer

	// Encoder produces the final chaptered container.
	Encoder driven.Encoder

	// Runs is the optional resume ledger. Resume requires Segments too.
	Runs driven.RunStore

	// Segments is the optional intermediate chapter audio store.
	Segments driven.SegmentStore

	// ChunkSize is the chunk size budget in bytes.
	ChunkSize int

	// ChunkGap is the inter-chunk silence gap in seconds.
	ChunkGap float64

	// MaxRetries is the per-chunk synthesis retry bound.
	MaxRetries int

	// MinChapterChars is the front-matter length threshold.
	MinChapterChars int

	// Bitrate is the target encoding bitrate.
	Bitrate string

	// KeepIntermediates retains per-chapter audio files after a
	// successful run.
	KeepIntermediates bool
}

// Validate checks the scalar options. A non-positive chunk size budget
// is a ChunkingError; missing collaborators are invalid input.
func (c *PipelineConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return &domain.ChunkingError{
			Err: fmt.Errorf("%w: chunk size budget %d", domain.ErrInvalidInput, c.ChunkSize),
		}
	}
	if c.ChunkGap < 0 {
		return fmt.Errorf("%w: negative chunk gap", domain.ErrInvalidInput)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: negative retry bound", domain.ErrInvalidInput)
	}
	if len(c.Synthesizers) == 0 {
		return fmt.Errorf("%w: no synthesiser configured", domain.ErrInvalidInput)
	}
	if c.Encoder == nil {
		return fmt.Errorf("%w: no encoder configured", domain.ErrInvalidInput)
	}
	return nil
}

// Pipeline runs the chaptered audio assembly end to end: extract,
// chunk, synthesise, assemble, package. It either produces one valid
// output file or fails leaving no partial file at the output path.
type Pipeline struct {
	cfg       PipelineConfig
	extractor *Extractor
	chunker   *Chunker
	assembler *Assembler
	pool      *SynthPool
}

// NewPipeline creates the pipeline from a validated configuration.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Bitrate == "" {
		cfg.Bitrate = DefaultBitrate
	}

	orch := NewOrchestrator(WithMaxRetries(cfg.MaxRetries))
	return &Pipeline{
		cfg:       cfg,
		extractor: NewExtractor(WithMinChapterChars(cfg.MinChapterChars)),
		chunker:   NewChunker(WithChunkSize(cfg.ChunkSize)),
		assembler: NewAssembler(WithChunkGap(cfg.ChunkGap)),
		pool:      NewSynthPool(orch, cfg.Synthesizers...),
	}, nil
}

// Convert runs one conversion.
func (p *Pipeline) Convert(ctx context.Context, req driving.ConvertRequest) (*driving.ConvertResult, error) {
	emit := req.Emit
	if emit == nil {
		emit = func(driving.ProgressEvent) {}
	}

	// 1. EXTRACT
	emit(driving.ProgressEvent{Stage: driving.StageExtract, Message: "extracting chapters"})
	book, err := p.extractor.Extract(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	if req.TitleOverride != "" {
		book.Title = req.TitleOverride
	}
	if req.AuthorOverride != "" {
		book.Author = req.AuthorOverride
	}
	emit(driving.ProgressEvent{Stage: driving.StageExtract, ChapterCount: len(book.Chapters)})

	// 2. CHUNK (fail fast before any synthesis)
	jobs := make([]chapterJob, 0, len(book.Chapters))
	for _, ch := range book.Chapters {
		chunks, err := p.chunker.Split(ch)
		if err != nil {
			return nil, err
		}
		logger.Debug("Chapter %d (%q): %d chunk(s)", ch.Index, ch.Title, len(chunks))
		jobs = append(jobs, chapterJob{chapter: ch, chunks: chunks})
	}

	// 3. RESUME
	run, done, err := p.prepareRun(ctx, req.OutputPath, book)
	if err != nil {
		return nil, err
	}
	resumed := len(done)
	if resumed > 0 {
		logger.Info("Resuming run %s: %d chapter(s) already synthesised", run.ID, resumed)
	}

	// 4. SYNTHESISE + ASSEMBLE pending chapters
	pending := make([]chapterJob, 0, len(jobs))
	for _, job := range jobs {
		if !done[job.chapter.Index] {
			pending = append(pending, job)
		}
	}

	var mu sync.Mutex
	assembled := make(map[int]domain.AudioSegment, len(pending))

	emitWithCount := func(ev driving.ProgressEvent) {
		ev.ChapterCount = len(book.Chapters)
		emit(ev)
	}

	collect := func(res chapterResult) error {
		emitWithCount(driving.ProgressEvent{Stage: driving.StageAssemble, Chapter: res.chapter})
		seg, err := p.assembler.Assemble(res.chapter, res.segments)
		if err != nil {
			return err
		}
		if err := p.persistChapter(ctx, run, res.chapter, seg); err != nil {
			return err
		}
		mu.Lock()
		assembled[res.chapter] = seg
		mu.Unlock()
		return nil
	}

	if err := p.pool.Run(ctx, pending, req.Voice, emitWithCount, collect); err != nil {
		return nil, err
	}

	// 5. PACKAGE
	emit(driving.ProgressEvent{Stage: driving.StagePackage, ChapterCount: len(book.Chapters), Message: "encoding"})
	bookAudio, err := p.packageBook(ctx, book, assembled, done)
	if err != nil {
		return nil, err
	}

	outPath, err := p.cfg.Encoder.Encode(ctx, driven.EncodeRequest{
		Audio:      *bookAudio,
		Bitrate:    p.cfg.Bitrate,
		Title:      book.Title,
		Author:     book.Author,
		OutputPath: req.OutputPath,
	})
	if err != nil {
		return nil, err
	}

	// 6. FINISH: ledger + intermediates
	if p.cfg.Runs != nil && run != nil {
		if err := p.cfg.Runs.CompleteRun(ctx, run.ID); err != nil {
			logger.Warn("Could not mark run %s complete: %v", run.ID, err)
		}
	}
	if p.cfg.Segments != nil && !p.cfg.KeepIntermediates {
		if err := p.cfg.Segments.RemoveAll(); err != nil {
			logger.Warn("Could not remove intermediate files: %v", err)
		}
	} else if p.cfg.Segments != nil {
		logger.Info("Intermediate chapter audio retained in %s", p.cfg.Segments.Dir())
	}

	return &driving.ConvertResult{
		OutputPath: outPath,
		Chapters:   len(book.Chapters),
		Duration:   bookAudio.Audio.Duration(),
		Resumed:    resumed,
	}, nil
}

// prepareRun loads or creates the resume ledger entry for this output
// path and returns the set of chapters already synthesised. Without a
// run store every chapter is pending.
func (p *Pipeline) prepareRun(ctx context.Context, outputPath string, book *domain.Book) (*domain.Run, map[int]bool, error) {
	done := make(map[int]bool)
	if p.cfg.Runs == nil || p.cfg.Segments == nil {
		return nil, done, nil
	}

	run, err := p.cfg.Runs.FindRun(ctx, outputPath)
	switch {
	case err == nil:
		// A completed run, or one for a different book, starts over.
		if run.CompletedAt != nil || run.BookTitle != book.Title || run.ChapterCount != len(book.Chapters) {
			logger.Debug("Discarding stale run %s for %s", run.ID, outputPath)
			if err := p.cfg.Runs.DeleteRun(ctx, run.ID); err != nil {
				return nil, nil, fmt.Errorf("delete stale run: %w", err)
			}
			run = nil
		}
	case errors.Is(err, domain.ErrNotFound):
		run = nil
	default:
		return nil, nil, fmt.Errorf("find run: %w", err)
	}

	if run == nil {
		fresh := domain.Run{
			ID:           uuid.New().String(),
			OutputPath:   outputPath,
			BookTitle:    book.Title,
			ChapterCount: len(book.Chapters),
			CreatedAt:    time.Now(),
		}
		if err := p.cfg.Runs.CreateRun(ctx, fresh); err != nil {
			return nil, nil, fmt.Errorf("create run: %w", err)
		}
		return &fresh, done, nil
	}

	statuses, err := p.cfg.Runs.ChapterStatuses(ctx, run.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("chapter statuses: %w", err)
	}
	for _, st := range statuses {
		// Trust the ledger only when the audio is still on disk.
		if _, ok := p.cfg.Segments.Exists(st.Chapter); ok {
			done[st.Chapter] = true
		}
	}
	return run, done, nil
}

// persistChapter saves a finished chapter to the segment store and the
// resume ledger, when configured.
func (p *Pipeline) persistChapter(ctx context.Context, run *domain.Run, chapter int, seg domain.AudioSegment) error {
	if p.cfg.Segments == nil {
		return nil
	}
	path, err := p.cfg.Segments.Save(ctx, chapter, seg)
	if err != nil {
		return fmt.Errorf("save chapter %d audio: %w", chapter, err)
	}
	if p.cfg.Runs == nil || run == nil {
		return nil
	}
	status := domain.ChapterStatus{Chapter: chapter, Path: path, Duration: seg.Duration()}
	if err := p.cfg.Runs.MarkChapterDone(ctx, run.ID, status); err != nil {
		return fmt.Errorf("record chapter %d: %w", chapter, err)
	}
	return nil
}

// packageBook gathers every chapter segment in book order, concatenates
// them into the whole-book waveform, and computes the chapter marks.
func (p *Pipeline) packageBook(
	ctx context.Context,
	book *domain.Book,
	assembled map[int]domain.AudioSegment,
	resumed map[int]bool,
) (*domain.BookAudio, error) {
	segments := make([]domain.AudioSegment, 0, len(book.Chapters))
	for _, ch := range book.Chapters {
		seg, ok := assembled[ch.Index]
		if !ok {
			if !resumed[ch.Index] || p.cfg.Segments == nil {
				return nil, fmt.Errorf("chapter %d audio missing: %w", ch.Index, domain.ErrNotFound)
			}
			loaded, err := p.cfg.Segments.Load(ctx, ch.Index)
			if err != nil {
				return nil, fmt.Errorf("load chapter %d audio: %w", ch.Index, err)
			}
			seg = loaded
		}
		segments = append(segments, seg)
	}

	audio, err := ConcatSegments(segments)
	if err != nil {
		return nil, err
	}

	return &domain.BookAudio{
		Audio: audio,
		Marks: ComputeMarks(book.Chapters, segments),
	}, nil
}
