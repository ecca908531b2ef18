package driven

import (
	"context"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// RunStore is the resume ledger. It records conversion runs keyed by
// output path and the chapters each run has finished, so a re-run can
// skip synthesis for chapters whose audio already exists.
type RunStore interface {
	// FindRun returns the run for an output path, or domain.ErrNotFound.
	FindRun(ctx context.Context, outputPath string) (*domain.Run, error)

	// CreateRun persists a new run.
	CreateRun(ctx context.Context, run domain.Run) error

	// DeleteRun removes a run and its chapter statuses.
	DeleteRun(ctx context.Context, runID string) error

	// MarkChapterDone records a finished chapter for a run.
	MarkChapterDone(ctx context.Context, runID string, status domain.ChapterStatus) error

	// ChapterStatuses returns the finished chapters of a run in
	// chapter-index order.
	ChapterStatuses(ctx context.Context, runID string) ([]domain.ChapterStatus, error)

	// CompleteRun marks a run as successfully packaged.
	CompleteRun(ctx context.Context, runID string) error

	// Close releases the underlying storage.
	Close() error
}
