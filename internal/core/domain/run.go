package domain

import "time"

// Run records one conversion attempt against an output path. It backs
// the resume ledger: a re-run against the same output path may skip
// chapters whose audio was already produced.
type Run struct {
	// ID is the unique run identifier.
	ID string

	// OutputPath is the target audiobook path this run produces.
	OutputPath string

	// BookTitle is the title of the book being converted. A title or
	// chapter-count mismatch on resume invalidates the old run.
	BookTitle string

	// ChapterCount is the number of chapters in the extracted book.
	ChapterCount int

	// CreatedAt is when the run was first started.
	CreatedAt time.Time

	// CompletedAt is when packaging finished, nil while in progress.
	CompletedAt *time.Time
}

// ChapterStatus records a finished chapter within a run.
type ChapterStatus struct {
	// Chapter is the chapter index.
	Chapter int

	// Path is the intermediate WAV path holding the chapter audio.
	Path string

	// Duration is the chapter audio duration in seconds.
	Duration float64
}
