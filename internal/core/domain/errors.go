package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoChapters indicates the book structure yielded zero readable chapters.
	ErrNoChapters = errors.New("no readable chapters")
)

// ExtractionError indicates the book structure was entirely unreadable.
// It aborts the whole run before any synthesis begins.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ChunkingError indicates a chunker configuration error, such as a
// non-positive size budget. Fatal to the run.
type ChunkingError struct {
	Err error
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking failed: %v", e.Err)
}

func (e *ChunkingError) Unwrap() error { return e.Err }

// SynthesisError indicates a chunk could not be synthesised after the
// configured retries. It carries the chapter and chunk index so the
// failing unit can be reproduced in isolation.
type SynthesisError struct {
	Chapter int
	Chunk   int
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: chapter %d chunk %d: %v", e.Chapter, e.Chunk, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// FormatError indicates a sample-rate mismatch during assembly. This is
// a synthesis-capability contract violation and is fatal to the run;
// audio is never silently resampled.
type FormatError struct {
	Chapter int
	Want    int
	Got     int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format mismatch: chapter %d: sample rate %d, expected %d", e.Chapter, e.Got, e.Want)
}

// PackagingError indicates the encoder invocation failed or produced no
// output file. No partial output file is left in place of the deliverable.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed: %v", e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// IsExtraction checks if the error is an extraction failure.
func IsExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// IsSynthesis checks if the error is a synthesis failure and returns it.
func IsSynthesis(err error) (*SynthesisError, bool) {
	var e *SynthesisError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsPackaging checks if the error is a packaging failure.
func IsPackaging(err error) bool {
	var e *PackagingError
	return errors.As(err, &e)
}
