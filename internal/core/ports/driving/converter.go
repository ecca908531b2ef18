package driving

import (
	"context"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

// Stage identifies a pipeline stage for progress reporting.
type Stage string

const (
	// StageExtract covers chapter extraction and chunking.
	StageExtract Stage = "extract"
	// StageSynthesize covers per-chunk speech synthesis.
	StageSynthesize Stage = "synthesize"
	// StageAssemble covers per-chapter audio assembly.
	StageAssemble Stage = "assemble"
	// StagePackage covers book concatenation and encoding.
	StagePackage Stage = "package"
)

// ProgressEvent reports pipeline progress as work advances through
// each stage. Chunk counts are only meaningful during synthesis.
type ProgressEvent struct {
	Stage        Stage
	Chapter      int
	ChapterCount int
	Chunk        int
	ChunkCount   int
	Message      string
}

// ConvertRequest describes one conversion.
type ConvertRequest struct {
	// Source is the parsed book to convert.
	Source driven.BookSource

	// OutputPath is the destination audiobook path.
	OutputPath string

	// Voice holds the synthesis parameters for the whole run.
	Voice domain.Voice

	// TitleOverride replaces the source book title when non-empty.
	TitleOverride string

	// AuthorOverride replaces the source book author when non-empty.
	AuthorOverride string

	// Emit, when non-nil, receives progress events. It is called from
	// pipeline goroutines and must be safe for concurrent use.
	Emit func(ProgressEvent)
}

// ConvertResult summarises a completed conversion.
type ConvertResult struct {
	// OutputPath is the written audiobook path.
	OutputPath string

	// Chapters is the number of chapters in the output.
	Chapters int

	// Duration is the total audio duration in seconds.
	Duration float64

	// Resumed is the number of chapters reused from a previous run.
	Resumed int
}

// Converter runs the chaptered audio assembly pipeline end to end.
type Converter interface {
	// Convert produces one valid output file or fails leaving no
	// partial file at the output path.
	Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error)
}
