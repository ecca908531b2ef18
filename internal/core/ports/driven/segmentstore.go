package driven

import (
	"context"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// SegmentStore persists intermediate per-chapter audio, named
// predictably by chapter index. It doubles as the resume source and,
// when intermediates are retained, as the inspection surface.
type SegmentStore interface {
	// Save writes a chapter segment and returns its path.
	Save(ctx context.Context, chapter int, seg domain.AudioSegment) (string, error)

	// Load reads a previously saved chapter segment.
	Load(ctx context.Context, chapter int) (domain.AudioSegment, error)

	// Exists reports whether a chapter segment is present and returns
	// its path when it is.
	Exists(chapter int) (string, bool)

	// Dir returns the directory holding the intermediate files.
	Dir() string

	// RemoveAll deletes all intermediate files.
	RemoveAll() error
}
