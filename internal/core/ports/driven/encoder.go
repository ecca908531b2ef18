package driven

import (
	"context"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// EncodeRequest carries everything the encoder needs to produce the
// final chaptered container.
type EncodeRequest struct {
	// Audio is the whole-book waveform plus chapter marks.
	Audio domain.BookAudio

	// Bitrate is the target encoding bitrate (e.g. "64k").
	Bitrate string

	// Title is the book title tag.
	Title string

	// Author is the book author tag, may be empty.
	Author string

	// OutputPath is the destination file path.
	OutputPath string
}

// Encoder transcodes a waveform into the target compressed format and
// embeds chapter-marker and title/author metadata using the container's
// native facility. The core produces the (start, end, title) marks; the
// encoder owns the on-disk format.
type Encoder interface {
	// Encode writes the output file and returns its path. On failure
	// no file is left at the output path.
	Encode(ctx context.Context, req EncodeRequest) (string, error)
}
