package driven

import (
	"context"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// Synthesizer converts text to speech audio. Implementations may carry
// conversational state across consecutive calls for voice consistency,
// so a caller must issue the calls for one chapter strictly in order
// on a single goroutine.
type Synthesizer interface {
	// Synthesize generates audio for one chunk of text. Voice
	// parameters are opaque configuration passed through unchanged.
	Synthesize(ctx context.Context, text string, voice domain.Voice) (domain.AudioSegment, error)

	// Close releases resources held by the synthesiser.
	Close() error
}
