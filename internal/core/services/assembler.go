package services

import (
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// Assembler concatenates a chapter's chunk segments into one
// chapter-level segment. Sample order is preserved exactly; no
// cross-fading, trimming, or resampling. An optional fixed-length
// silence gap is inserted between chunk segments to smooth synthesis
// call boundaries.
type Assembler struct {
	gapSeconds float64
}

// AssemblerOption configures the assembler.
type AssemblerOption func(*Assembler)

// WithChunkGap sets the inter-chunk silence gap in seconds.
func WithChunkGap(seconds float64) AssemblerOption {
	return func(a *Assembler) {
		if seconds >= 0 {
			a.gapSeconds = seconds
		}
	}
}

// NewAssembler creates a chapter assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble concatenates the ordered chunk segments of one chapter.
// All segments must share one sample rate; a mismatch is a FormatError,
// never a silent resample.
func (a *Assembler) Assemble(chapter int, segments []domain.AudioSegment) (domain.AudioSegment, error) {
	if len(segments) == 0 {
		return domain.AudioSegment{}, &domain.FormatError{Chapter: chapter}
	}

	rate := segments[0].SampleRate
	total := 0
	for _, seg := range segments {
		if seg.SampleRate != rate {
			return domain.AudioSegment{}, &domain.FormatError{
				Chapter: chapter, Want: rate, Got: seg.SampleRate,
			}
		}
		total += len(seg.Samples)
	}

	gap := int(a.gapSeconds * float64(rate))
	if gap > 0 {
		total += gap * (len(segments) - 1)
	}

	out := make([]float32, 0, total)
	for i, seg := range segments {
		if gap > 0 && i > 0 {
			out = append(out, make([]float32, gap)...)
		}
		out = append(out, seg.Samples...)
	}

	return domain.AudioSegment{Samples: out, SampleRate: rate}, nil
}
