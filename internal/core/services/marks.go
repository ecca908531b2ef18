package services

import (
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// ComputeMarks derives the chapter marks from the ordered chapter
// segments. Each mark's start equals the previous mark's end (0 for
// the first) and its end is start plus the chapter duration. The
// function is pure so duration accounting can be verified without
// invoking any external process.
//
// chapters and segments must be parallel slices in book order.
func ComputeMarks(chapters []domain.Chapter, segments []domain.AudioSegment) []domain.ChapterMark {
	marks := make([]domain.ChapterMark, 0, len(chapters))
	cursor := 0.0
	for i, ch := range chapters {
		dur := segments[i].Duration()
		marks = append(marks, domain.ChapterMark{
			Index: ch.Index,
			Title: ch.Title,
			Start: cursor,
			End:   cursor + dur,
		})
		cursor += dur
	}
	return marks
}

// ConcatSegments joins the ordered chapter segments into the
// whole-book waveform. All segments must already share one sample
// rate; the caller (the assembler) has enforced that per chapter, and
// a cross-chapter mismatch is reported as a FormatError here.
func ConcatSegments(segments []domain.AudioSegment) (domain.AudioSegment, error) {
	if len(segments) == 0 {
		return domain.AudioSegment{}, &domain.FormatError{}
	}

	rate := segments[0].SampleRate
	total := 0
	for i, seg := range segments {
		if seg.SampleRate != rate {
			return domain.AudioSegment{}, &domain.FormatError{Chapter: i, Want: rate, Got: seg.SampleRate}
		}
		total += len(seg.Samples)
	}

	out := make([]float32, 0, total)
	for _, seg := range segments {
		out = append(out, seg.Samples...)
	}
	return domain.AudioSegment{Samples: out, SampleRate: rate}, nil
}
