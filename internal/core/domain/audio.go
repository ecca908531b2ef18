package domain

// AudioSegment is a span of raw mono audio samples with a known
// sample rate. Segments are produced by synthesis or by concatenation
// of child segments and are owned exclusively by the stage that
// produced them until consumed by the next stage.
type AudioSegment struct {
	// Samples holds normalised samples in [-1, 1].
	Samples []float32

	// SampleRate is the sample rate in Hz.
	SampleRate int
}

// Duration returns the segment duration in seconds, derived from the
// sample count and sample rate. A segment with no samples or an
// unset sample rate has duration 0.
func (s AudioSegment) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// ChapterMark describes one chapter's position in the assembled book
// audio. Marks are derived entirely from segment durations: the end
// of chapter i equals the start of chapter i+1.
type ChapterMark struct {
	// Index is the chapter index the mark belongs to.
	Index int

	// Title is the chapter title embedded in the output container.
	Title string

	// Start is the chapter start in seconds from the beginning of the book.
	Start float64

	// End is the chapter end in seconds.
	End float64
}

// BookAudio is the final concatenated waveform plus the full ordered
// list of chapter marks. It is consumed exactly once by the encoder.
type BookAudio struct {
	// Audio is the whole-book waveform.
	Audio AudioSegment

	// Marks holds one mark per chapter, in index order.
	Marks []ChapterMark
}
