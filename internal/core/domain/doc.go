// Package domain defines the core business entities for Narrata.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Book: An ordered sequence of chapters with title/author metadata
//   - Chapter: One reading-order unit of a book as normalised prose
//   - Chunk: A bounded-length slice of a chapter sized for one synthesis call
//   - AudioSegment: Raw audio samples with a known sample rate
//   - ChapterMark: A (start, end, title) triple for in-player navigation
//   - BookAudio: The final concatenated waveform plus its chapter marks
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
