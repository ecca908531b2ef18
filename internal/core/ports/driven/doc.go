// Package driven defines the driven ports (secondary/outbound interfaces)
// for the hexagonal architecture.
//
// Driven ports are interfaces that the core pipeline uses to reach
// external collaborators. Adapters implement these interfaces:
//
//   - BookSource: a parsed e-book (EPUB adapter)
//   - Synthesizer: the text-to-speech capability (HTTP TTS adapter)
//   - Encoder: the compressed-container writer (ffmpeg adapter)
//   - RunStore: the resume ledger (SQLite adapter)
//   - SegmentStore: intermediate chapter audio files (directory adapter)
//
// # Import Rules
//
//   - Can Import: domain, standard library
//   - Cannot Import: services, adapters
package driven
