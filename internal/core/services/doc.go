// Package services implements the chaptered audio assembly pipeline:
// chapter extraction, text chunking, synthesis orchestration, chapter
// assembly, and book packaging.
//
// Data flows strictly left to right:
//
//	Extractor -> Chunker -> Orchestrator -> Assembler -> Packager
//
// No component reads back from a later stage. All external
// collaborators (book source, synthesiser, encoder, stores) are
// consumed through the driven ports.
//
// # Import Rules
//
//   - Can Import: domain, ports, logger, standard library
//   - Cannot Import: adapters
package services
