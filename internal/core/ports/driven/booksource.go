package driven

import "context"

// BookInfo holds book-level metadata exposed by a source.
type BookInfo struct {
	// Title is the book title, empty if the source declares none.
	Title string

	// Author is the book author, empty if unknown.
	Author string

	// Language is the declared language tag, empty if unknown.
	Language string
}

// SourceChapter is one reading-order unit as exposed by a source,
// before normalisation and filtering by the chapter extractor.
type SourceChapter struct {
	// Title is the chapter title discovered in the source, may be empty.
	Title string

	// Text is the plain text with markup already stripped. Whitespace
	// is not yet normalised; the extractor owns that.
	Text string
}

// BookSource is a parsed e-book. The core does not interpret the
// source container format itself; adapters expose chapters in
// reading order (spine order, not document-file order).
type BookSource interface {
	// Info returns the book-level metadata.
	Info() BookInfo

	// Chapters returns the chapters in reading order.
	Chapters(ctx context.Context) ([]SourceChapter, error)

	// Close releases resources held by the source.
	Close() error
}
