package domain

// Book is an ordered sequence of chapters plus book-level metadata.
// It is created once at pipeline start and is immutable thereafter.
type Book struct {
	// Title is the book title used for output metadata.
	Title string

	// Author is the book author (optional).
	Author string

	// Language is a language hint (BCP 47 tag or "Auto").
	Language string

	// Chapters holds the chapters in reading order. Chapter.Index is
	// unique and strictly increasing within this slice.
	Chapters []Chapter
}

// Chapter is one reading-order unit of a book.
// Text is normalised prose: markup stripped, whitespace collapsed
// to single spaces, never empty.
type Chapter struct {
	// Index is the 0-based position in book order.
	Index int

	// Title is the chapter title, possibly a synthesised placeholder.
	Title string

	// Text is the normalised chapter text.
	Text string
}

// Chunk is a bounded-length slice of a chapter's text sized to fit
// one synthesis call. The ordered concatenation of a chapter's chunk
// texts, joined with single spaces, reproduces the chapter text.
type Chunk struct {
	// Chapter is the index of the owning chapter.
	Chapter int

	// Index is the 0-based position within the chapter.
	Index int

	// Text is the chunk text. Never empty.
	Text string

	// Continued marks a chunk produced by hard-splitting a sentence
	// that alone exceeded the size budget.
	Continued bool
}

// Voice holds opaque synthesis parameters passed through unchanged
// on every synthesis call.
type Voice struct {
	// Speaker is the voice identity (e.g. "Aiden").
	Speaker string

	// Language is the target language or "Auto".
	Language string

	// Instruct is an optional style instruction for the synthesiser.
	Instruct string
}
