package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// DefaultMinChapterChars is the default minimum text length below which
// a chapter is treated as front matter and skipped. The right value is
// genre-dependent, so it is configurable rather than fixed.
const DefaultMinChapterChars = 20

// gutenbergPatterns contains case-insensitive fragments that identify a
// Project Gutenberg license page. Such pages are front matter and are
// skipped like any other too-short chapter.
var gutenbergPatterns = []string{
	"project gutenberg license",
	"gutenberg.org/license",
	"start of the project gutenberg license",
	"end of the project gutenberg license",
	"start of this project gutenberg ebook",
	"end of this project gutenberg ebook",
}

// Extractor turns a parsed book structure into the ordered sequence of
// normalised chapters.
type Extractor struct {
	minChars int
}

// ExtractorOption configures the extractor.
type ExtractorOption func(*Extractor)

// WithMinChapterChars sets the front-matter length threshold.
func WithMinChapterChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.minChars = n
		}
	}
}

// NewExtractor creates a chapter extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{minChars: DefaultMinChapterChars}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the book with its chapters in reading order. Text is
// whitespace-normalised; chapters shorter than the configured threshold
// are dropped with a warning; untitled chapters get a "Chapter N"
// placeholder. Fails only when zero chapters remain.
func (e *Extractor) Extract(ctx context.Context, src driven.BookSource) (*domain.Book, error) {
	raw, err := src.Chapters(ctx)
	if err != nil {
		return nil, &domain.ExtractionError{Err: err}
	}

	info := src.Info()
	book := &domain.Book{
		Title:    info.Title,
		Author:   info.Author,
		Language: info.Language,
	}

	for i, sc := range raw {
		text := NormalizeText(sc.Text)
		if len(text) < e.minChars {
			logger.Warn("Skipping chapter %d (%q): %d chars of text", i, sc.Title, len(text))
			continue
		}
		if isGutenbergLicense(text) {
			logger.Warn("Skipping chapter %d (%q): license page", i, sc.Title)
			continue
		}

		idx := len(book.Chapters)
		title := strings.TrimSpace(sc.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", idx+1)
		}

		book.Chapters = append(book.Chapters, domain.Chapter{
			Index: idx,
			Title: title,
			Text:  text,
		})
	}

	if len(book.Chapters) == 0 {
		return nil, &domain.ExtractionError{Err: domain.ErrNoChapters}
	}

	logger.Info("Extracted %d chapter(s) from %q", len(book.Chapters), book.Title)
	return book, nil
}

// NormalizeText collapses all whitespace runs (spaces, tabs, newlines)
// to single spaces and trims the result.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isGutenbergLicense reports whether the chapter text is a Project
// Gutenberg license page.
func isGutenbergLicense(text string) bool {
	lower := strings.ToLower(text)
	for _, pat := range gutenbergPatterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return strings.Contains(lower, "project gutenberg") && strings.Contains(lower, "terms of use")
}
