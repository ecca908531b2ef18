package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

func TestExtractor_Extract(t *testing.T) {
	src := &stubSource{
		info: driven.BookInfo{Title: "The Test Book", Author: "A. Writer", Language: "en"},
		chapters: []driven.SourceChapter{
			{Title: "One", Text: "The first chapter has plenty of text to stand on its own."},
			{Title: "Two", Text: "The second chapter also has plenty of text to stand on its own."},
		},
	}

	book, err := NewExtractor().Extract(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, "The Test Book", book.Title)
	assert.Equal(t, "A. Writer", book.Author)
	assert.Equal(t, "en", book.Language)
	require.Len(t, book.Chapters, 2)
	assert.Equal(t, 0, book.Chapters[0].Index)
	assert.Equal(t, 1, book.Chapters[1].Index)
	assert.Equal(t, "One", book.Chapters[0].Title)
}

func TestExtractor_Extract_NormalisesWhitespace(t *testing.T) {
	src := &stubSource{
		chapters: []driven.SourceChapter{
			{Title: "One", Text: "Lines\nare  joined.\n\n\tTabs too, and   runs of spaces."},
		},
	}

	book, err := NewExtractor().Extract(context.Background(), src)

	require.NoError(t, err)
	assert.Equal(t, "Lines are joined. Tabs too, and runs of spaces.", book.Chapters[0].Text)
}

func TestExtractor_Extract_SkipsFrontMatter(t *testing.T) {
	src := &stubSource{
		chapters: []driven.SourceChapter{
			{Title: "Cover", Text: "Cover"},
			{Title: "Story", Text: "A chapter long enough to survive the front matter threshold."},
			{Title: "", Text: ""},
		},
	}

	book, err := NewExtractor().Extract(context.Background(), src)

	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, "Story", book.Chapters[0].Title)
	// Surviving chapters are reindexed from zero.
	assert.Equal(t, 0, book.Chapters[0].Index)
}

func TestExtractor_Extract_MinCharsConfigurable(t *testing.T) {
	src := &stubSource{
		chapters: []driven.SourceChapter{
			{Title: "Short", Text: "Thirty characters, about that."},
			{Title: "Long", Text: "This chapter comfortably clears a one hundred character minimum because it keeps going on and on and on."},
		},
	}

	book, err := NewExtractor(WithMinChapterChars(100)).Extract(context.Background(), src)

	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, "Long", book.Chapters[0].Title)
}

func TestExtractor_Extract_PlaceholderTitles(t *testing.T) {
	src := &stubSource{
		chapters: []driven.SourceChapter{
			{Title: "", Text: "An untitled chapter with more than enough text to be kept."},
			{Title: "  ", Text: "Another untitled chapter with more than enough text to be kept."},
		},
	}

	book, err := NewExtractor().Extract(context.Background(), src)

	require.NoError(t, err)
	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "Chapter 1", book.Chapters[0].Title)
	assert.Equal(t, "Chapter 2", book.Chapters[1].Title)
}

func TestExtractor_Extract_SkipsGutenbergLicense(t *testing.T) {
	src := &stubSource{
		chapters: []driven.SourceChapter{
			{Title: "License", Text: "Full terms at the START OF THE PROJECT GUTENBERG LICENSE " +
				"please read this before you distribute or use this work."},
			{Title: "Story", Text: "A chapter long enough to survive the front matter threshold."},
		},
	}

	book, err := NewExtractor().Extract(context.Background(), src)

	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, "Story", book.Chapters[0].Title)
}

func TestExtractor_Extract_NoChapters(t *testing.T) {
	t.Run("all filtered", func(t *testing.T) {
		src := &stubSource{chapters: []driven.SourceChapter{{Title: "Cover", Text: "Cover"}}}

		_, err := NewExtractor().Extract(context.Background(), src)

		require.Error(t, err)
		assert.True(t, domain.IsExtraction(err))
		assert.ErrorIs(t, err, domain.ErrNoChapters)
	})

	t.Run("source error", func(t *testing.T) {
		src := &stubSource{err: fmt.Errorf("corrupt archive")}

		_, err := NewExtractor().Extract(context.Background(), src)

		require.Error(t, err)
		var extractionErr *domain.ExtractionError
		assert.True(t, errors.As(err, &extractionErr))
	})
}
