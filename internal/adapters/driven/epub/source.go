// Package epub reads EPUB archives and exposes their content documents
// as chapters in spine order. Only what narration needs is parsed:
// book metadata, the manifest, the spine and the content text. Styling,
// images, fonts and navigation documents are ignored.
package epub

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// ErrInvalidEPUB indicates the archive is not a readable EPUB.
var ErrInvalidEPUB = errors.New("invalid EPUB")

// Ensure Source implements the interface.
var _ driven.BookSource = (*Source)(nil)

// Source is an opened EPUB file.
type Source struct {
	zrc    *zip.ReadCloser
	opfDir string
	pkg    *opfPackage
	byID   map[string]opfManifestItem
}

// Open opens the EPUB at path. The caller must Close the source.
func Open(filePath string) (*Source, error) {
	zrc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("opening %s: %w", filePath, err)}
	}

	src, err := newSource(zrc)
	if err != nil {
		zrc.Close()
		return nil, &domain.ExtractionError{Err: err}
	}
	return src, nil
}

func newSource(zrc *zip.ReadCloser) (*Source, error) {
	opfPath, err := parseContainer(&zrc.Reader)
	if err != nil {
		return nil, err
	}

	opfFile := findFile(&zrc.Reader, opfPath)
	if opfFile == nil {
		return nil, fmt.Errorf("%w: missing package document %s", ErrInvalidEPUB, opfPath)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", opfPath, err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]opfManifestItem, len(pkg.Manifest.Items))
	for _, item := range pkg.Manifest.Items {
		byID[item.ID] = item
	}

	return &Source{
		zrc:    zrc,
		opfDir: path.Dir(opfPath),
		pkg:    pkg,
		byID:   byID,
	}, nil
}

// Info returns the book-level metadata from the package document.
func (s *Source) Info() driven.BookInfo {
	return driven.BookInfo{
		Title:    first(s.pkg.Metadata.Titles),
		Author:   first(s.pkg.Metadata.Creators),
		Language: first(s.pkg.Metadata.Languages),
	}
}

// Chapters returns one chapter per linear spine item, in spine order.
// Spine items whose content file is missing or unparsable are skipped
// with a warning rather than failing the whole book.
func (s *Source) Chapters(ctx context.Context) ([]driven.SourceChapter, error) {
	var chapters []driven.SourceChapter

	for _, ref := range s.pkg.Spine.ItemRefs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.EqualFold(ref.Linear, "no") {
			continue
		}

		item, ok := s.byID[ref.IDRef]
		if !ok {
			logger.Warn("Spine references unknown manifest item %q, skipping", ref.IDRef)
			continue
		}

		data, err := s.readContent(item.Href)
		if err != nil {
			logger.Warn("Could not read %s: %v, skipping", item.Href, err)
			continue
		}

		title, text, err := extractContent(data)
		if err != nil {
			logger.Warn("Could not parse %s: %v, skipping", item.Href, err)
			continue
		}

		chapters = append(chapters, driven.SourceChapter{Title: title, Text: text})
	}

	return chapters, nil
}

// Close closes the underlying archive.
func (s *Source) Close() error {
	return s.zrc.Close()
}

// readContent resolves a manifest href relative to the package
// document and reads the entry.
func (s *Source) readContent(href string) ([]byte, error) {
	full := href
	if s.opfDir != "." {
		full = path.Join(s.opfDir, href)
	}
	f := findFile(&s.zrc.Reader, full)
	if f == nil {
		// Some books use archive-absolute hrefs.
		if f = findFile(&s.zrc.Reader, href); f == nil {
			return nil, fmt.Errorf("entry %s: %w", full, domain.ErrNotFound)
		}
	}
	return readZipFile(f)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
