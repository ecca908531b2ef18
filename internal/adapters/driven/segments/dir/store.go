// Package dir persists intermediate chapter audio as WAV files in a
// working directory, one file per chapter with a predictable name, so
// an interrupted run can be resumed and individual chapters inspected.
package dir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/narrata-labs/narrata-cli/internal/audio/wav"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
)

// chapterFilePattern names chapter files by zero-based index.
const chapterFilePattern = "chapter_%04d.wav"

// Ensure Store implements the interface.
var _ driven.SegmentStore = (*Store)(nil)

// Store is a directory of per-chapter WAV files.
type Store struct {
	dir string
}

// NewStore creates a segment store rooted at dir, creating the
// directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating segment directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes one chapter's audio. The write goes through a temporary
// file so a crash never leaves a truncated chapter that a later resume
// would trust.
func (s *Store) Save(_ context.Context, chapter int, seg domain.AudioSegment) (string, error) {
	path := s.chapterPath(chapter)
	tmp, err := os.CreateTemp(s.dir, "chapter_*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := wav.Encode(tmp, seg.Samples, seg.SampleRate); err != nil {
		tmp.Close()
		return "", fmt.Errorf("encoding chapter %d: %w", chapter, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("placing chapter %d file: %w", chapter, err)
	}
	return path, nil
}

// Load reads a previously saved chapter.
func (s *Store) Load(_ context.Context, chapter int) (domain.AudioSegment, error) {
	f, err := os.Open(s.chapterPath(chapter))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.AudioSegment{}, fmt.Errorf("chapter %d: %w", chapter, domain.ErrNotFound)
		}
		return domain.AudioSegment{}, fmt.Errorf("opening chapter %d: %w", chapter, err)
	}
	defer f.Close()

	samples, rate, err := wav.Decode(f)
	if err != nil {
		return domain.AudioSegment{}, fmt.Errorf("decoding chapter %d: %w", chapter, err)
	}
	return domain.AudioSegment{Samples: samples, SampleRate: rate}, nil
}

// Exists reports whether a chapter file is present.
func (s *Store) Exists(chapter int) (string, bool) {
	path := s.chapterPath(chapter)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Dir returns the working directory.
func (s *Store) Dir() string {
	return s.dir
}

// RemoveAll deletes the working directory and everything in it.
func (s *Store) RemoveAll() error {
	return os.RemoveAll(s.dir)
}

func (s *Store) chapterPath(chapter int) string {
	return filepath.Join(s.dir, fmt.Sprintf(chapterFilePattern, chapter))
}
