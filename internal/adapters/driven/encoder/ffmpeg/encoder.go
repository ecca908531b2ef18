// Package ffmpeg packages the assembled book audio into an M4B
// container by shelling out to ffmpeg. Chapter markers and book
// metadata travel in an FFMETADATA1 side file that ffmpeg maps into
// the container's native chapter atoms.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/narrata-labs/narrata-cli/internal/audio/wav"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

// defaultBinary is the ffmpeg executable looked up on PATH.
const defaultBinary = "ffmpeg"

// Ensure Encoder implements the interface.
var _ driven.Encoder = (*Encoder)(nil)

// Encoder invokes ffmpeg to produce the final audiobook file.
type Encoder struct {
	binary string
}

// Option configures the encoder.
type Option func(*Encoder)

// WithBinary overrides the ffmpeg executable path.
func WithBinary(path string) Option {
	return func(e *Encoder) {
		e.binary = path
	}
}

// New creates an ffmpeg encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{binary: defaultBinary}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes the waveform and metadata to temporary files, runs
// ffmpeg, and moves the result into place. The output path only ever
// holds a complete file; any failure is a PackagingError.
func (e *Encoder) Encode(ctx context.Context, req driven.EncodeRequest) (string, error) {
	if len(req.Audio.Audio.Samples) == 0 {
		return "", &domain.PackagingError{Err: fmt.Errorf("no audio to encode")}
	}

	outDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", &domain.PackagingError{Err: fmt.Errorf("creating output directory: %w", err)}
	}

	work, err := os.MkdirTemp("", "narrata-encode-*")
	if err != nil {
		return "", &domain.PackagingError{Err: fmt.Errorf("creating work directory: %w", err)}
	}
	defer os.RemoveAll(work)

	wavPath := filepath.Join(work, "book.wav")
	if err := writeWAV(wavPath, req.Audio.Audio); err != nil {
		return "", &domain.PackagingError{Err: err}
	}

	metaPath := filepath.Join(work, "metadata.txt")
	meta := formatFFMetadata(req.Title, req.Author, req.Audio.Marks)
	if err := os.WriteFile(metaPath, []byte(meta), 0644); err != nil {
		return "", &domain.PackagingError{Err: fmt.Errorf("writing metadata file: %w", err)}
	}

	// Encode into the work directory first so a failed or interrupted
	// run never leaves a partial file at the destination.
	tmpOut := filepath.Join(work, "out"+filepath.Ext(req.OutputPath))
	args := []string{
		"-y",
		"-i", wavPath,
		"-i", metaPath,
		"-map_metadata", "1",
		"-c:a", "aac",
		"-b:a", req.Bitrate,
		"-movflags", "+faststart",
		tmpOut,
	}

	logger.Debug("Running %s %s", e.binary, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &domain.PackagingError{
			Err: fmt.Errorf("%s: %w: %s", e.binary, err, lastLines(stderr.String(), 5)),
		}
	}

	info, err := os.Stat(tmpOut)
	if err != nil || info.Size() == 0 {
		return "", &domain.PackagingError{Err: fmt.Errorf("%s produced no output", e.binary)}
	}

	if err := os.Rename(tmpOut, req.OutputPath); err != nil {
		// Cross-device moves fall back to copy.
		if copyErr := copyFile(tmpOut, req.OutputPath); copyErr != nil {
			return "", &domain.PackagingError{Err: fmt.Errorf("placing output: %w", copyErr)}
		}
	}
	return req.OutputPath, nil
}

// formatFFMetadata renders the FFMETADATA1 document covering the book
// tags and one [CHAPTER] block per mark, with times in milliseconds.
func formatFFMetadata(title, author string, marks []domain.ChapterMark) string {
	var b strings.Builder
	b.WriteString(";FFMETADATA1\n")
	fmt.Fprintf(&b, "title=%s\n", escapeMeta(title))
	if author != "" {
		fmt.Fprintf(&b, "artist=%s\n", escapeMeta(author))
	}
	b.WriteString("\n")

	for _, mark := range marks {
		b.WriteString("[CHAPTER]\n")
		b.WriteString("TIMEBASE=1/1000\n")
		fmt.Fprintf(&b, "START=%d\n", int64(mark.Start*1000))
		fmt.Fprintf(&b, "END=%d\n", int64(mark.End*1000))
		fmt.Fprintf(&b, "title=%s\n\n", escapeMeta(mark.Title))
	}
	return b.String()
}

// escapeMeta escapes the characters the FFMETADATA format reserves.
var metaEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", `\`+"\n",
)

func escapeMeta(s string) string {
	return metaEscaper.Replace(s)
}

// writeWAV writes the waveform to path.
func writeWAV(path string, seg domain.AudioSegment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := wav.Encode(f, seg.Samples, seg.SampleRate); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// lastLines returns the trailing n lines of s, for error messages.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// copyFile copies src to dst, replacing dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
