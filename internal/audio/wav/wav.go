// Package wav encodes and decodes 16-bit PCM WAV audio.
//
// Intermediate chapter audio and synthesiser responses both travel as
// WAV, so the codec lives in one place. Only linear PCM is supported;
// multi-channel input is downmixed to mono by averaging.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// pcmFormat is the WAV format tag for linear PCM.
const pcmFormat = 1

// maxChunkSize bounds chunk allocations so a corrupt header cannot
// demand gigabytes before the read fails. 1 GiB of 16-bit mono PCM is
// several hours of audio, well past any single chapter.
const maxChunkSize = 1 << 30

// ErrNotWAV indicates the input does not carry a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a WAV stream")

// Encode writes samples as a mono 16-bit PCM WAV stream. Samples are
// clamped to [-1, 1] before quantisation.
func Encode(w io.Writer, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	dataLen := len(samples) * 2
	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(header[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(header[34:36], 16)                   // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	buf := make([]byte, dataLen)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(quantise(s)))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	return nil
}

// quantise clamps a sample to [-1, 1] and scales it to int16 range.
func quantise(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(math.Round(float64(s) * 32767))
}

// Decode reads a 16-bit PCM WAV stream and returns the samples and
// sample rate. Multi-channel audio is averaged down to mono.
func Decode(r io.Reader) ([]float32, int, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, 0, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		sampleRate int
		channels   int
		bits       int
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, 0, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
			}
			return nil, 0, fmt.Errorf("reading chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])
		if size > maxChunkSize {
			return nil, 0, fmt.Errorf("%w: %q chunk of %d bytes", ErrNotWAV, id, size)
		}

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("reading fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != pcmFormat {
				return nil, 0, fmt.Errorf("unsupported WAV format tag %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			if bits != 16 {
				return nil, 0, fmt.Errorf("unsupported WAV bit depth %d", bits)
			}
			if channels < 1 {
				return nil, 0, fmt.Errorf("%w: zero channels", ErrNotWAV)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, 0, fmt.Errorf("%w: data chunk before fmt", ErrNotWAV)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("reading data chunk: %w", err)
			}
			return decodeSamples(body, channels), sampleRate, nil

		default:
			// Skip LIST, fact and other chunks. Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, 0, fmt.Errorf("skipping %q chunk: %w", id, err)
			}
		}
	}
}

// decodeSamples converts little-endian int16 frames to mono float32.
func decodeSamples(body []byte, channels int) []float32 {
	frameBytes := channels * 2
	frames := len(body) / frameBytes
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			v := int16(binary.LittleEndian.Uint16(body[i*frameBytes+c*2:]))
			sum += float64(v)
		}
		samples[i] = float32(sum / float64(channels) / 32767)
	}
	return samples
}
