// Package wav writes and reads canonical uncompressed PCM WAV files.
//
// A canonical file is a 44-byte header (RIFF chunk, one 16-byte "fmt "
// chunk, one "data" chunk) followed by the raw sample bytes. Nothing else
// is emitted: no LIST, fact, or extensible-format chunks.
//
//	0  "RIFF"   4  36+dataSize   8  "WAVE"
//	12 "fmt "   16 16            20 1 (PCM)     22 channels
//	24 rate     28 byte rate     32 block align 34 bits per sample
//	36 "data"   40 dataSize      44 samples...
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const (
	// HeaderSize is the size of the canonical header in bytes.
	HeaderSize = 44

	// FormatPCM is the audio format tag for uncompressed linear PCM.
	FormatPCM = 1

	fmtChunkSize = 16
)

var (
	// ErrResource means the destination could not be opened.
	ErrResource = errors.New("wav: cannot open destination")

	// ErrWrite means an I/O failure occurred while writing, flushing or
	// syncing the file. A partial regular file has been removed.
	ErrWrite = errors.New("wav: write failed")

	// ErrInvalidFormat means a Format field is non-positive or does not fit
	// in its header field.
	ErrInvalidFormat = errors.New("wav: invalid format")
)

// Format describes interleaved linear PCM samples.
type Format struct {
	Channels    int `json:"channels"`
	SampleRate  int `json:"sample_rate"`
	SampleWidth int `json:"sample_width"` // bytes per sample, 2 for 16-bit
}

// Mono16 returns a single-channel 16-bit format at the given rate.
func Mono16(sampleRate int) Format {
	return Format{Channels: 1, SampleRate: sampleRate, SampleWidth: 2}
}

// BlockAlign is the number of bytes in one frame across all channels.
func (f Format) BlockAlign() int { return f.Channels * f.SampleWidth }

// ByteRate is the number of sample bytes per second.
func (f Format) ByteRate() int { return f.SampleRate * f.BlockAlign() }

// BitsPerSample is the sample width in bits.
func (f Format) BitsPerSample() int { return f.SampleWidth * 8 }

// Validate checks that every field is positive and that the derived header
// fields fit their on-disk widths.
func (f Format) Validate() error {
	switch {
	case f.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive, got %d", ErrInvalidFormat, f.Channels)
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidFormat, f.SampleRate)
	case f.SampleWidth <= 0:
		return fmt.Errorf("%w: sample width must be positive, got %d", ErrInvalidFormat, f.SampleWidth)
	case f.Channels > math.MaxUint16:
		return fmt.Errorf("%w: channels %d exceeds 16 bits", ErrInvalidFormat, f.Channels)
	case f.BlockAlign() > math.MaxUint16, f.BitsPerSample() > math.MaxUint16:
		return fmt.Errorf("%w: block align %d exceeds 16 bits", ErrInvalidFormat, f.BlockAlign())
	case int64(f.SampleRate)*int64(f.BlockAlign()) > math.MaxUint32:
		return fmt.Errorf("%w: byte rate exceeds 32 bits", ErrInvalidFormat)
	}
	return nil
}

// Duration returns the playback time of n sample bytes.
func (f Format) Duration(n int) time.Duration {
	if f.ByteRate() <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(f.ByteRate()))
}

// String implements fmt.Stringer.
func (f Format) String() string {
	return fmt.Sprintf("%dch/%dHz/%dbit", f.Channels, f.SampleRate, f.BitsPerSample())
}

// Header returns the canonical header for dataSize sample bytes.
func Header(dataSize int, f Format) ([HeaderSize]byte, error) {
	var h [HeaderSize]byte
	if err := f.Validate(); err != nil {
		return h, err
	}
	if dataSize < 0 || int64(dataSize) > math.MaxUint32-36 {
		return h, fmt.Errorf("%w: data size %d does not fit a RIFF chunk", ErrInvalidFormat, dataSize)
	}

	le := binary.LittleEndian

	// RIFF header
	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")

	// fmt subchunk
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], fmtChunkSize)
	le.PutUint16(h[20:22], FormatPCM)
	le.PutUint16(h[22:24], uint16(f.Channels))
	le.PutUint32(h[24:28], uint32(f.SampleRate))
	le.PutUint32(h[28:32], uint32(f.ByteRate()))
	le.PutUint16(h[32:34], uint16(f.BlockAlign()))
	le.PutUint16(h[34:36], uint16(f.BitsPerSample()))

	// data subchunk
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], uint32(dataSize))

	return h, nil
}

// Encode writes a canonical WAV stream (header then samples) to w.
// Sample alignment to the block size is not enforced.
func Encode(w io.Writer, samples []byte, f Format) error {
	h, err := Header(len(samples), f)
	if err != nil {
		return err
	}
	if _, err := w.Write(h[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(samples); err != nil {
		return fmt.Errorf("writing samples: %w", err)
	}
	return nil
}

// fileWriter is the sink Write buffers into; tests swap it to inject I/O errors.
var fileWriter = func(f *os.File) io.Writer { return f }

// Write creates or truncates path and stores samples in a canonical WAV
// container. The file is flushed, and synced when it is a regular file,
// before Write returns. If any write fails an ErrWrite is returned and a
// partial regular file is removed. Pipes and devices are written to but
// never removed.
func Write(path string, samples []byte, f Format) (err error) {
	// Validate before touching the filesystem so a bad format leaves no file.
	if _, err := Header(len(samples), f); err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}

	// Pipes and devices can't be synced, and a failed write must never
	// remove a node this call did not produce.
	regular := false
	if info, serr := file.Stat(); serr == nil {
		regular = info.Mode().IsRegular()
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %w", ErrWrite, path, cerr)
		}
		if err != nil && regular {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(fileWriter(file))
	if err := Encode(bw, samples, f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flushing %s: %w", ErrWrite, path, err)
	}
	if regular {
		if err := file.Sync(); err != nil {
			return fmt.Errorf("%w: syncing %s: %w", ErrWrite, path, err)
		}
	}
	return nil
}
