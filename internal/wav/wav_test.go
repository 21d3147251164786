package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteEmptyMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")

	require.NoError(t, Write(path, []byte{}, Mono16(24000)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, HeaderSize)
	require.Equal(t, uint32(36), binary.LittleEndian.Uint32(data[4:8]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(data[40:44]))
	require.Equal(t, uint32(24000), binary.LittleEndian.Uint32(data[24:28]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[28:32]))
}

func TestWriteStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	samples := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	f := Format{Channels: 2, SampleRate: 44100, SampleWidth: 2}

	require.NoError(t, Write(path, samples, f))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 52)

	le := binary.LittleEndian
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, uint32(44), le.Uint32(data[4:8]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "fmt ", string(data[12:16]))
	require.Equal(t, uint32(16), le.Uint32(data[16:20]))
	require.Equal(t, uint16(1), le.Uint16(data[20:22]))
	require.Equal(t, uint16(2), le.Uint16(data[22:24]))
	require.Equal(t, uint32(44100), le.Uint32(data[24:28]))
	require.Equal(t, uint32(176400), le.Uint32(data[28:32]))
	require.Equal(t, uint16(4), le.Uint16(data[32:34]))
	require.Equal(t, uint16(16), le.Uint16(data[34:36]))
	require.Equal(t, "data", string(data[36:40]))
	require.Equal(t, uint32(8), le.Uint32(data[40:44]))
	require.Equal(t, samples, data[44:])
}

func TestWriteRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		samples []byte
	}{
		{"empty mono", Mono16(24000), nil},
		{"mono 16-bit", Mono16(22050), []byte{0x00, 0x80, 0xff, 0x7f}},
		{"stereo 8-bit", Format{Channels: 2, SampleRate: 8000, SampleWidth: 1}, []byte{1, 2, 3, 4, 5, 6}},
		{"6ch 24-bit", Format{Channels: 6, SampleRate: 48000, SampleWidth: 3}, bytes.Repeat([]byte{0xab}, 18*10)},
		{"unaligned", Mono16(16000), []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			require.NoError(t, Write(path, tt.samples, tt.format))

			got, err := ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, tt.format, got.Format)
			require.Equal(t, len(tt.samples), len(got.Samples))
			if len(tt.samples) > 0 {
				require.Equal(t, tt.samples, got.Samples)
			}

			info, err := os.Stat(path)
			require.NoError(t, err)
			require.Equal(t, int64(HeaderSize+len(tt.samples)), info.Size())
		})
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	samples := bytes.Repeat([]byte{0x12, 0x34}, 500)
	f := Mono16(24000)

	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	require.NoError(t, Write(a, samples, f))
	require.NoError(t, Write(b, samples, f))

	da, err := os.ReadFile(a)
	require.NoError(t, err)
	db, err := os.ReadFile(b)
	require.NoError(t, err)
	require.Equal(t, da, db)
}

func TestWriteTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xff}, 4096), 0o644))

	require.NoError(t, Write(path, []byte{1, 2}, Mono16(8000)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(HeaderSize+2), info.Size())
}

func TestWriteMissingParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.wav")

	err := Write(path, []byte{1, 2}, Mono16(24000))
	require.ErrorIs(t, err, ErrResource)
	require.NotErrorIs(t, err, ErrWrite)

	var pathErr *fs.PathError
	require.ErrorAs(t, err, &pathErr)

	_, statErr := os.Stat(path)
	require.ErrorIs(t, statErr, fs.ErrNotExist)
}

func TestWriteInvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		format Format
	}{
		{"zero channels", Format{Channels: 0, SampleRate: 24000, SampleWidth: 2}},
		{"negative rate", Format{Channels: 1, SampleRate: -1, SampleWidth: 2}},
		{"zero width", Format{Channels: 1, SampleRate: 24000, SampleWidth: 0}},
		{"too many channels", Format{Channels: 70000, SampleRate: 24000, SampleWidth: 1}},
		{"byte rate overflow", Format{Channels: 1000, SampleRate: 4_000_000_000 / 1000, SampleWidth: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")

			err := Write(path, []byte{1, 2}, tt.format)
			require.ErrorIs(t, err, ErrInvalidFormat)

			_, statErr := os.Stat(path)
			require.ErrorIs(t, statErr, fs.ErrNotExist)
		})
	}
}

type failingWriter struct {
	after int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n >= w.after {
		return 0, errors.New("disk full")
	}
	w.n++
	return len(p), nil
}

func TestEncodeSurfacesWriteErrors(t *testing.T) {
	err := Encode(&failingWriter{after: 0}, []byte{1, 2}, Mono16(24000))
	require.ErrorContains(t, err, "writing header")

	err = Encode(&failingWriter{after: 1}, []byte{1, 2}, Mono16(24000))
	require.ErrorContains(t, err, "writing samples")
}

func TestEncodeMatchesWrite(t *testing.T) {
	samples := []byte{9, 8, 7, 6}
	f := Format{Channels: 2, SampleRate: 16000, SampleWidth: 2}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, samples, f))

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, Write(path, samples, f))
	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, onDisk, buf.Bytes())
}

func TestDecodeRejectsMalformed(t *testing.T) {
	valid, err := Header(4, Mono16(24000))
	require.NoError(t, err)
	good := append(valid[:], 1, 2, 3, 4)

	corrupt := func(off int, b string) []byte {
		d := append([]byte(nil), good...)
		copy(d[off:], b)
		return d
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr string
	}{
		{"short", good[:20], "too short"},
		{"riff", corrupt(0, "RIFX"), "missing RIFF"},
		{"wave", corrupt(8, "AVI "), "missing WAVE"},
		{"fmt", corrupt(12, "junk"), "missing fmt"},
		{"data", corrupt(36, "LIST"), "missing data"},
		{"float", corrupt(20, "\x03\x00"), "unsupported audio format"},
		{"truncated", good[:46], "truncated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	require.Equal(t, time.Second, Mono16(24000).Duration(48000))
	require.Equal(t, 500*time.Millisecond, Format{Channels: 2, SampleRate: 44100, SampleWidth: 2}.Duration(88200))
	require.Equal(t, time.Duration(0), Format{}.Duration(100))
}

func TestFormatString(t *testing.T) {
	require.Equal(t, "1ch/24000Hz/16bit", Mono16(24000).String())
}

func withFileWriter(t *testing.T, wrap func(f *os.File) io.Writer) {
	t.Helper()
	orig := fileWriter
	fileWriter = wrap
	t.Cleanup(func() { fileWriter = orig })
}

func TestWriteFailureRemovesFile(t *testing.T) {
	tests := []struct {
		name    string
		samples []byte
		wantErr string
	}{
		// Fits the bufio buffer, so the failure surfaces on Flush.
		{"flush", []byte{1, 2, 3, 4}, "flushing"},
		// Larger than the buffer, so the body write itself fails.
		{"body", bytes.Repeat([]byte{0x7f}, 16<<10), "writing samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFileWriter(t, func(*os.File) io.Writer { return &failingWriter{after: 0} })
			path := filepath.Join(t.TempDir(), "out.wav")

			err := Write(path, tt.samples, Mono16(24000))
			require.ErrorIs(t, err, ErrWrite)
			require.NotErrorIs(t, err, ErrResource)
			require.ErrorContains(t, err, tt.wantErr)

			_, statErr := os.Stat(path)
			require.ErrorIs(t, statErr, fs.ErrNotExist)
		})
	}
}

// quotaWriter accepts up to remaining bytes, then fails like a full disk.
type quotaWriter struct {
	w         io.Writer
	remaining int
}

func (q *quotaWriter) Write(p []byte) (int, error) {
	if len(p) <= q.remaining {
		n, err := q.w.Write(p)
		q.remaining -= n
		return n, err
	}
	n, _ := q.w.Write(p[:q.remaining])
	q.remaining -= n
	return n, errors.New("no space left on device")
}

func TestWriteFailureAfterHeader(t *testing.T) {
	var quota *quotaWriter
	withFileWriter(t, func(f *os.File) io.Writer {
		quota = &quotaWriter{w: f, remaining: HeaderSize}
		return quota
	})
	path := filepath.Join(t.TempDir(), "out.wav")

	err := Write(path, bytes.Repeat([]byte{1}, 16<<10), Mono16(24000))
	require.ErrorIs(t, err, ErrWrite)
	require.ErrorContains(t, err, "no space left on device")
	require.Equal(t, 0, quota.remaining)

	_, statErr := os.Stat(path)
	require.ErrorIs(t, statErr, fs.ErrNotExist)
}
