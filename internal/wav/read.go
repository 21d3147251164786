package wav

import (
	"encoding/binary"
	"fmt"
	"os"
)

// File is a decoded canonical WAV file.
type File struct {
	Format  Format
	Samples []byte
}

// Decode parses a canonical WAV file: a 16-byte PCM fmt chunk immediately
// followed by the data chunk. Trailing bytes past the declared data size
// are ignored.
func Decode(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("wav data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	le := binary.LittleEndian

	if string(data[0:4]) != "RIFF" {
		return nil, fmt.Errorf("invalid wav file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid wav file: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return nil, fmt.Errorf("invalid wav file: missing fmt chunk")
	}
	if size := le.Uint32(data[16:20]); size != fmtChunkSize {
		return nil, fmt.Errorf("unsupported fmt chunk size %d", size)
	}
	if tag := le.Uint16(data[20:22]); tag != FormatPCM {
		return nil, fmt.Errorf("unsupported audio format %d (only PCM is supported)", tag)
	}
	if string(data[36:40]) != "data" {
		return nil, fmt.Errorf("invalid wav file: missing data chunk")
	}

	bits := int(le.Uint16(data[34:36]))
	if bits%8 != 0 {
		return nil, fmt.Errorf("unsupported bits per sample %d", bits)
	}
	f := Format{
		Channels:    int(le.Uint16(data[22:24])),
		SampleRate:  int(le.Uint32(data[24:28])),
		SampleWidth: bits / 8,
	}

	dataSize := int64(le.Uint32(data[40:44]))
	if dataSize > int64(len(data)-HeaderSize) {
		return nil, fmt.Errorf("truncated wav data: header declares %d bytes, have %d", dataSize, len(data)-HeaderSize)
	}

	return &File{
		Format:  f,
		Samples: data[HeaderSize : HeaderSize+int(dataSize)],
	}, nil
}

// ReadFile reads and decodes the WAV file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data)
}
