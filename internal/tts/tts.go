// Package tts defines the interface for text-to-speech synthesis.
//
// Every backend returns raw interleaved PCM together with the format it was
// synthesized in. Framing the samples in a container is the caller's job
// (see package wav), so backends never agree on a file format among
// themselves.
package tts

import (
	"context"
	"errors"

	"github.com/nadzzz/speakwav/internal/wav"
)

// ErrEmptyText is returned by every backend when asked to synthesize "".
var ErrEmptyText = errors.New("empty text for synthesis")

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Language is the ISO-639-1 code (e.g., "en", "fr", "es") to select the voice.
	Language string

	// Voice overrides automatic language-based voice selection.
	Voice string

	// Model overrides the backend's configured model, where the backend has one.
	Model string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "gemini", "piper").
	Name() string

	// Synthesize generates raw PCM audio from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is raw interleaved linear PCM, no container header.
	Audio []byte

	// Format describes Audio.
	Format wav.Format
}
