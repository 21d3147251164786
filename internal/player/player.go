// Package player plays PCM audio through the default output device.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/nadzzz/speakwav/internal/wav"
)

// ErrUnsupportedFormat is returned for sample widths oto cannot play.
var ErrUnsupportedFormat = errors.New("player: only 16-bit PCM is supported")

const pollInterval = 50 * time.Millisecond

// contextOptions maps a WAV format onto an oto context.
func contextOptions(f wav.Format) (*oto.NewContextOptions, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.SampleWidth != 2 {
		return nil, fmt.Errorf("%w: got %d-bit", ErrUnsupportedFormat, f.BitsPerSample())
	}
	return &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}, nil
}

// Play blocks until samples have been played or ctx is cancelled.
// oto allows one context per process, so Play should be called at most once.
func Play(ctx context.Context, samples []byte, f wav.Format) error {
	op, err := contextOptions(f)
	if err != nil {
		return err
	}

	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	p := otoCtx.NewPlayer(bytes.NewReader(samples))
	defer p.Close()

	slog.Info("playing audio", "format", f, "duration", f.Duration(len(samples)))
	p.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return p.Err()
}

// PlayFile reads a WAV file and plays it.
func PlayFile(ctx context.Context, path string) error {
	f, err := wav.ReadFile(path)
	if err != nil {
		return err
	}
	return Play(ctx, f.Samples, f.Format)
}
