// Package narrate implements the text-to-WAV pipeline.
//
// A narration is a single synchronous pass: synthesize the text with the
// configured backend, then frame the returned PCM in a WAV container. The
// synthesizer is the only network collaborator; the container is written
// with package wav.
package narrate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/speakwav/internal/tts"
	"github.com/nadzzz/speakwav/internal/wav"
)

// Request is one narration job.
type Request struct {
	// ID identifies the job in logs. Generated when empty.
	ID string

	// Text is the input to synthesize.
	Text string

	// OutputPath is the destination WAV file.
	OutputPath string

	// Opts is passed through to the synthesizer.
	Opts tts.SynthesizeOpts
}

// Outcome describes a written file.
type Outcome struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Bytes    int           `json:"bytes"` // sample bytes, excluding the header
	Format   wav.Format    `json:"format"`
	Duration time.Duration `json:"duration"`
}

// Narrator runs requests against one synthesizer.
type Narrator struct {
	synth   tts.Synthesizer
	timeout time.Duration
}

// Option configures a Narrator.
type Option func(*Narrator)

// WithTimeout bounds each synthesis call. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(n *Narrator) { n.timeout = d }
}

// New creates a Narrator.
func New(synth tts.Synthesizer, opts ...Option) *Narrator {
	n := &Narrator{synth: synth}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Narrate synthesizes req.Text and writes it to req.OutputPath.
func (n *Narrator) Narrate(ctx context.Context, req Request) (*Outcome, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID, "backend", n.synth.Name())

	res, err := n.synthesize(ctx, logger, req.Text, req.Opts)
	if err != nil {
		return nil, err
	}

	if err := wav.Write(req.OutputPath, res.Audio, res.Format); err != nil {
		logger.Error("writing wav failed", "path", req.OutputPath, "error", err)
		return nil, fmt.Errorf("saving audio: %w", err)
	}

	out := &Outcome{
		ID:       req.ID,
		Path:     req.OutputPath,
		Bytes:    len(res.Audio),
		Format:   res.Format,
		Duration: res.Format.Duration(len(res.Audio)),
	}
	logger.Info("audio saved", "path", out.Path, "bytes", out.Bytes, "format", out.Format, "duration", out.Duration)
	return out, nil
}

// Render synthesizes text and streams the WAV container to w.
// The returned format describes what was written.
func (n *Narrator) Render(ctx context.Context, id, text string, opts tts.SynthesizeOpts, w io.Writer) (wav.Format, error) {
	logger := slog.With("request_id", id, "backend", n.synth.Name())

	res, err := n.synthesize(ctx, logger, text, opts)
	if err != nil {
		return wav.Format{}, err
	}
	if err := wav.Encode(w, res.Audio, res.Format); err != nil {
		return wav.Format{}, fmt.Errorf("encoding wav: %w", err)
	}
	return res.Format, nil
}

func (n *Narrator) synthesize(ctx context.Context, logger *slog.Logger, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Info("synthesis started", "text_length", len(text), "voice", opts.Voice, "language", opts.Language)

	res, err := n.synth.Synthesize(ctx, text, opts)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	if err := res.Format.Validate(); err != nil {
		return nil, fmt.Errorf("%s returned %w", n.synth.Name(), err)
	}

	logger.Info("synthesis complete", "pcm_bytes", len(res.Audio), "elapsed", time.Since(start))
	return res, nil
}
