// Package gemini implements the TTS Synthesizer using Gemini speech generation.
//
// The model is asked for the AUDIO response modality with a prebuilt voice.
// Gemini answers with a single inline-data part holding raw 16-bit mono PCM
// (no container header), typically at 24 kHz. The rate is taken from the
// part's MIME type (audio/L16;codec=pcm;rate=24000) when it carries one and
// from tts.gemini.sample_rate otherwise.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strconv"

	"google.golang.org/genai"

	"github.com/nadzzz/speakwav/internal/config"
	"github.com/nadzzz/speakwav/internal/tts"
	"github.com/nadzzz/speakwav/internal/wav"
)

// ErrNoAudio is returned when the response carries no inline audio part.
var ErrNoAudio = errors.New("gemini response contains no audio")

// generator is the subset of *genai.Models used by the synthesizer.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Synthesizer implements tts.Synthesizer on top of the Gemini API.
type Synthesizer struct {
	models generator
	model  string
	voice  string
	format wav.Format
}

// New creates a Gemini synthesizer. The API key must be non-empty.
func New(ctx context.Context, cfg config.GeminiConfig) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not set (tts.gemini.api_key or GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return newWithGenerator(client.Models, cfg), nil
}

func newWithGenerator(g generator, cfg config.GeminiConfig) *Synthesizer {
	return &Synthesizer{
		models: g,
		model:  cfg.Model,
		voice:  cfg.Voice,
		format: wav.Mono16(cfg.SampleRate),
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gemini" }

// Synthesize issues one GenerateContent call and extracts the PCM payload.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	model := s.model
	if opts.Model != "" {
		model = opts.Model
	}
	voice := s.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voice,
				},
			},
		},
	}

	slog.Debug("gemini synthesize", "model", model, "voice", voice, "text_length", len(text))

	resp, err := s.models.GenerateContent(ctx, model, genai.Text(text), genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	blob, err := inlineAudio(resp)
	if err != nil {
		return nil, err
	}
	format := formatFromMIME(blob.MIMEType, s.format)

	slog.Debug("gemini audio received", "pcm_bytes", len(blob.Data), "mime_type", blob.MIMEType, "format", format)
	return &tts.SynthesizeResult{
		Audio:  blob.Data,
		Format: format,
	}, nil
}

// inlineAudio returns the first candidate's first part's inline blob.
func inlineAudio(resp *genai.GenerateContentResponse) (*genai.Blob, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrNoAudio)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrNoAudio)
	}
	part := content.Parts[0]
	if part == nil || part.InlineData == nil {
		return nil, fmt.Errorf("%w: first part has no inline data", ErrNoAudio)
	}
	return part.InlineData, nil
}

// formatFromMIME applies the rate and channels parameters of an L16 MIME
// type to fallback. Missing or malformed parameters keep the fallback value.
func formatFromMIME(mimeType string, fallback wav.Format) wav.Format {
	if mimeType == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		slog.Warn("unparseable gemini audio mime type", "mime_type", mimeType, "error", err)
		return fallback
	}

	f := fallback
	if n, err := strconv.Atoi(params["rate"]); err == nil && n > 0 {
		f.SampleRate = n
	}
	if n, err := strconv.Atoi(params["channels"]); err == nil && n > 0 {
		f.Channels = n
	}
	return f
}

// Close is a no-op; the genai client holds no long-lived connections.
func (s *Synthesizer) Close() error { return nil }
