// Package gcloud implements the TTS Synthesizer using Google Cloud Text-to-Speech.
//
// LINEAR16 responses arrive wrapped in a WAV header. The header is parsed to
// learn the actual format and then dropped, so the synthesizer hands back
// bare PCM like every other backend.
package gcloud

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/nadzzz/speakwav/internal/config"
	"github.com/nadzzz/speakwav/internal/tts"
	"github.com/nadzzz/speakwav/internal/wav"
)

type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Synthesizer implements tts.Synthesizer using the Cloud TTS gRPC API.
type Synthesizer struct {
	client       speechClient
	languageCode string
	voice        string
	sampleRate   int
}

// New dials Cloud Text-to-Speech.
func New(ctx context.Context, cfg config.GCloudConfig) (*Synthesizer, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("texttospeech.NewClient: %w", err)
	}
	return newWithClient(client, cfg), nil
}

func newWithClient(c speechClient, cfg config.GCloudConfig) *Synthesizer {
	return &Synthesizer{
		client:       c,
		languageCode: cfg.LanguageCode,
		voice:        cfg.Voice,
		sampleRate:   cfg.SampleRate,
	}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "gcloud" }

// Synthesize requests LINEAR16 audio and strips the WAV framing.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	voice, lang := s.voice, s.languageCode
	if opts.Voice != "" {
		voice = opts.Voice
		lang = languageFromVoice(opts.Voice, lang)
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
			SampleRateHertz: int32(s.sampleRate),
		},
	}

	slog.Debug("gcloud synthesize", "voice", voice, "language", lang, "text_length", len(text))

	resp, err := s.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("SynthesizeSpeech: %w", err)
	}

	f, err := wav.Decode(resp.GetAudioContent())
	if err != nil {
		return nil, fmt.Errorf("decoding LINEAR16 response: %w", err)
	}
	return &tts.SynthesizeResult{
		Audio:  f.Samples,
		Format: f.Format,
	}, nil
}

// languageFromVoice extracts "en-US" from a voice name like "en-US-Neural2-F".
func languageFromVoice(voice, fallback string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return fallback
	}
	return parts[0] + "-" + parts[1]
}

// Close closes the underlying gRPC connection.
func (s *Synthesizer) Close() error {
	return s.client.Close()
}
