// speakwav sends text to a speech-synthesis backend and saves the returned
// PCM audio as a WAV file.
//
// Usage:
//
//	speakwav [flags]
//	speakwav --text "Hello" --out hello.wav
//	speakwav --text-file essay.txt --backend piper --play
//	speakwav --serve --config /path/to/speakwav.yaml
//
// @title       speakwav API
// @version     0.1.0
// @description Text-to-speech to canonical PCM WAV.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/nadzzz/speakwav/docs"
	"github.com/nadzzz/speakwav/internal/config"
	"github.com/nadzzz/speakwav/internal/health"
	"github.com/nadzzz/speakwav/internal/narrate"
	"github.com/nadzzz/speakwav/internal/player"
	"github.com/nadzzz/speakwav/internal/server"
	"github.com/nadzzz/speakwav/internal/tts"
	"github.com/nadzzz/speakwav/internal/tts/gcloud"
	"github.com/nadzzz/speakwav/internal/tts/gemini"
	"github.com/nadzzz/speakwav/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/speakwav.yaml)")
	text := flag.String("text", "", "text to synthesize (default: built-in essay)")
	textFile := flag.String("text-file", "", "read text from file, or - for stdin")
	out := flag.String("out", "", "output WAV path (overrides output.path)")
	voice := flag.String("voice", "", "voice name (overrides the backend default)")
	backend := flag.String("backend", "", "tts backend: gemini, piper or gcloud (overrides tts.backend)")
	play := flag.Bool("play", false, "play the file after saving it")
	serve := flag.Bool("serve", false, "run the HTTP API instead of a one-shot synthesis")
	flag.Parse()

	if *showVersion {
		fmt.Printf("speakwav %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, *out, *voice, *backend, *play)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Debug("speakwav starting", "version", version, "backend", cfg.TTS.Backend)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	synth, err := newSynthesizer(ctx, cfg.TTS)
	if err != nil {
		slog.Error("failed to initialize tts backend", "backend", cfg.TTS.Backend, "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	narrator := narrate.New(synth, narrate.WithTimeout(cfg.Synthesis.Timeout))
	opts := tts.SynthesizeOpts{Voice: cfg.Synthesis.Voice, Language: cfg.Synthesis.Language}

	if *serve {
		runServer(ctx, cfg.Server, narrator, opts)
		return
	}

	input, err := narrate.LoadText(*text, *textFile, os.Stdin)
	if err != nil {
		slog.Error("failed to read input text", "error", err)
		os.Exit(1)
	}

	outcome, err := narrator.Narrate(ctx, narrate.Request{
		Text:       input,
		OutputPath: cfg.Output.Path,
		Opts:       opts,
	})
	if err != nil {
		slog.Error("narration failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Audio saved as %s\n", outcome.Path)

	if cfg.Output.Play {
		if err := player.PlayFile(ctx, outcome.Path); err != nil {
			slog.Error("playback failed", "error", err)
			os.Exit(1)
		}
	}
}

// applyFlags lets command-line flags override loaded configuration.
func applyFlags(cfg *config.Config, out, voice, backend string, play bool) {
	if out != "" {
		cfg.Output.Path = out
	}
	if voice != "" {
		cfg.Synthesis.Voice = voice
	}
	if backend != "" {
		cfg.TTS.Backend = backend
	}
	if play {
		cfg.Output.Play = true
	}
}

func newSynthesizer(ctx context.Context, cfg config.TTSConfig) (tts.Synthesizer, error) {
	switch cfg.Backend {
	case "gemini":
		slog.Debug("using gemini tts", "model", cfg.Gemini.Model, "voice", cfg.Gemini.Voice)
		return gemini.New(ctx, cfg.Gemini)
	case "piper":
		slog.Debug("using piper tts", "endpoint", cfg.Piper.Endpoint)
		return piper.New(cfg.Piper), nil
	case "gcloud":
		slog.Debug("using google cloud tts", "voice", cfg.GCloud.Voice)
		return gcloud.New(ctx, cfg.GCloud)
	default:
		return nil, fmt.Errorf("unknown tts backend %q", cfg.Backend)
	}
}

func runServer(ctx context.Context, cfg config.ServerConfig, narrator *narrate.Narrator, opts tts.SynthesizeOpts) {
	healthServer := health.New(cfg.HealthPort)

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				slog.Error("listener failed", "name", name, "error", err)
			}
		}()
	}

	if cfg.GRPCPort > 0 {
		grpcHealth := health.NewGRPC(cfg.GRPCPort)
		healthServer.WithGRPC(grpcHealth)
		start("grpc-health", grpcHealth.ListenAndServe)
	}
	start("health", healthServer.ListenAndServe)
	start("http", server.New(cfg.HTTPPort, narrator, opts).ListenAndServe)

	healthServer.SetReady(true)
	slog.Info("speakwav ready", "http_port", cfg.HTTPPort, "health_port", cfg.HealthPort)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	healthServer.SetReady(false)

	wg.Wait()
	slog.Info("speakwav stopped")
}
