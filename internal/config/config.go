// Package config handles loading and validating the speakwav configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the root configuration for speakwav.
type Config struct {
	Output    OutputConfig    `mapstructure:"output"`
	TTS       TTSConfig       `mapstructure:"tts"`
	Synthesis SynthesisConfig `mapstructure:"synthesis"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OutputConfig controls where the WAV file is written.
type OutputConfig struct {
	Path string `mapstructure:"path"`
	Play bool   `mapstructure:"play"` // play the file after writing it
}

// SynthesisConfig holds per-request synthesis settings.
type SynthesisConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"` // zero means no deadline
	Language string        `mapstructure:"language"`
	Voice    string        `mapstructure:"voice"` // overrides the backend default
}

// ServerConfig holds the serve-mode listener settings.
type ServerConfig struct {
	HTTPPort   int `mapstructure:"http_port"`
	GRPCPort   int `mapstructure:"grpc_port"` // gRPC health service; 0 disables it
	HealthPort int `mapstructure:"health_port"`
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend string       `mapstructure:"backend"` // "gemini", "piper" or "gcloud"
	Gemini  GeminiConfig `mapstructure:"gemini"`
	Piper   PiperConfig  `mapstructure:"piper"`
	GCloud  GCloudConfig `mapstructure:"gcloud"`
}

// GeminiConfig holds Gemini API speech generation settings.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Voice      string `mapstructure:"voice"`       // prebuilt voice name, e.g. "Kore"
	SampleRate int    `mapstructure:"sample_rate"` // rate of the returned PCM
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
//
// For a single Piper instance that serves all languages, set Endpoint.
// For per-language instances, set Endpoints which maps ISO-639-1 codes to
// individual Wyoming TCP endpoints. Endpoints takes precedence and Endpoint
// is the fallback.
type PiperConfig struct {
	Endpoint  string            `mapstructure:"endpoint"`  // Default Wyoming TCP endpoint (host:port)
	Endpoints map[string]string `mapstructure:"endpoints"` // ISO-639-1 language code -> Wyoming TCP endpoint
	Voices    map[string]string `mapstructure:"voices"`    // ISO-639-1 language code -> Piper voice model name
}

// GCloudConfig holds Google Cloud Text-to-Speech settings. Credentials come
// from Application Default Credentials unless CredentialsFile is set.
type GCloudConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	LanguageCode    string `mapstructure:"language_code"`
	Voice           string `mapstructure:"voice"`
	SampleRate      int    `mapstructure:"sample_rate"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./speakwav.yaml, ./configs/speakwav.yaml, /etc/speakwav/speakwav.yaml.
// A .env file in the working directory is loaded into the environment first,
// without overriding variables that are already set. The result is not
// validated; call Validate once all overrides are applied.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("output.path", "speech.wav")
	v.SetDefault("output.play", false)
	v.SetDefault("synthesis.timeout", "0s")
	v.SetDefault("synthesis.language", "en")
	v.SetDefault("synthesis.voice", "")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("tts.backend", "gemini")
	v.SetDefault("tts.gemini.api_key", "${GEMINI_API_KEY}")
	v.SetDefault("tts.gemini.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("tts.gemini.voice", "Kore")
	v.SetDefault("tts.gemini.sample_rate", 24000)
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.gcloud.credentials_file", "")
	v.SetDefault("tts.gcloud.language_code", "en-US")
	v.SetDefault("tts.gcloud.voice", "en-US-Neural2-F")
	v.SetDefault("tts.gcloud.sample_rate", 24000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("speakwav")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/speakwav")
	}

	// Environment variables: SPEAKWAV_OUTPUT_PATH, SPEAKWAV_TTS_BACKEND, etc.
	v.SetEnvPrefix("SPEAKWAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map-valued keys have no default, so AutomaticEnv never sees them.
	// SPEAKWAV_TTS_PIPER_ENDPOINTS="fr=piper-fr:10200,de=piper-de:10200"
	for _, key := range []string{"tts.piper.endpoints", "tts.piper.voices"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	// The file is optional; env vars and defaults are sufficient.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToMapHook,
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}").
	cfg.TTS.Gemini.APIKey = resolveEnvRef(cfg.TTS.Gemini.APIKey)
	cfg.TTS.GCloud.CredentialsFile = resolveEnvRef(cfg.TTS.GCloud.CredentialsFile)

	return &cfg, nil
}

// stringToMapHook decodes "k1=v1,k2=v2" into a map[string]string, the form
// map-valued keys take when they come from an environment variable.
func stringToMapHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(map[string]string{}) {
		return data, nil
	}
	return parseKeyValues(reflect.ValueOf(data).String())
}

func parseKeyValues(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, val, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid key=value pair %q", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	return out, nil
}

// Validate checks settings that would otherwise fail late, mid-request.
// Load does not call it so that command-line overrides can be applied first.
func (c *Config) Validate() error {
	switch c.TTS.Backend {
	case "gemini":
		if c.TTS.Gemini.SampleRate <= 0 {
			return fmt.Errorf("tts.gemini.sample_rate must be positive, got %d", c.TTS.Gemini.SampleRate)
		}
	case "piper":
	case "gcloud":
		if c.TTS.GCloud.SampleRate <= 0 {
			return fmt.Errorf("tts.gcloud.sample_rate must be positive, got %d", c.TTS.GCloud.SampleRate)
		}
	default:
		return fmt.Errorf("unknown tts backend %q", c.TTS.Backend)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	if c.Synthesis.Timeout < 0 {
		return fmt.Errorf("synthesis.timeout must not be negative")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
// An unset variable resolves to the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
// Logs go to stderr so stdout stays free for piping.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
