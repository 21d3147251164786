// Package server implements the speakwav HTTP API.
//
// POST /synthesize turns a JSON text request into a WAV response body. The
// generated OpenAPI document is served under /swagger/.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/nadzzz/speakwav/internal/narrate"
	"github.com/nadzzz/speakwav/internal/tts"
)

const maxRequestBytes = 1 << 20

// SynthesizeRequest is the body of POST /synthesize.
type SynthesizeRequest struct {
	// Text to synthesize.
	Text string `json:"text" example:"Hello from speakwav."`

	// Voice overrides the backend's default voice.
	Voice string `json:"voice,omitempty" example:"Kore"`

	// Language is an ISO-639-1 code used by backends that pick voices per language.
	Language string `json:"language,omitempty" example:"en"`

	// Model overrides the backend's model, where it has one.
	Model string `json:"model,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// Server serves the HTTP API.
type Server struct {
	port     int
	narrator *narrate.Narrator
	defaults tts.SynthesizeOpts
	server   *http.Server
}

// New creates a server on the given port. defaults fill in request fields
// the client leaves empty.
func New(port int, n *narrate.Narrator, defaults tts.SynthesizeOpts) *Server {
	return &Server{port: port, narrator: n, defaults: defaults}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /synthesize", s.handleSynthesize)

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// ListenAndServe starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http api listening", "port", s.port)

	go func() {
		<-ctx.Done()
		slog.Info("http api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleSynthesize processes a POST /synthesize request.
//
// @Summary     Synthesize speech
// @Description Synthesizes the given text with the configured backend and returns
// @Description a canonical 44-byte-header PCM WAV file.
// @Tags        synthesis
// @Accept      json
// @Produce     audio/wav
// @Produce     json
// @Param       request  body      SynthesizeRequest  true  "Text and voice options"
// @Success     200      {file}    binary             "WAV audio"
// @Header      200      {string}  X-Request-ID       "Request identifier"
// @Header      200      {string}  X-Audio-Format     "channels/rate/bits, e.g. 1ch/24000Hz/16bit"
// @Failure     400      {object}  ErrorResponse      "Invalid request body"
// @Failure     502      {object}  ErrorResponse      "Synthesis backend failed"
// @Router      /synthesize [post]
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", id)

	var req SynthesizeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, id, "invalid json: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, id, "text is required")
		return
	}

	opts := tts.SynthesizeOpts{Voice: req.Voice, Language: req.Language, Model: req.Model}
	if opts.Voice == "" {
		opts.Voice = s.defaults.Voice
	}
	if opts.Language == "" {
		opts.Language = s.defaults.Language
	}

	// Buffer the body so a failure never leaves a half-written 200.
	var buf bytes.Buffer
	f, err := s.narrator.Render(r.Context(), id, req.Text, opts, &buf)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.Canceled) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, id, err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Audio-Format", f.String())
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("writing response failed", "request_id", id, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, id, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{RequestID: id, Error: msg})
}
