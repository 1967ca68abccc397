package stt

import (
	"bytes"
	"context"
	"strings"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Whisper transcribes audio through the OpenAI audio endpoint.
type Whisper struct {
	api    *openai.Client
	config *config.STTConfig
}

// NewWhisper creates a Whisper transcriber. A missing API key surfaces as a
// per-call upstream failure, not a constructor error.
func NewWhisper(cfg *config.STTConfig) *Whisper {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}
	return &Whisper{api: openai.NewClientWithConfig(apiConfig), config: cfg}
}

// Transcribe uploads the clip and returns the recognized text.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", apperr.Invalidf("audio is required")
	}
	if w.config.APIKey == "" {
		return "", apperr.Upstreamf("stt", "api key not configured")
	}

	model := w.config.Model
	if model == "" {
		model = openai.Whisper1
	}
	if filename == "" {
		filename = "audio.webm"
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(w.config.Timeout))
	defer cancel()

	response, err := w.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
		Language: w.config.Language,
	})
	if err != nil {
		return "", apperr.Upstream("stt", err)
	}

	text := strings.TrimSpace(response.Text)
	logger.Debug("whisper transcription completed",
		zap.Int("audioBytes", len(audio)),
		zap.Int("chars", len(text)))
	return text, nil
}
