package stt

import (
	"bytes"
	"context"
	"strings"

	listenapi "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
)

// Deepgram transcribes audio through the Deepgram prerecorded API.
type Deepgram struct {
	api    *listenapi.Client
	config *config.STTConfig
}

// NewDeepgram creates a Deepgram transcriber.
func NewDeepgram(cfg *config.STTConfig) *Deepgram {
	options := &interfaces.ClientOptions{}
	if cfg.BaseURL != "" {
		options.Host = cfg.BaseURL
	}
	client := listen.NewREST(cfg.APIKey, options)
	return &Deepgram{api: listenapi.New(client), config: cfg}
}

// Transcribe submits the clip as a prerecorded stream and returns the first
// channel's best alternative.
func (d *Deepgram) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", apperr.Invalidf("audio is required")
	}
	if d.config.APIKey == "" {
		return "", apperr.Upstreamf("stt", "api key not configured")
	}

	model := d.config.Model
	if model == "" || model == "whisper-1" {
		model = "nova-2"
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(d.config.Timeout))
	defer cancel()

	response, err := d.api.FromStream(ctx, bytes.NewReader(audio), &interfaces.PreRecordedTranscriptionOptions{
		Model:       model,
		Language:    d.config.Language,
		SmartFormat: true,
	})
	if err != nil {
		return "", apperr.Upstream("stt", err)
	}

	if len(response.Results.Channels) == 0 || len(response.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	text := strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript)

	logger.Debug("deepgram transcription completed",
		zap.String("model", model),
		zap.Int("audioBytes", len(audio)),
		zap.Int("chars", len(text)))
	return text, nil
}
