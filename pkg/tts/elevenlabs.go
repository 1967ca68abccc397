package tts

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
)

const (
	elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
	elevenLabsDefaultModel   = "eleven_multilingual_v2"
	elevenLabsOutputFormat   = "mp3_44100_128"
)

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	config *config.TTSConfig
}

// NewElevenLabs creates an ElevenLabs synthesizer.
func NewElevenLabs(cfg *config.TTSConfig) *ElevenLabs {
	return &ElevenLabs{config: cfg}
}

type elevenLabsBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize posts the text to /v1/text-to-speech/{voice} and returns the
// encoded audio. A 200 response that is not audio (some gateway errors come
// back as JSON) is treated as an upstream failure.
func (e *ElevenLabs) Synthesize(ctx context.Context, req Request) (audio []byte, contentType string, err error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, "", apperr.Invalidf("text is required")
	}
	if e.config.APIKey == "" {
		return nil, "", apperr.Upstreamf("tts", "api key not configured")
	}

	voice := req.VoiceID
	if voice == "" {
		voice = e.config.VoiceID
	}
	model := req.ModelID
	if model == "" {
		model = e.config.ModelID
	}
	if model == "" {
		model = elevenLabsDefaultModel
	}
	baseURL := e.config.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsDefaultBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(e.config.Timeout))
	defer cancel()

	var buf bytes.Buffer
	err = requests.
		URL(baseURL).
		Pathf("/v1/text-to-speech/%s", voice).
		Param("output_format", elevenLabsOutputFormat).
		Header("xi-api-key", e.config.APIKey).
		Accept("audio/mpeg").
		BodyJSON(&elevenLabsBody{
			Text:          req.Text,
			ModelID:       model,
			VoiceSettings: req.VoiceSettings,
		}).
		AddValidator(requests.CheckStatus(http.StatusOK)).
		AddValidator(func(res *http.Response) error {
			ct := res.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "audio/") {
				return fmt.Errorf("unexpected content type %q", ct)
			}
			contentType = ct
			return nil
		}).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, "", apperr.Upstream("tts", err)
	}

	logger.Debug("elevenlabs synthesis completed",
		zap.String("voice", voice),
		zap.Int("chars", len(req.Text)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), contentType, nil
}
