// Package stt turns recorded caller audio into text. Whisper (OpenAI) is the
// default provider, Deepgram the alternative.
package stt

import (
	"context"
	"strings"
	"time"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
)

// Transcriber converts one complete audio clip into text. The filename hint
// carries the container format ("clip.webm", "turn.wav") for providers that
// sniff by extension.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// NewFromConfig builds the configured provider.
func NewFromConfig(cfg *config.STTConfig) (Transcriber, error) {
	if cfg == nil {
		cfg = &config.GlobalConfig.Services.STT
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "whisper", "openai":
		return NewWhisper(cfg), nil
	case "deepgram":
		return NewDeepgram(cfg), nil
	default:
		return nil, apperr.Invalidf("unknown stt provider: %s", cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
