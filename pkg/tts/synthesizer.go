// Package tts turns reply text into audio. Two providers are supported:
// ElevenLabs over its REST API and AWS Polly through the SDK.
package tts

import (
	"context"
	"strings"
	"time"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
)

// VoiceSettings tunes synthesis expressiveness. Zero values fall back to the
// provider defaults set in NewRequest.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// Request is one synthesis job.
type Request struct {
	Text          string
	VoiceID       string
	ModelID       string
	VoiceSettings VoiceSettings
}

// NewRequest builds a request with tuned defaults for Hungarian phone audio.
func NewRequest(text string) Request {
	return Request{
		Text: text,
		VoiceSettings: VoiceSettings{
			Stability:       0.45,
			SimilarityBoost: 0.85,
			Style:           0.25,
			UseSpeakerBoost: true,
		},
	}
}

// Synthesizer produces complete audio for a piece of text. Implementations
// return the raw encoded audio plus its MIME type.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (audio []byte, contentType string, err error)
}

// NewFromConfig builds the configured provider.
func NewFromConfig(cfg *config.TTSConfig) (Synthesizer, error) {
	if cfg == nil {
		cfg = &config.GlobalConfig.Services.TTS
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "elevenlabs":
		return NewElevenLabs(cfg), nil
	case "polly":
		return NewPolly(cfg)
	default:
		return nil, apperr.Invalidf("unknown tts provider: %s", cfg.Provider)
	}
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return d
}
