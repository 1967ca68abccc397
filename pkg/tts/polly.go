package tts

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/config"
)

// Polly synthesizes speech through AWS Polly. Credentials come from the
// standard AWS environment/profile chain.
type Polly struct {
	api    *polly.Client
	config *config.TTSConfig
}

// NewPolly creates a Polly synthesizer.
func NewPolly(cfg *config.TTSConfig) (*Polly, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, apperr.Upstream("tts", err)
	}
	return &Polly{api: polly.NewFromConfig(awsCfg), config: cfg}, nil
}

// Synthesize renders the text as MP3 with a neural voice.
func (p *Polly) Synthesize(ctx context.Context, req Request) (audio []byte, contentType string, err error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, "", apperr.Invalidf("text is required")
	}

	voice := req.VoiceID
	if voice == "" {
		voice = p.config.VoiceID
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(p.config.Timeout))
	defer cancel()

	out, err := p.api.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(req.Text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      pollytypes.VoiceId(voice),
		Engine:       pollytypes.EngineNeural,
	})
	if err != nil {
		return nil, "", apperr.Upstream("tts", err)
	}
	defer out.AudioStream.Close()

	audio, err = io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, "", apperr.Upstream("tts", err)
	}

	contentType = "audio/mpeg"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return audio, contentType, nil
}
