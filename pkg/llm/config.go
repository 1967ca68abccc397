package llm

import (
	"time"

	"github.com/kottzoltan/aivio/pkg/config"
)

// Config holds the configuration for the text-generation service
type Config struct {
	Provider    string        `json:"provider" yaml:"provider"`
	APIKey      string        `json:"api_key" yaml:"api_key"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	Model       string        `json:"model" yaml:"model"`
	Temperature float32       `json:"temperature" yaml:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a default configuration using global config
func DefaultConfig() *Config {
	if config.GlobalConfig == nil {
		// Fallback to hardcoded values if global config is not available
		return &Config{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.6,
			MaxTokens:   2000,
			Timeout:     30 * time.Second,
		}
	}

	llmConfig := config.GlobalConfig.Services.LLM
	return &Config{
		Provider:    llmConfig.Provider,
		APIKey:      llmConfig.APIKey,
		BaseURL:     llmConfig.BaseURL,
		Model:       llmConfig.Model,
		Temperature: llmConfig.Temperature,
		MaxTokens:   llmConfig.MaxTokens,
		Timeout:     llmConfig.Timeout,
	}
}
