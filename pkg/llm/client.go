// Package llm wraps the text-generation collaborator. The client is
// stateless: conversation history lives with the call session (or the
// caller) and is passed in per request.
package llm

import (
	"context"
	"strings"

	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// Message is one prior turn handed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation roles accepted in history entries.
const (
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Client talks to an OpenAI-compatible chat-completion endpoint.
type Client struct {
	api    *openai.Client
	config *Config
	logger *logrus.Logger
}

// NewClient creates a generation client. A missing API key is not a
// constructor error; it surfaces as a per-call upstream failure so the
// service stays reachable when unconfigured.
func NewClient(cfg *Config, logger *logrus.Logger) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiConfig.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:    openai.NewClientWithConfig(apiConfig),
		config: cfg,
		logger: logger,
	}
}

// Reply submits {instruction, history, userText} as one ordered conversation
// and returns the complete generated text. An empty reply is returned as ""
// with a nil error; the caller decides the fallback.
func (c *Client) Reply(ctx context.Context, instruction string, history []Message, userText string) (string, error) {
	if c.config.APIKey == "" {
		return "", apperr.Upstreamf("llm", "api key not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: instruction,
	})
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userText,
	})

	request := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	response, err := c.api.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", apperr.Upstream("llm", err)
	}

	if len(response.Choices) == 0 {
		return "", nil
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)

	c.logger.WithFields(logrus.Fields{
		"model":   c.config.Model,
		"history": len(history),
		"chars":   len(content),
	}).Info("LLM reply completed")

	return content, nil
}
