// Package llm provides the model client used by the orchestrator. It talks
// to a unified OpenAI-compatible gateway, so every model in the pool shares
// one wire protocol.
package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ModelClient issues one completion call and returns the raw text. Parsing
// the model's answer is the orchestrator's concern.
type ModelClient interface {
	Invoke(ctx context.Context, model, prompt string) (string, error)
}

// Client wraps the OpenAI SDK configured for the unified gateway.
type Client struct {
	client *openai.Client
}

// Config holds the gateway connection settings.
type Config struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a gateway-backed model client.
func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{client: openai.NewClientWithConfig(config)}
}

// Invoke sends the prompt to the named model and returns the raw content of
// the first choice. Deadlines and retries belong to the caller.
func (c *Client) Invoke(ctx context.Context, model, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   400,
	}

	log.Debug().
		Str("model", model).
		Int("prompt_len", len(prompt)).
		Msg("Invoking model")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed for %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from %s", model)
	}
	return resp.Choices[0].Message.Content, nil
}
