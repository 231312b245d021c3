package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// FallbackDefaultSource marks the sentinel answer emitted when every
// provider in the chain failed.
const FallbackDefaultSource = "fallback_default"

const providerTimeout = 20 * time.Second

// AssistantChain serves assistant-only tasks (summaries for enrichers, not
// core forecasting) by walking an ordered provider list until one answers.
// It always terminates with a structured result; callers never see an
// error, only the sentinel source.
type AssistantChain struct {
	http      *resty.Client
	providers []string
	sentinel  string
}

// NewAssistantChain builds the chain against an OpenAI-compatible
// completions URL (OpenRouter by default).
func NewAssistantChain(apiURL, apiKey string, providers []string) *AssistantChain {
	return &AssistantChain{
		http: resty.New().
			SetBaseURL(apiURL).
			SetTimeout(providerTimeout).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
		providers: providers,
		sentinel:  "No summary available.",
	}
}

// AssistantResult is the structured answer of the chain.
type AssistantResult struct {
	Text   string
	Source string
}

type chainRequest struct {
	Model    string         `json:"model"`
	Messages []chainMessage `json:"messages"`
}

type chainMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chainResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Ask walks the providers in declared order; the first success wins. With
// the chain exhausted the sentinel literal is returned so callers always
// get a value.
func (c *AssistantChain) Ask(ctx context.Context, prompt string) AssistantResult {
	for _, provider := range c.providers {
		text, err := c.askProvider(ctx, provider, prompt)
		if err != nil {
			log.Warn().
				Str("provider", provider).
				Err(err).
				Msg("Assistant provider failed")
			continue
		}
		return AssistantResult{Text: text, Source: provider}
	}

	log.Warn().
		Int("providers", len(c.providers)).
		Msg("Assistant chain exhausted, emitting default")
	return AssistantResult{Text: c.sentinel, Source: FallbackDefaultSource}
}

func (c *AssistantChain) askProvider(ctx context.Context, provider, prompt string) (string, error) {
	body := chainRequest{
		Model: provider,
		Messages: []chainMessage{
			{Role: "user", Content: prompt},
		},
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("")

	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("provider returned %d", resp.StatusCode())
	}

	var parsed chainResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("invalid response body: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}
