package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"astrobot/internal/config"
	"astrobot/internal/pkg/metrics"
)

const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// Result carries the generated content plus usage metadata.
type Result struct {
	Content     string
	Model       string
	TokensUsed  int64
	Temperature float64
}

// Completer generates text from a prompt. Satisfied by *OpenRouterClient;
// workers take the interface so tests can substitute a fake.
type Completer interface {
	Complete(ctx context.Context, kind, prompt string) (*Result, error)
}

// OpenRouterClient calls the OpenRouter chat-completions API.
type OpenRouterClient struct {
	cfg    config.LLMConfig
	client *resty.Client
}

// NewOpenRouterClient creates an OpenRouter client from config.
func NewOpenRouterClient(cfg config.LLMConfig) *OpenRouterClient {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("HTTP-Referer", cfg.Referer).
		SetHeader("X-Title", cfg.Title)

	return &OpenRouterClient{cfg: cfg, client: client}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends the prompt and returns the generated text. kind labels the
// request for metrics (planet name, "recommendations", "question", "forecast").
func (c *OpenRouterClient) Complete(ctx context.Context, kind, prompt string) (*Result, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter: API key not configured")
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(openRouterURL)
	metrics.LLMRequestDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("openrouter error %d: %s", resp.StatusCode(), resp.String())
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("openrouter parse error: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("openrouter returned no choices")
	}

	return &Result{
		Content:     parsed.Choices[0].Message.Content,
		Model:       parsed.Model,
		TokensUsed:  parsed.Usage.TotalTokens,
		Temperature: c.cfg.Temperature,
	}, nil
}
