package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const systemMessage = "You are a disciplined macro investment analyst. Base every statement " +
	"strictly on the data provided. State positions as OVERWEIGHT or UNDERWEIGHT with the " +
	"asset symbol, and include confidence and expected return where you can justify them."

// Client is an OpenAI-compatible chat-completion client. It treats the model
// as a pure function and carries no retry logic; transient failures surface
// to the caller.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	limiter  *RateLimiter
	client   *http.Client
}

// NewClient builds a client for the given endpoint and model. A nil limiter
// disables rate limiting.
func NewClient(endpoint, apiKey, model string, limiter *RateLimiter) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		limiter:  limiter,
		client: &http.Client{
			Transport: transport,
			// Context controls the timeout; generation can be slow.
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Generate implements Module by prompting the chat model with the structured
// analysis context.
func (c *Client) Generate(ctx context.Context, input Input) (string, error) {
	prompt := fmt.Sprintf(
		"Analytical personality: %s\n\nEconomy state analysis:\n%s\n\nAsset class relationships:\n%s\n\n"+
			"Produce specific investment recommendations.",
		input.Personality, input.EconomyState, input.AssetClassRelations)

	if c.limiter != nil {
		wait := EstimateTokens(prompt) + EstimateTokens(systemMessage)
		if err := c.limiter.Wait(ctx, c.model, wait); err != nil {
			return "", err
		}
	}

	return c.chatCompletion(ctx, []message{
		{Role: "system", Content: systemMessage},
		{Role: "user", Content: prompt},
	})
}

func (c *Client) chatCompletion(ctx context.Context, messages []message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion post: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
