// Package openrouter talks to an OpenAI-compatible chat completions endpoint.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dsa-quiz-service/internal/domain"
)

const (
	DefaultURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel = "openai/gpt-oss-120b"

	systemPrompt = "You are an expert Data Structures and Algorithms instructor. Create clear, well-formatted multiple choice questions."
)

type Config struct {
	URL     string
	Model   string
	APIKey  string
	Timeout time.Duration
	Referer string
	Title   string
}

// Client calls the chat completions API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Title == "" {
		cfg.Title = "DSA Learning Platform"
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", domain.ErrAIUnavailable
	}

	body, err := json.Marshal(completionRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", c.cfg.Title)
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAIFailed, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return "", fmt.Errorf("%w: %s", domain.ErrAIFailed, res.Status)
	}

	var out completionResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode: %v", domain.ErrAIFailed, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", domain.ErrAIFailed)
	}
	return out.Choices[0].Message.Content, nil
}
