// Package assistant talks to an OpenAI-compatible chat-completions endpoint.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"officepulse/errors"
)

const (
	DefaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "llama-3.1-8b-instant"
)

const SystemPrompt = `You are an intelligent AI assistant for OfficePulse, a modern workplace management platform. You can answer any type of question, but you specialize in:

- Business and corporate operations
- OfficePulse platform features (desk booking, analytics, security)
- Workplace management and hybrid work strategies
- HR and employee relations
- Economics and finance
- Technology and innovation

When responding:
1. Be helpful, professional, and conversational
2. Provide accurate and detailed information
3. If asked about OfficePulse specifically, highlight features like real-time desk booking, AI-powered analytics, enterprise security, and booking management
4. For general questions outside your specialty, still provide helpful answers but mention your expertise areas
5. Keep responses concise but informative
6. Always maintain a friendly and supportive tone

Remember: You can answer ANY type of question, but your specialty is in business, corporate, and OfficePulse domain-related topics.`

type Config struct {
	URL          string
	APIKey       string
	Model        string
	SystemPrompt string
}

type Client struct {
	url          string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
}

func NewClient(config Config, httpClient *http.Client) *Client {
	if config.URL == "" {
		config.URL = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = SystemPrompt
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		url:          config.URL,
		apiKey:       config.APIKey,
		model:        config.Model,
		systemPrompt: config.SystemPrompt,
		httpClient:   httpClient,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Complete sends one stateless exchange, system prompt plus the user prompt, and returns the answer.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured", errors.ErrAssistantAuth)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", errors.ErrAssistantAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", errors.ErrAssistantRateLimit, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", errors.ErrAssistantUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.ErrAssistantEmpty
	}
	return out.Choices[0].Message.Content, nil
}
