// Package polisher optionally rewords rendered narratives through an
// OpenAI-compatible chat completions API and sanitizes whatever comes back.
package polisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CredBuddy/internal/explain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
)

var ErrEmptyCompletion = errors.New("empty completion")

// Texts holds the two audience renderings.
type Texts struct {
	Entrepreneur string `json:"entrepreneur"`
	Lender       string `json:"lender"`
}

// Rewriter rewords both renderings. Output is untrusted.
type Rewriter interface {
	Rewrite(ctx context.Context, in Texts, lang explain.Language) (Texts, error)
}

// Client talks to a chat completions endpoint.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Client      *http.Client
}

// NewClient creates a client with optional proxy support.
func NewClient(baseURL, apiKey, model, proxyURL string, timeout time.Duration) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		APIKey:      apiKey,
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   1000,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Rewrite sends both texts in one request. A key missing from the reply
// keeps the input text for that audience.
func (c *Client) Rewrite(ctx context.Context, in Texts, lang explain.Language) (Texts, error) {
	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: userPrompt(in, lang)},
		},
		Temperature:    c.Temperature,
		MaxTokens:      c.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return in, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return in, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return in, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return in, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return in, fmt.Errorf("completion API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return in, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return in, ErrEmptyCompletion
	}

	var out Texts
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &out); err != nil {
		return in, fmt.Errorf("decode completion: %w", err)
	}
	if out.Entrepreneur == "" {
		out.Entrepreneur = in.Entrepreneur
	}
	if out.Lender == "" {
		out.Lender = in.Lender
	}
	return out, nil
}
