// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/sitebot/internal/config"
)

var (
	// ErrMissingAPIKey is returned by New when no API key is configured
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")
	// ErrEmptyResponse is returned when the API answers without choices
	ErrEmptyResponse = errors.New("chat completion returned no choices")
)

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the request payload for /chat/completions
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatChoice is one completion alternative
type ChatChoice struct {
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
	Message      Message `json:"message"`
}

// ChatResponse is the response structure of /chat/completions
type ChatResponse struct {
	Choices []ChatChoice `json:"choices"`
}

// Client sends single-prompt completions
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

// New creates a Client from the LLM configuration
func New(cfg config.LLMConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultLLMBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultLLMModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
	}, nil
}

// Model returns the model name sent with every request
func (c *Client) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the content
// of the first choice.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	reqBody, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Debug("Sending chat completion", "model", c.model, "prompt_len", len(prompt), "max_tokens", maxTokens)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request to LLM API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM API response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}
