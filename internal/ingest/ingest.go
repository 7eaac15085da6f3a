// Package ingest turns one free-text utterance into a validated task draft
// via an external chat-completions call. The model resolves relative dates
// ("tomorrow at 9:30") itself; no date arithmetic happens here, which is
// why the prompt embeds the caller's timezone and current local time.
package ingest

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
)

// Ingestion failure taxonomy. All are surfaced to the caller as displayable
// errors; none leave a partial task behind.
var (
	ErrEmptyInput        = errors.New("input is empty")
	ErrMissingCredential = errors.New("missing API credential")
	ErrNoStructuredData  = errors.New("no structured data in model response")
	ErrEmptyTitle        = errors.New("model returned an empty title")
)

// Draft is a validated candidate task produced from one utterance. The
// caller commits it through the same store path as a manual add.
type Draft struct {
	Title   string
	DueDate *time.Time
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	now        func() time.Time
}

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// NewClient creates an ingestion client. Empty baseURL and model fall back
// to the OpenAI defaults.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		now: time.Now,
	}
}

// Ingest sends the utterance to the completion endpoint and returns a
// validated draft. The credential is caller-supplied and checked before any
// network call. Never retries, never partially commits.
func (c *Client) Ingest(ctx context.Context, apiKey, text string) (*Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if apiKey == "" {
		return nil, ErrMissingCredential
	}

	prompt := buildPrompt(text, c.now())
	reply, err := c.complete(ctx, apiKey, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	return parseDraft(reply)
}

// --- Chat-completions transport ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, apiKey, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("completion endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
