package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	cohereBaseURL      = "https://api.cohere.ai/v1"
	cohereDefaultModel = "command"
)

// Cohere calls the Cohere chat endpoint.
type Cohere struct {
	opts Options
	hc   *http.Client
}

type cohereChatRequest struct {
	Message     string  `json:"message"`
	Preamble    string  `json:"preamble,omitempty"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type cohereChatResponse struct {
	Text string `json:"text"`
}

// NewCohere requires an API key.
func NewCohere(opts Options) (*Cohere, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm: cohere api key is not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = cohereBaseURL
	}
	if opts.Model == "" {
		opts.Model = cohereDefaultModel
	}
	return &Cohere{opts: opts, hc: httpClient(opts.Timeout)}, nil
}

// Generate sends one chat turn with preamble as the system context.
func (c *Cohere) Generate(ctx context.Context, message, preamble string) (string, error) {
	req := cohereChatRequest{
		Message:     message,
		Preamble:    preamble,
		Model:       c.opts.Model,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}
	var resp cohereChatResponse
	url := strings.TrimRight(c.opts.BaseURL, "/") + "/chat"
	if err := postJSON(ctx, c.hc, url, c.opts.APIKey, req, &resp, cohereErrorMessage); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func cohereErrorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.Message
}
