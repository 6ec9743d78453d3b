package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const (
	openAIBaseURL      = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-4o-mini"
)

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	opts Options
	hc   *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAI requires an API key.
func NewOpenAI(opts Options) (*OpenAI, error) {
	if opts.APIKey == "" {
		return nil, errors.New("llm: openai api key is not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = openAIBaseURL
	}
	if opts.Model == "" {
		opts.Model = openAIDefaultModel
	}
	return &OpenAI{opts: opts, hc: httpClient(opts.Timeout)}, nil
}

// Generate sends preamble as the system message followed by the user message.
func (c *OpenAI) Generate(ctx context.Context, message, preamble string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if preamble != "" {
		messages = append(messages, chatMessage{Role: "system", Content: preamble})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	req := chatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	}
	var resp chatCompletionResponse
	url := strings.TrimRight(c.opts.BaseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, c.hc, url, c.opts.APIKey, req, &resp, openAIErrorMessage); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func openAIErrorMessage(raw []byte) string {
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil || body.Error == nil {
		return ""
	}
	return body.Error.Message
}
