package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cppla/studytutor/config"
)

func TestCohere_Generate(t *testing.T) {
	var got cohereChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path: want=/chat got=%s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer k" {
			t.Errorf("authorization: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  Think about slopes.  "})
	}))
	defer srv.Close()

	c, err := NewCohere(Options{APIKey: "k", BaseURL: srv.URL, Temperature: 0.7, MaxTokens: 1024})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	reply, err := c.Generate(context.Background(), "what is a derivative?", "be socratic")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Think about slopes." {
		t.Fatalf("reply: %q", reply)
	}
	if got.Message != "what is a derivative?" || got.Preamble != "be socratic" || got.Model != "command" || got.MaxTokens != 1024 {
		t.Fatalf("request: %+v", got)
	}
}

func TestCohere_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"rate limited"}`))
	}))
	defer srv.Close()

	c, _ := NewCohere(Options{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "hi", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests || apiErr.Message != "rate limited" {
		t.Fatalf("want APIError 429 got %v", err)
	}
}

func TestOpenAI_Generate(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Try a smaller case."}}]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL})
	reply, err := c.Generate(context.Background(), "stuck on recursion", "tutor")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if reply != "Try a smaller case." {
		t.Fatalf("reply: %q", reply)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "stuck on recursion" {
		t.Fatalf("messages: %+v", got.Messages)
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAI(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Generate(context.Background(), "hi", ""); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("want ErrEmptyReply got %v", err)
	}
}

func TestNew_SelectsProvider(t *testing.T) {
	if _, err := New(config.AppConfig{LLMProvider: "cohere"}); err == nil {
		t.Fatalf("missing api key accepted")
	}
	c, err := New(config.AppConfig{LLMProvider: "openai", LLMAPIKey: "k"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := c.(*OpenAI); !ok {
		t.Fatalf("provider: want *OpenAI got %T", c)
	}
	if _, err := New(config.AppConfig{LLMProvider: "bard", LLMAPIKey: "k"}); err == nil {
		t.Fatalf("unknown provider accepted")
	}
}
