package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/temirov/code-agent/internal/pipeline"
)

func chatCompletionPayload(content, finishReason string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 0,
		"model":   "m",
		"choices": []any{
			map[string]any{
				"index":         0,
				"finish_reason": finishReason,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestOpenAICompleteSuccess(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if err := json.NewDecoder(request.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(chatCompletionPayload("  result  ", "stop"))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	result, err := client.Complete(context.Background(), pipeline.LLMRequest{
		SystemPrompt: "system",
		UserPrompt:   "user",
		Model:        "m",
		MaxTokens:    64,
		Temperature:  0.2,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result != "result" {
		t.Fatalf("expected trimmed result, got %q", result)
	}
	messages, ok := received["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", received["messages"])
	}
	if received["model"] != "m" || received["temperature"] != 0.2 {
		t.Fatalf("unexpected request %v", received)
	}
}

func TestOpenAICompleteEmptyMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(chatCompletionPayload("", "length"))
	}))
	defer server.Close()

	client, err := NewOpenAIClient("test", server.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	if _, err := client.Complete(context.Background(), pipeline.LLMRequest{UserPrompt: "u", Model: "m"}); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(" ", ""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
