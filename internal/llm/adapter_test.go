package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/temirov/code-agent/internal/pipeline"
)

type recordingProvider struct {
	request pipeline.LLMRequest
	result  string
	err     error
}

func (p *recordingProvider) Complete(ctx context.Context, request pipeline.LLMRequest) (string, error) {
	p.request = request
	return p.result, p.err
}

func TestAdapterAppliesDefaults(t *testing.T) {
	provider := &recordingProvider{result: " ok "}
	adapter := Adapter{Provider: provider, DefaultModel: "codellama:7b", DefaultTemp: 0.1, DefaultTokens: 512}

	response, err := adapter.Chat(context.Background(), pipeline.LLMRequest{UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if response.RawText != "ok" {
		t.Fatalf("unexpected response %q", response.RawText)
	}
	if provider.request.Model != "codellama:7b" || provider.request.Temperature != 0.1 || provider.request.MaxTokens != 512 {
		t.Fatalf("defaults not applied: %+v", provider.request)
	}

	_, _ = adapter.Chat(context.Background(), pipeline.LLMRequest{UserPrompt: "u", Model: "other", Temperature: 0.7, MaxTokens: 10})
	if provider.request.Model != "other" || provider.request.Temperature != 0.7 || provider.request.MaxTokens != 10 {
		t.Fatalf("explicit values overridden: %+v", provider.request)
	}
}

func TestAdapterTurnsFailuresIntoMarkerText(t *testing.T) {
	adapter := Adapter{Provider: &recordingProvider{err: errors.New("connection refused")}}

	response, err := adapter.Chat(context.Background(), pipeline.LLMRequest{UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Chat must not fail: %v", err)
	}
	if response.RawText != "[ERROR] LLM request failed: connection refused" {
		t.Fatalf("unexpected marker text %q", response.RawText)
	}
	if !IsErrorText(response.RawText) {
		t.Fatalf("expected IsErrorText to recognise marker")
	}
	if got := adapter.Generate(context.Background(), "p"); got != response.RawText {
		t.Fatalf("Generate returned %q", got)
	}
}

func TestRegistry(t *testing.T) {
	registry := DefaultRegistry()
	if names := registry.Names(); len(names) != 2 || names[0] != ProviderOllama || names[1] != ProviderOpenAI {
		t.Fatalf("unexpected providers %v", names)
	}
	provider, err := registry.Create("Ollama", ProviderSettings{})
	if err != nil {
		t.Fatalf("create ollama: %v", err)
	}
	if client, ok := provider.(OllamaClient); !ok || client.HTTPBaseURL != DefaultOllamaEndpoint {
		t.Fatalf("unexpected provider %#v", provider)
	}
	if _, err := registry.Create("openai", ProviderSettings{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if _, err := registry.Create("bard", ProviderSettings{}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}
