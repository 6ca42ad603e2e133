package llm

import (
	"fmt"
	"sort"
	"strings"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type ProviderSettings struct {
	Endpoint string
	APIKey   string
}

type Factory func(settings ProviderSettings) (Provider, error)

// Registry maps provider names to factories.
type Registry struct{ providers map[string]Factory }

func NewRegistry() *Registry { return &Registry{providers: map[string]Factory{}} }

// DefaultRegistry knows the ollama and openai providers.
func DefaultRegistry() *Registry {
	registry := NewRegistry()
	registry.Register(ProviderOllama, func(settings ProviderSettings) (Provider, error) {
		return NewOllamaClient(settings.Endpoint), nil
	})
	registry.Register(ProviderOpenAI, func(settings ProviderSettings) (Provider, error) {
		client, err := NewOpenAIClient(settings.APIKey, settings.Endpoint)
		if err != nil {
			return nil, err
		}
		return client, nil
	})
	return registry
}

func (r *Registry) Register(name string, factory Factory) {
	r.providers[strings.ToLower(name)] = factory
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Create(name string, settings ProviderSettings) (Provider, error) {
	factory, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return factory(settings)
}
