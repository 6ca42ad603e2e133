package llm

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/pipeline"
)

// ErrorMarker prefixes the text returned in place of a transport failure.
const ErrorMarker = "[ERROR] LLM request failed: "

// Provider is a concrete model backend.
type Provider interface {
	Complete(ctx context.Context, request pipeline.LLMRequest) (string, error)
}

// Adapter implements pipeline.LLMClient on top of a Provider. It fills request
// defaults and never returns an error: failures become ErrorMarker text so
// that callers degrade to "no code detected" instead of aborting.
type Adapter struct {
	Provider      Provider
	DefaultModel  string
	DefaultTemp   float64
	DefaultTokens int
	Logger        *zap.Logger
}

func (a Adapter) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = a.DefaultModel
	}
	resolved := pipeline.LLMRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Model:        model,
		MaxTokens:    chooseInt(req.MaxTokens, a.DefaultTokens),
		Temperature:  chooseFloat(req.Temperature, a.DefaultTemp),
	}
	out, err := a.Provider.Complete(ctx, resolved)
	if err != nil {
		a.logger().Warn("llm request failed", zap.String("model", model), zap.Error(err))
		return pipeline.LLMResponse{RawText: ErrorMarker + err.Error()}, nil
	}
	return pipeline.LLMResponse{RawText: strings.TrimSpace(out)}, nil
}

// Generate sends a single user prompt and returns the raw text.
func (a Adapter) Generate(ctx context.Context, prompt string) string {
	response, _ := a.Chat(ctx, pipeline.LLMRequest{UserPrompt: prompt})
	return response.RawText
}

// IsErrorText reports whether text is a transport failure produced by Adapter.
func IsErrorText(text string) bool { return strings.HasPrefix(text, ErrorMarker) }

func (a Adapter) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func chooseInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func chooseFloat(a, b float64) float64 {
	if a > 0 {
		return a
	}
	return b
}
