package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/temirov/code-agent/internal/pipeline"
)

const DefaultOpenAIModel = "gpt-4o-mini"

var ErrMissingAPIKey = errors.New("API key is required")

// OpenAIClient sends chat completions through the official SDK. Any
// OpenAI-compatible endpoint works through BaseURL.
type OpenAIClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey, baseURL string) (OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return OpenAIClient{}, ErrMissingAPIKey
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	return OpenAIClient{client: openai.NewClient(options...)}, nil
}

func (c OpenAIClient) Complete(ctx context.Context, request pipeline.LLMRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.TrimSpace(request.SystemPrompt); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(strings.TrimSpace(request.UserPrompt)))

	params := openai.ChatCompletionNewParams{
		Model:    request.Model,
		Messages: messages,
	}
	if request.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(request.MaxTokens))
	}
	// Several hosted models only accept their default temperature.
	if request.Temperature != 0 && request.Temperature != 1 {
		params.Temperature = openai.Float(request.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
			return "", fmt.Errorf("chat completion refusal: %s", refusal)
		}
		return "", fmt.Errorf("chat completion returned empty message (finish_reason=%s)", choice.FinishReason)
	}
	return content, nil
}
