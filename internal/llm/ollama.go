package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/temirov/code-agent/internal/pipeline"
)

const (
	DefaultOllamaEndpoint = "http://localhost:11434"
	DefaultOllamaModel    = "codellama:7b"

	ollamaGeneratePath   = "/api/generate"
	ollamaEmbeddingsPath = "/api/embeddings"
	ollamaTopP           = 0.9
	ollamaTopK           = 40
	bodyPreviewLimit     = 512
)

// OllamaClient talks to a local Ollama server over its JSON API.
type OllamaClient struct {
	HTTPBaseURL string
	HTTPClient  *http.Client
}

type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func NewOllamaClient(baseURL string) OllamaClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOllamaEndpoint
	}
	return OllamaClient{HTTPBaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: &http.Client{}}
}

// Complete implements Provider using a non-streaming generate call.
func (c OllamaClient) Complete(ctx context.Context, request pipeline.LLMRequest) (string, error) {
	payload := GenerateRequest{
		Model:  request.Model,
		Prompt: strings.TrimSpace(request.UserPrompt),
		System: strings.TrimSpace(request.SystemPrompt),
		Stream: false,
		Options: GenerateOptions{
			Temperature: request.Temperature,
			TopP:        ollamaTopP,
			TopK:        ollamaTopK,
			NumPredict:  request.MaxTokens,
		},
	}
	var decoded generateResponse
	if err := c.postJSON(ctx, ollamaGeneratePath, payload, &decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("ollama generate: %s", decoded.Error)
	}
	return strings.TrimSpace(decoded.Response), nil
}

// Embed returns the embedding vector of text under model.
func (c OllamaClient) Embed(ctx context.Context, model, text string) ([]float64, error) {
	var decoded embeddingsResponse
	if err := c.postJSON(ctx, ollamaEmbeddingsPath, embeddingsRequest{Model: model, Prompt: text}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("ollama embeddings: %s", decoded.Error)
	}
	if len(decoded.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embeddings returned an empty vector for model %s", model)
	}
	return decoded.Embedding, nil
}

func (c OllamaClient) postJSON(ctx context.Context, path string, payload any, target any) error {
	requestBytes, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return marshalErr
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, c.HTTPBaseURL+path, bytes.NewReader(requestBytes))
	if buildErr != nil {
		return buildErr
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	httpResponse, httpErr := httpClient.Do(httpRequest)
	if httpErr != nil {
		return httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return readErr
	}
	bodyPreview := truncateForLog(string(bodyBytes), bodyPreviewLimit)
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return fmt.Errorf("ollama http error %d: %s", httpResponse.StatusCode, bodyPreview)
	}
	if decodeErr := json.Unmarshal(bodyBytes, target); decodeErr != nil {
		return fmt.Errorf("decode ollama response: %w (body=%s)", decodeErr, bodyPreview)
	}
	return nil
}

func truncateForLog(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
