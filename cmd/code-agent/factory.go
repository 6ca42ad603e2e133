package codeagent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/agent"
	"github.com/temirov/code-agent/internal/config"
	"github.com/temirov/code-agent/internal/fsops"
	"github.com/temirov/code-agent/internal/llm"
	"github.com/temirov/code-agent/internal/paths"
	"github.com/temirov/code-agent/internal/retrieval"
	"github.com/temirov/code-agent/internal/syntax"
	"github.com/temirov/code-agent/internal/workspace"
)

const (
	unknownModelErrorFormat     = "model %q not found in models[]"
	providerCreationErrorFormat = "create %s provider: %w"
	workspaceErrorFormat        = "open workspace %s: %w"
	retrievalErrorFormat        = "load retrieval index: %w"
)

// agentSettings are per-invocation overrides of the configuration.
type agentSettings struct {
	workspaceRoot string
	modelName     string
	attempts      int
	dryRun        bool
}

// newAgent wires one agent for one workspace root. Separate roots always get
// separate agents.
func (app *application) newAgent(ctx context.Context, settings agentSettings) (*agent.Agent, error) {
	modelConfiguration, found := app.root.SelectedModel(settings.modelName)
	if !found {
		return nil, fmt.Errorf(unknownModelErrorFormat, settings.modelName)
	}
	provider, err := app.newProvider()
	if err != nil {
		return nil, err
	}
	client := llm.Adapter{
		Provider:      provider,
		DefaultModel:  modelConfiguration.ModelID,
		DefaultTemp:   modelConfiguration.DefaultTemperature,
		DefaultTokens: modelConfiguration.MaxTokens,
		Logger:        app.logger,
	}

	root := firstNonBlank(settings.workspaceRoot, app.root.Workspace.Root, defaultWorkspaceRoot)
	filesystem := fsops.NewOS()
	store, err := workspace.New(root, filesystem, app.logger)
	if err != nil {
		return nil, fmt.Errorf(workspaceErrorFormat, root, err)
	}

	retriever := app.newRetriever(ctx, filesystem)

	attempts := app.root.Defaults.Attempts
	if settings.attempts > 0 {
		attempts = settings.attempts
	}
	resolver := paths.NewResolver(app.root.Workspace.Extensions)

	app.logger.Debug("agent configured",
		zap.String("workspace", store.Root()),
		zap.String("provider", app.root.LLM.Provider),
		zap.String("model", modelConfiguration.ModelID),
		zap.Int("attempts", attempts),
		zap.Bool("dry_run", settings.dryRun))

	return agent.New(agent.Options{
		Store:       store,
		Client:      client,
		Retriever:   retriever,
		Checker:     syntax.NewChecker(),
		Resolver:    &resolver,
		Model:       modelConfiguration.ModelID,
		Temperature: modelConfiguration.DefaultTemperature,
		MaxTokens:   modelConfiguration.MaxTokens,
		RetrievalK:  app.root.Retrieval.K,
		MaxAttempts: attempts,
		Timeout:     time.Duration(app.root.LLM.TimeoutSeconds) * time.Second,
		DryRun:      settings.dryRun,
		Logger:      app.logger,
	})
}

func (app *application) newProvider() (llm.Provider, error) {
	settings := llm.ProviderSettings{Endpoint: app.root.LLM.Endpoint}
	if keyVariable := strings.TrimSpace(app.root.LLM.APIKeyEnv); keyVariable != "" {
		settings.APIKey = strings.TrimSpace(os.Getenv(keyVariable))
	}
	provider, err := llm.DefaultRegistry().Create(app.root.LLM.Provider, settings)
	if err != nil {
		return nil, fmt.Errorf(providerCreationErrorFormat, app.root.LLM.Provider, err)
	}
	return provider, nil
}

// embedder returns the Ollama client used for embeddings, or nil when the
// configuration does not allow semantic search.
func (app *application) embedder() retrieval.Embedder {
	if app.root.LLM.Provider != config.ProviderOllama || strings.TrimSpace(app.root.Retrieval.EmbeddingModel) == "" {
		return nil
	}
	return llm.NewOllamaClient(app.root.LLM.Endpoint)
}

// newRetriever degrades to retrieval.Nop when the index is missing or unreadable.
func (app *application) newRetriever(ctx context.Context, filesystem fsops.FS) retrieval.Retriever {
	indexPath, err := app.indexPath("")
	if err != nil {
		app.logger.Warn("retrieval disabled", zap.Error(err))
		return retrieval.Nop{}
	}
	options := retrieval.HybridOptions{
		Alpha:          app.root.Retrieval.Alpha,
		EmbeddingModel: app.root.Retrieval.EmbeddingModel,
		Logger:         app.logger,
	}
	if embedder := app.embedder(); embedder != nil {
		options.Embedder = embedder
	}
	retriever, err := retrieval.Load(ctx, filesystem, indexPath, options)
	if err != nil {
		app.logger.Warn("retrieval disabled", zap.String("index", indexPath), zap.Error(fmt.Errorf(retrievalErrorFormat, err)))
		return retrieval.Nop{}
	}
	return retriever
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
