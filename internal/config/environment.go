package config

import (
	"strings"

	"github.com/spf13/viper"
)

const environmentPrefix = "CODE_AGENT"

const (
	workspaceRootKey  = "workspace.root"
	modelKey          = "model"
	providerKey       = "llm.provider"
	endpointKey       = "llm.endpoint"
	apiKeyEnvKey      = "llm.api_key_env"
	timeoutKey        = "llm.timeout_seconds"
	indexPathKey      = "retrieval.index_path"
	embeddingModelKey = "retrieval.embedding_model"
	historyPathKey    = "history.path"
	loggingLevelKey   = "logging.level"
	attemptsKey       = "defaults.attempts"
)

// applyEnvironmentOverrides lets CODE_AGENT_<KEY> variables win over file
// values, e.g. CODE_AGENT_WORKSPACE_ROOT or CODE_AGENT_MODEL.
func applyEnvironmentOverrides(root Root) Root {
	environment := viper.New()
	environment.SetEnvPrefix(environmentPrefix)
	environment.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	stringTargets := map[string]*string{
		workspaceRootKey:  &root.Workspace.Root,
		modelKey:          &root.Defaults.Model,
		providerKey:       &root.LLM.Provider,
		endpointKey:       &root.LLM.Endpoint,
		apiKeyEnvKey:      &root.LLM.APIKeyEnv,
		indexPathKey:      &root.Retrieval.IndexPath,
		embeddingModelKey: &root.Retrieval.EmbeddingModel,
		historyPathKey:    &root.History.Path,
		loggingLevelKey:   &root.Logging.Level,
	}
	intTargets := map[string]*int{
		timeoutKey:  &root.LLM.TimeoutSeconds,
		attemptsKey: &root.Defaults.Attempts,
	}

	for key, target := range stringTargets {
		_ = environment.BindEnv(key)
		if environment.IsSet(key) {
			*target = environment.GetString(key)
		}
	}
	for key, target := range intTargets {
		_ = environment.BindEnv(key)
		if environment.IsSet(key) {
			*target = environment.GetInt(key)
		}
	}
	return root
}
