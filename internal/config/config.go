package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	emptyModelsErrorMessage                  = "config.models is empty"
	missingDefaultModelErrorMessage          = "no default model found (set models[].default: true)"
	unknownProviderErrorFormat               = "llm.provider %q is not one of ollama, openai"
	unknownSelectedModelErrorFormat          = "defaults.model %q is not listed in models[]"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	homeDirectoryPrefix                      = "~/"
)

var defaultExtensions = []string{".py", ".html"}

type Root struct {
	Workspace Workspace `yaml:"workspace"`
	LLM       LLM       `yaml:"llm"`
	Models    []Model   `yaml:"models"`
	Retrieval Retrieval `yaml:"retrieval"`
	History   History   `yaml:"history"`
	Logging   Logging   `yaml:"logging"`
	Defaults  Defaults  `yaml:"defaults"`
}

type Workspace struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions"`
}

type LLM struct {
	Provider       string `yaml:"provider"`
	Endpoint       string `yaml:"endpoint"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Model struct {
	Name               string  `yaml:"name"`
	ModelID            string  `yaml:"model_id"`
	Default            bool    `yaml:"default"`
	DefaultTemperature float64 `yaml:"default_temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
}

type Retrieval struct {
	IndexPath      string   `yaml:"index_path"`
	K              int      `yaml:"k"`
	Alpha          float64  `yaml:"alpha"`
	EmbeddingModel string   `yaml:"embedding_model"`
	ChunkSize      int      `yaml:"chunk_size"`
	Concurrency    int      `yaml:"concurrency"`
	Extensions     []string `yaml:"extensions"`
}

type History struct {
	Path string `yaml:"path"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Defaults struct {
	// Model names the entry of models[] to use instead of the default one.
	Model    string `yaml:"model"`
	Attempts int    `yaml:"attempts"`
}

// LoadRoot parses the provided configuration source, applies CODE_AGENT_
// environment overrides and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}
	rootConfiguration = applyEnvironmentOverrides(rootConfiguration)
	rootConfiguration.applyDefaults()

	if err := rootConfiguration.validate(); err != nil {
		return Root{}, err
	}
	return rootConfiguration, nil
}

func (root *Root) applyDefaults() {
	if len(root.Workspace.Extensions) == 0 {
		root.Workspace.Extensions = defaultExtensions
	}
	if strings.TrimSpace(root.LLM.Provider) == "" {
		root.LLM.Provider = ProviderOllama
	}
	root.LLM.Provider = strings.ToLower(strings.TrimSpace(root.LLM.Provider))
	if root.Defaults.Attempts <= 0 {
		root.Defaults.Attempts = 1
	}
}

func (root Root) validate() error {
	if len(root.Models) == 0 {
		return errors.New(emptyModelsErrorMessage)
	}
	if _, ok := root.DefaultModel(); !ok {
		return errors.New(missingDefaultModelErrorMessage)
	}
	if root.Defaults.Model != "" {
		if _, ok := root.FindModel(root.Defaults.Model); !ok {
			return fmt.Errorf(unknownSelectedModelErrorFormat, root.Defaults.Model)
		}
	}
	switch root.LLM.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf(unknownProviderErrorFormat, root.LLM.Provider)
	}
	return nil
}

func (root Root) DefaultModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindModel(name string) (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Name == name {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// SelectedModel resolves name, then defaults.model, then the default entry.
func (root Root) SelectedModel(name string) (Model, bool) {
	for _, candidate := range []string{name, root.Defaults.Model} {
		if candidate == "" {
			continue
		}
		return root.FindModel(candidate)
	}
	return root.DefaultModel()
}

// ExpandHome replaces a leading "~/" with homeDirectory.
func ExpandHome(path string, homeDirectory string) string {
	if homeDirectory == "" || !strings.HasPrefix(path, homeDirectoryPrefix) {
		return path
	}
	return filepath.Join(homeDirectory, strings.TrimPrefix(path, homeDirectoryPrefix))
}
