package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/code-agent/internal/config"
	"github.com/temirov/code-agent/internal/fsops"
)

const (
	explicitConfigurationFileName     = "explicit.yaml"
	workingDirectoryConfigurationName = "config.yaml"
	homeDirectoryName                 = ".code-agent"
	homeConfigurationFileName         = "config.yaml"
	explicitLoggingLevel              = "explicit-level"
	workingLoggingLevel               = "working-level"
	homeLoggingLevel                  = "home-level"
	embeddedLoggingLevel              = "info"
	missingExplicitFileName           = "missing.yaml"
	configurationTemplate             = "workspace:\n  root: /srv/project\nllm:\n  provider: ollama\n  endpoint: http://localhost:11434\nlogging:\n  level: %s\n  format: console\nmodels:\n  - name: default\n    model_id: codellama:7b\n    default: true\n    default_temperature: 0.1\n    max_tokens: 10\n"
	directoryPermissions              = 0o755
	filePermissions                   = 0o644
)

type loaderTestCase struct {
	name                 string
	setup                func(t *testing.T, workingDirectory string, homeDirectory string) (string, string)
	expectedLoggingLevel string
}

func TestRootConfigurationLoader_Load(t *testing.T) {
	testCases := []loaderTestCase{
		{
			name: "explicit path used when available",
			setup: func(t *testing.T, workingDirectory string, homeDirectory string) (string, string) {
				t.Helper()
				configurationPath := filepath.Join(workingDirectory, explicitConfigurationFileName)
				writeConfiguration(t, configurationPath, explicitLoggingLevel)
				return configurationPath, configurationPath
			},
			expectedLoggingLevel: explicitLoggingLevel,
		},
		{
			name: "explicit path missing falls back to working directory",
			setup: func(t *testing.T, workingDirectory string, homeDirectory string) (string, string) {
				t.Helper()
				workingConfigurationPath := filepath.Join(workingDirectory, workingDirectoryConfigurationName)
				writeConfiguration(t, workingConfigurationPath, workingLoggingLevel)
				explicitPath := filepath.Join(workingDirectory, missingExplicitFileName)
				return explicitPath, workingConfigurationPath
			},
			expectedLoggingLevel: workingLoggingLevel,
		},
		{
			name: "working directory used when explicit path not provided",
			setup: func(t *testing.T, workingDirectory string, homeDirectory string) (string, string) {
				t.Helper()
				workingConfigurationPath := filepath.Join(workingDirectory, workingDirectoryConfigurationName)
				writeConfiguration(t, workingConfigurationPath, workingLoggingLevel)
				return "", workingConfigurationPath
			},
			expectedLoggingLevel: workingLoggingLevel,
		},
		{
			name: "home directory used when other locations missing",
			setup: func(t *testing.T, workingDirectory string, homeDirectory string) (string, string) {
				t.Helper()
				configurationDirectory := filepath.Join(homeDirectory, homeDirectoryName)
				configurationPath := filepath.Join(configurationDirectory, homeConfigurationFileName)
				writeConfiguration(t, configurationPath, homeLoggingLevel)
				return "", configurationPath
			},
			expectedLoggingLevel: homeLoggingLevel,
		},
		{
			name: "embedded configuration used when no files available",
			setup: func(t *testing.T, workingDirectory string, homeDirectory string) (string, string) {
				t.Helper()
				return "", config.EmbeddedRootConfigurationReference
			},
			expectedLoggingLevel: embeddedLoggingLevel,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			workingDirectory := t.TempDir()
			homeDirectory := t.TempDir()

			loader := config.NewRootConfigurationLoader(workingDirectory, homeDirectory)
			explicitPath, expectedReference := testCase.setup(t, workingDirectory, homeDirectory)

			source, loadErr := loader.Load(explicitPath)
			if loadErr != nil {
				t.Fatalf("load configuration source: %v", loadErr)
			}
			if expectedReference != "" && source.Reference != expectedReference {
				t.Fatalf("expected reference %s, got %s", expectedReference, source.Reference)
			}

			rootConfiguration, parseErr := config.LoadRoot(source)
			if parseErr != nil {
				t.Fatalf("parse root configuration: %v", parseErr)
			}
			if rootConfiguration.Logging.Level != testCase.expectedLoggingLevel {
				t.Fatalf("expected logging level %s, got %s", testCase.expectedLoggingLevel, rootConfiguration.Logging.Level)
			}
		})
	}
}

func TestRootConfigurationLoader_HomeDirectory(t *testing.T) {
	loader := config.NewRootConfigurationLoader("/work", "/home/dev")
	if got := loader.HomeDirectory(); got != filepath.Join("/home/dev", homeDirectoryName) {
		t.Fatalf("unexpected home directory %s", got)
	}
	if got := config.NewRootConfigurationLoader("/work", "").HomeDirectory(); got != "" {
		t.Fatalf("expected empty home directory, got %s", got)
	}
}

func TestRootConfigurationLoader_EnvironmentPath(t *testing.T) {
	workingDirectory := t.TempDir()
	environmentPath := filepath.Join(t.TempDir(), "from-env.yaml")
	writeConfiguration(t, environmentPath, "environment-level")
	writeConfiguration(t, filepath.Join(workingDirectory, workingDirectoryConfigurationName), workingLoggingLevel)
	t.Setenv(config.ConfigurationPathEnvironmentVariable, environmentPath)

	source, err := config.NewRootConfigurationLoader(workingDirectory, t.TempDir()).Load("")
	if err != nil {
		t.Fatalf("load configuration source: %v", err)
	}
	if source.Reference != environmentPath {
		t.Fatalf("expected %s, got %s", environmentPath, source.Reference)
	}
}

func TestRootConfigurationLoader_ExplicitDirectoryFails(t *testing.T) {
	explicitDirectory := t.TempDir()
	_, err := config.NewRootConfigurationLoader(t.TempDir(), t.TempDir()).Load(explicitDirectory)
	if err == nil {
		t.Fatalf("expected an error reading a directory as configuration")
	}
}

func TestRootConfigurationLoader_MemoryFilesystem(t *testing.T) {
	memory := fsops.NewMem()
	content := fmt.Sprintf(configurationTemplate, homeLoggingLevel)
	if err := memory.MkdirAll("/home/dev/.code-agent", directoryPermissions); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := memory.WriteFile("/home/dev/.code-agent/config.yaml", []byte(content), filePermissions); err != nil {
		t.Fatalf("write: %v", err)
	}

	loader := config.NewRootConfigurationLoader("/work", "/home/dev").WithFilesystem(memory)
	source, err := loader.Load("")
	if err != nil {
		t.Fatalf("load configuration source: %v", err)
	}
	if source.Reference != "/home/dev/.code-agent/config.yaml" {
		t.Fatalf("unexpected reference %s", source.Reference)
	}
}

func writeConfiguration(t *testing.T, path string, loggingLevel string) {
	t.Helper()
	configurationDirectory := filepath.Dir(path)
	if err := os.MkdirAll(configurationDirectory, directoryPermissions); err != nil {
		t.Fatalf("create configuration directory: %v", err)
	}
	content := fmt.Sprintf(configurationTemplate, loggingLevel)
	if err := os.WriteFile(path, []byte(content), filePermissions); err != nil {
		t.Fatalf("write configuration file: %v", err)
	}
}
