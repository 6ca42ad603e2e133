package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/temirov/code-agent/internal/fsops"
)

const (
	// EmbeddedRootConfigurationReference identifies the embedded fallback configuration source.
	EmbeddedRootConfigurationReference = "embedded default configuration"
	// ConfigurationPathEnvironmentVariable names a configuration file used when --config is not given.
	ConfigurationPathEnvironmentVariable = "CODE_AGENT_CONFIG"

	explicitConfigurationReadErrorFormat      = "read configuration %s (%s): %w"
	loaderInitializationWorkingDirectoryError = "determine working directory: %w"
	loaderHomeEnvironmentVariableName         = "HOME"
	configurationFileName                     = "config.yaml"
	homeConfigurationDirectoryName            = ".code-agent"

	originFlag        = "flag"
	originEnvironment = "environment"
	originWorkingDir  = "working directory"
	originHome        = "home directory"
)

//go:embed default_root_configuration.yaml
var embeddedRootConfigurationBytes []byte

// RootConfigurationSource holds the raw configuration data and its origin.
type RootConfigurationSource struct {
	Reference string
	Content   []byte
}

// RootConfigurationLoader walks the configuration search order: --config,
// CODE_AGENT_CONFIG, ./config.yaml, ~/.code-agent/config.yaml, then the
// embedded default.
type RootConfigurationLoader struct {
	workingDirectory string
	homeDirectory    string
	filesystem       fsops.FS
	lookupEnv        func(string) (string, bool)
}

// NewRootConfigurationLoader constructs a loader over the OS filesystem.
func NewRootConfigurationLoader(workingDirectory string, homeDirectory string) RootConfigurationLoader {
	return RootConfigurationLoader{
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
		filesystem:       fsops.NewOS(),
		lookupEnv:        os.LookupEnv,
	}
}

// WithFilesystem returns a copy of the loader reading through filesystem.
func (loader RootConfigurationLoader) WithFilesystem(filesystem fsops.FS) RootConfigurationLoader {
	loader.filesystem = filesystem
	return loader
}

// NewDefaultRootConfigurationLoader builds a loader using the process working directory and HOME.
func NewDefaultRootConfigurationLoader() (RootConfigurationLoader, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return RootConfigurationLoader{}, fmt.Errorf(loaderInitializationWorkingDirectoryError, workingDirectoryError)
	}
	return NewRootConfigurationLoader(workingDirectory, os.Getenv(loaderHomeEnvironmentVariableName)), nil
}

// HomeDirectory returns the directory the loader searches under HOME.
func (loader RootConfigurationLoader) HomeDirectory() string {
	if loader.homeDirectory == "" {
		return ""
	}
	return filepath.Join(loader.homeDirectory, homeConfigurationDirectoryName)
}

type configurationCandidate struct {
	path   string
	origin string
	// required candidates fail loudly on read errors other than absence
	required bool
}

// Load returns the first readable candidate. An explicitly named file that
// exists but cannot be read is an error; absent candidates are skipped.
func (loader RootConfigurationLoader) Load(explicitPath string) (RootConfigurationSource, error) {
	for _, candidate := range loader.candidates(explicitPath) {
		content, readError := loader.filesystem.ReadFile(candidate.path)
		if readError == nil {
			return RootConfigurationSource{Reference: candidate.path, Content: content}, nil
		}
		if candidate.required && !errors.Is(readError, fs.ErrNotExist) && !errors.Is(readError, fs.ErrPermission) {
			return RootConfigurationSource{}, fmt.Errorf(explicitConfigurationReadErrorFormat, candidate.path, candidate.origin, readError)
		}
	}
	return RootConfigurationSource{Reference: EmbeddedRootConfigurationReference, Content: embeddedRootConfigurationBytes}, nil
}

func (loader RootConfigurationLoader) candidates(explicitPath string) []configurationCandidate {
	var candidates []configurationCandidate
	if trimmed := strings.TrimSpace(explicitPath); trimmed != "" {
		candidates = append(candidates, configurationCandidate{path: trimmed, origin: originFlag, required: true})
	}
	if loader.lookupEnv != nil {
		if fromEnvironment, ok := loader.lookupEnv(ConfigurationPathEnvironmentVariable); ok && strings.TrimSpace(fromEnvironment) != "" {
			candidates = append(candidates, configurationCandidate{path: strings.TrimSpace(fromEnvironment), origin: originEnvironment, required: true})
		}
	}
	if loader.workingDirectory != "" {
		candidates = append(candidates, configurationCandidate{
			path:   filepath.Join(loader.workingDirectory, configurationFileName),
			origin: originWorkingDir,
		})
	}
	if home := loader.HomeDirectory(); home != "" {
		candidates = append(candidates, configurationCandidate{
			path:   filepath.Join(home, configurationFileName),
			origin: originHome,
		})
	}
	return candidates
}
