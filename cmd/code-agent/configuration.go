package codeagent

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/code-agent/internal/config"
)

const (
	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %w"
	configurationSourceResolutionErrorFormat     = "resolve configuration source: %w"
	rootConfigurationLoadErrorFormat             = "load configuration %s: %w"
	historyHomeUnknownErrorMessage               = "history.path is empty and HOME is not set"
	indexHomeUnknownErrorMessage                 = "retrieval.index_path is empty and HOME is not set"
)

// loadRootConfiguration resolves the configuration by search order and
// returns it with the ~/.code-agent directory used for default file paths.
func loadRootConfiguration(configurationPath string) (config.Root, string, error) {
	configurationLoader, loaderErr := config.NewDefaultRootConfigurationLoader()
	if loaderErr != nil {
		return config.Root{}, "", fmt.Errorf(configurationLoaderInitializationErrorFormat, loaderErr)
	}
	configurationSource, sourceErr := configurationLoader.Load(configurationPath)
	if sourceErr != nil {
		return config.Root{}, "", fmt.Errorf(configurationSourceResolutionErrorFormat, sourceErr)
	}
	rootConfiguration, loadErr := config.LoadRoot(configurationSource)
	if loadErr != nil {
		return config.Root{}, "", fmt.Errorf(rootConfigurationLoadErrorFormat, configurationSource.Reference, loadErr)
	}
	return rootConfiguration, filepath.Dir(configurationLoader.HomeDirectory()), nil
}

func (app *application) historyPath() (string, error) {
	return app.dataPath(app.root.History.Path, historyDatabaseName, historyHomeUnknownErrorMessage)
}

func (app *application) indexPath(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}
	return app.dataPath(app.root.Retrieval.IndexPath, indexDatabaseName, indexHomeUnknownErrorMessage)
}

func (app *application) dataPath(configured, fileName, missingHomeMessage string) (string, error) {
	if strings.TrimSpace(configured) != "" {
		return config.ExpandHome(configured, app.homeDirectory), nil
	}
	if app.homeDirectory == "" || app.homeDirectory == "." {
		return "", errors.New(missingHomeMessage)
	}
	return filepath.Join(app.homeDirectory, ".code-agent", fileName), nil
}
