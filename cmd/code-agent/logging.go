package codeagent

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/config"
)

// newLogger builds a production logger writing to stderr. --verbose forces
// debug level regardless of logging.level.
func newLogger(logging config.Logging, verbose bool) (*zap.Logger, error) {
	loggerConfiguration := zap.NewProductionConfig()
	if strings.EqualFold(strings.TrimSpace(logging.Format), consoleLoggingFormat) {
		loggerConfiguration.Encoding = consoleLoggingFormat
		loggerConfiguration.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if level := strings.TrimSpace(logging.Level); level != "" {
		atomicLevel, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		loggerConfiguration.Level = atomicLevel
	}
	if verbose {
		loggerConfiguration.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return loggerConfiguration.Build()
}
