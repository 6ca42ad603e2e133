package main

import (
	"os"

	"go.uber.org/zap"

	codeagent "github.com/temirov/code-agent/cmd/code-agent"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	executionErr := codeagent.Execute()
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(1)
	}

	_ = logger.Sync()
}
