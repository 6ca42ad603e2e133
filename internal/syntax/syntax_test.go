package syntax_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/code-agent/internal/syntax"
)

func TestCheckValidPython(t *testing.T) {
	checker := syntax.NewChecker()
	issues, err := checker.Check(context.Background(), "import os\n\ndef helper():\n    return os.sep\n")
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestCheckReportsErrors(t *testing.T) {
	checker := syntax.NewChecker()
	issues, err := checker.Check(context.Background(), "def helper(:\n    return 1\n")
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Equal(t, 1, issues[0].Line)
	assert.NotEmpty(t, issues[0].String())
}

func TestSupports(t *testing.T) {
	checker := syntax.NewChecker()
	assert.True(t, checker.Supports("students/models.py"))
	assert.True(t, checker.Supports("SCRIPT.PY"))
	assert.False(t, checker.Supports("templates/index.html"))
}
