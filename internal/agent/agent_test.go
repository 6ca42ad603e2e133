package agent_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/code-agent/internal/agent"
	"github.com/temirov/code-agent/internal/fsops"
	"github.com/temirov/code-agent/internal/intent"
	"github.com/temirov/code-agent/internal/llm"
	"github.com/temirov/code-agent/internal/merge"
	"github.com/temirov/code-agent/internal/pipeline"
	"github.com/temirov/code-agent/internal/retrieval"
	"github.com/temirov/code-agent/internal/syntax"
	"github.com/temirov/code-agent/internal/workspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	modelsPath     = "students/models.py"
	studentModel   = "from django.db import models\n\nclass Student(models.Model):\n    name = models.CharField(max_length=100)"
	studentAnswer  = "```python\n" + studentModel + "\n```\nThis model stores students."
	courseResponse = "```python\nfrom django.db import models\n\nclass Course(models.Model):\n    title = models.CharField(max_length=200)\n```"
)

type scriptedClient struct {
	mu        sync.Mutex
	responses []string
	requests  []pipeline.LLMRequest
}

func (c *scriptedClient) Chat(_ context.Context, request pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, request)
	index := min(len(c.requests), len(c.responses)) - 1
	return pipeline.LLMResponse{RawText: c.responses[index]}, nil
}

type staticRetriever struct{ result retrieval.Result }

func (r staticRetriever) Retrieve(context.Context, string, int) retrieval.Result { return r.result }

type failingProvider struct{}

func (failingProvider) Complete(context.Context, pipeline.LLMRequest) (string, error) {
	return "", errors.New("connection refused")
}

func newWorkspace(t *testing.T) *workspace.Store {
	t.Helper()
	mem := fsops.NewMem()
	require.NoError(t, mem.MkdirAll("/project", 0o755))
	store, err := workspace.New("/project", mem, nil)
	require.NoError(t, err)
	return store
}

func newAgent(t *testing.T, store *workspace.Store, client pipeline.LLMClient, configure func(*agent.Options)) *agent.Agent {
	t.Helper()
	options := agent.Options{Store: store, Client: client}
	if configure != nil {
		configure(&options)
	}
	instance, err := agent.New(options)
	require.NoError(t, err)
	return instance
}

func TestNewRequiresStoreAndClient(t *testing.T) {
	_, err := agent.New(agent.Options{Client: &scriptedClient{}})
	assert.Error(t, err)
	_, err = agent.New(agent.Options{Store: newWorkspace(t)})
	assert.Error(t, err)
}

func TestRunCreatesNewFile(t *testing.T) {
	store := newWorkspace(t)
	client := &scriptedClient{responses: []string{studentAnswer}}
	instance := newAgent(t, store, client, nil)

	outcome := instance.Handle(context.Background(), "Create a Student model in students/models.py")

	require.NoError(t, outcome.Err)
	assert.Equal(t, intent.ModeAction, outcome.Mode)
	assert.Equal(t, modelsPath, outcome.Paths.Target)
	assert.Equal(t, merge.ActionWriteNew, outcome.Plan.Action)
	assert.True(t, strings.HasPrefix(outcome.Text, "✅ File created: students/models.py\n"))
	assert.Contains(t, outcome.Text, "📝 Full Response:\n"+"============================================================\n"+studentAnswer)

	content, err := store.Read(modelsPath)
	require.NoError(t, err)
	assert.Equal(t, studentModel, content)

	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].UserPrompt, "Target file: students/models.py")
	assert.Equal(t, 2048, client.requests[0].MaxTokens)
}

func TestRunAppendsWithoutDuplicateLines(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write(modelsPath, studentModel))
	client := &scriptedClient{responses: []string{courseResponse}}
	instance := newAgent(t, store, client, nil)

	outcome := instance.Handle(context.Background(), "Add a Course model to students/models.py")

	require.NoError(t, outcome.Err)
	assert.Equal(t, merge.ActionAppendExisting, outcome.Plan.Action)
	assert.Equal(t, 1, outcome.Plan.DuplicatesRemoved)
	assert.True(t, strings.HasPrefix(outcome.Text, "✅ Code appended to: students/models.py\n"))

	content, err := store.Read(modelsPath)
	require.NoError(t, err)
	assert.Equal(t, studentModel+"\n\nclass Course(models.Model):\n    title = models.CharField(max_length=200)", content)
	assert.Equal(t, 1, strings.Count(content, "from django.db import models"))
}

func TestRunReportsNothingNewToAppend(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write(modelsPath, studentModel))
	instance := newAgent(t, store, &scriptedClient{responses: []string{studentAnswer}}, nil)

	outcome := instance.Handle(context.Background(), "Add a Student model to students/models.py")

	require.NoError(t, outcome.Err)
	assert.True(t, strings.HasPrefix(outcome.Text, "ℹ️ Nothing new to append to: students/models.py"))
	content, err := store.Read(modelsPath)
	require.NoError(t, err)
	assert.Equal(t, studentModel, content)
}

func TestRunExplainsFileContent(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write(modelsPath, studentModel))
	client := &scriptedClient{responses: []string{"The Student model has one field."}}
	instance := newAgent(t, store, client, func(options *agent.Options) {
		options.Retriever = staticRetriever{result: retrieval.Result{
			Text:    "Models define fields.",
			Sources: []string{"docs/models.txt", "docs/fields.txt"},
		}}
	})

	text := instance.Run(context.Background(), "Explain the code in students/models.py")

	banner := "============================================================"
	expected := strings.Join([]string{
		"📄 Code from students/models.py:",
		banner,
		studentModel,
		banner,
		"",
		"📝 Explanation:",
		banner,
		"The Student model has one field.",
		"",
		banner,
		"📚 Sources:",
		banner,
		"  • docs/models.txt",
		"  • docs/fields.txt",
	}, "\n")
	assert.Equal(t, expected, text)
	require.Len(t, client.requests, 1)
	assert.Contains(t, client.requests[0].UserPrompt, "Reference documentation:\nModels define fields.")
	assert.Contains(t, client.requests[0].UserPrompt, studentModel)
}

func TestRunConceptualQuestionSkipsFiles(t *testing.T) {
	store := newWorkspace(t)
	instance := newAgent(t, store, &scriptedClient{responses: []string{"A ForeignKey links two models."}}, nil)

	outcome := instance.Handle(context.Background(), "What is a ForeignKey in models.py?")

	require.NoError(t, outcome.Err)
	assert.Equal(t, intent.ModeAnswer, outcome.Mode)
	assert.Empty(t, outcome.Paths.Target)
	assert.Equal(t, "A ForeignKey links two models.", outcome.Text)
}

func TestRunCannotReadAnswerTarget(t *testing.T) {
	client := &scriptedClient{responses: []string{"unused"}}
	instance := newAgent(t, newWorkspace(t), client, nil)

	outcome := instance.Handle(context.Background(), "Explain the code in students/missing.py")

	require.Error(t, outcome.Err)
	assert.ErrorIs(t, outcome.Err, agent.ErrCannotReadFile)
	assert.ErrorIs(t, outcome.Err, workspace.ErrNotFound)
	assert.True(t, strings.HasPrefix(outcome.Text, "❌ Cannot read file: "))
	assert.Empty(t, client.requests)
}

func TestRunNoCodeDetected(t *testing.T) {
	instance := newAgent(t, newWorkspace(t), &scriptedClient{responses: []string{"I am not sure what you mean."}}, nil)

	text := instance.Run(context.Background(), "Create a Student model in students/models.py")

	assert.Equal(t, "❌ No code detected in LLM output.\n\nI am not sure what you mean.", text)
}

func TestRunNoCodeDetectedLogsAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	instance := newAgent(t, newWorkspace(t), &scriptedClient{responses: []string{"I am not sure what you mean."}}, func(options *agent.Options) {
		options.Logger = zap.New(core)
	})

	outcome := instance.Handle(context.Background(), "Create a Student model in students/models.py")

	require.ErrorIs(t, outcome.Err, agent.ErrNoCodeDetected)
	entries := logs.FilterMessage("instruction failed").All()
	require.Len(t, entries, 1)
	logged, ok := entries[0].ContextMap()["error"].(string)
	require.True(t, ok)
	assert.Contains(t, logged, "Attempt 1:")
	assert.Contains(t, logged, "I am not sure what you mean.")
}

func TestRunMissingTargetPath(t *testing.T) {
	instance := newAgent(t, newWorkspace(t), &scriptedClient{responses: []string{studentAnswer}}, nil)

	text := instance.Run(context.Background(), "Create a Student model")

	assert.Equal(t, "❌ ACTION MODE requires a file path.\n\n"+studentAnswer, text)
}

func TestRunRejectsEscapingTarget(t *testing.T) {
	store := newWorkspace(t)
	instance := newAgent(t, store, &scriptedClient{responses: []string{studentAnswer}}, nil)

	outcome := instance.Handle(context.Background(), "Create a Student model in ../outside.py")

	require.NoError(t, outcome.Err)
	assert.True(t, strings.HasPrefix(outcome.Text, "❌ [FILE ERROR] "))
	assert.Contains(t, outcome.Status, workspace.ErrAccessDenied.Error())
}

func TestRunDryRunPreviewsWithoutWriting(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write(modelsPath, studentModel))
	instance := newAgent(t, store, &scriptedClient{responses: []string{courseResponse}}, func(options *agent.Options) {
		options.DryRun = true
	})

	outcome := instance.Handle(context.Background(), "Add a Course model to students/models.py")

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Report.DryRun)
	assert.Equal(t, "📝 Dry run: would append to students/models.py", outcome.Status)
	assert.Contains(t, outcome.Preview, "+class Course(models.Model):")
	assert.Contains(t, outcome.Text, "🔍 Preview:")

	content, err := store.Read(modelsPath)
	require.NoError(t, err)
	assert.Equal(t, studentModel, content)
}

func TestRunRetriesWhenNoCodeDetected(t *testing.T) {
	store := newWorkspace(t)
	client := &scriptedClient{responses: []string{"Sure, I can do that.", studentAnswer}}
	instance := newAgent(t, store, client, func(options *agent.Options) {
		options.MaxAttempts = 2
	})

	outcome := instance.Handle(context.Background(), "Create a Student model in students/models.py")

	require.NoError(t, outcome.Err)
	require.Len(t, client.requests, 2)
	assert.Contains(t, client.requests[1].UserPrompt, "REFINE:")
	_, err := store.Read(modelsPath)
	assert.NoError(t, err)
}

func TestRunTransportFailureDegradesToNoCode(t *testing.T) {
	adapter := llm.Adapter{Provider: failingProvider{}, DefaultModel: "codellama:7b"}
	instance := newAgent(t, newWorkspace(t), adapter, nil)

	text := instance.Run(context.Background(), "Create a Student model in students/models.py")

	assert.True(t, strings.HasPrefix(text, "❌ No code detected in LLM output.\n\n"+llm.ErrorMarker))
	assert.Contains(t, text, "connection refused")
}

func TestRunRecordsSyntaxWarnings(t *testing.T) {
	store := newWorkspace(t)
	broken := "```python\ndef broken(:\n    pass\n```"
	instance := newAgent(t, store, &scriptedClient{responses: []string{broken}}, func(options *agent.Options) {
		options.Checker = syntax.NewChecker()
	})

	outcome := instance.Handle(context.Background(), "Create a helper in students/helpers.py")

	require.NoError(t, outcome.Err)
	assert.NotEmpty(t, outcome.Warnings)
	assert.Contains(t, outcome.Text, "⚠️ Syntax warning:")
	_, err := store.Read("students/helpers.py")
	assert.NoError(t, err)
}

func TestRunUsesSourceFileAsContext(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write(modelsPath, studentModel))
	client := &scriptedClient{responses: []string{"```python\nfrom django.contrib import admin\n\ndef register(site):\n    site.register(Student)\n```"}}
	instance := newAgent(t, store, client, nil)

	outcome := instance.Handle(context.Background(), "Add admin registration for Student from students/models.py into students/admin.py")

	require.NoError(t, outcome.Err)
	assert.Equal(t, "students/admin.py", outcome.Paths.Target)
	assert.Equal(t, modelsPath, outcome.Paths.Source)
	assert.Contains(t, client.requests[0].UserPrompt, "Contents of students/models.py:")
	assert.Contains(t, client.requests[0].UserPrompt, "Source file for context (read only): students/models.py")
}

func TestConcurrentRunsOnSeparateTargets(t *testing.T) {
	store := newWorkspace(t)
	client := &scriptedClient{responses: []string{studentAnswer}}
	instance := newAgent(t, store, client, nil)

	targets := []string{"one/models.py", "two/models.py", "three/models.py"}
	var wg sync.WaitGroup
	for _, target := range targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance.Run(context.Background(), "Create a Student model in "+target)
		}()
	}
	wg.Wait()

	for _, target := range targets {
		content, err := store.Read(target)
		require.NoError(t, err)
		assert.Equal(t, studentModel, content)
	}
}

func TestEndToEndWritesNewUtility(t *testing.T) {
	store := newWorkspace(t)
	raw := "```python\ndef helper():\n    return 1\n``` Explanation: this helper returns one."
	instance := newAgent(t, store, &scriptedClient{responses: []string{raw}}, nil)

	outcome := instance.Handle(context.Background(), "create a function in students/utils.py")

	require.NoError(t, outcome.Err)
	assert.Equal(t, "students/utils.py", outcome.Paths.Target)
	assert.Equal(t, "def helper():\n    return 1", outcome.Code)
	assert.Equal(t, merge.ActionWriteNew, outcome.Plan.Action)
	content, err := store.Read("students/utils.py")
	require.NoError(t, err)
	assert.Equal(t, outcome.Code, content)
}

func TestEndToEndAppendsWithoutDuplicateImport(t *testing.T) {
	store := newWorkspace(t)
	require.NoError(t, store.Write("students/utils.py", "import os"))
	raw := "```python\nimport os\n\ndef helper():\n    return 1\n```"
	instance := newAgent(t, store, &scriptedClient{responses: []string{raw}}, nil)

	outcome := instance.Handle(context.Background(), "add a function in students/utils.py")

	require.NoError(t, outcome.Err)
	assert.Equal(t, merge.ActionAppendExisting, outcome.Plan.Action)
	assert.Equal(t, "def helper():\n    return 1", outcome.Plan.Code)
	content, err := store.Read("students/utils.py")
	require.NoError(t, err)
	assert.Equal(t, "import os\n\ndef helper():\n    return 1", content)
}
