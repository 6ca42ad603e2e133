// Package agent turns one natural-language instruction into either an
// explanation or a file change inside a sandboxed workspace.
//
// The flow is classify, resolve paths, read files, retrieve documentation,
// call the model, extract code, reconcile it with the target and write. Run
// never returns an error: every failure becomes part of the returned text.
package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/extract"
	"github.com/temirov/code-agent/internal/intent"
	"github.com/temirov/code-agent/internal/merge"
	"github.com/temirov/code-agent/internal/paths"
	"github.com/temirov/code-agent/internal/pipeline"
	"github.com/temirov/code-agent/internal/prompt"
	"github.com/temirov/code-agent/internal/retrieval"
	"github.com/temirov/code-agent/internal/syntax"
)

var (
	ErrNoCodeDetected    = errors.New("no code detected in model output")
	ErrMissingTargetPath = errors.New("action requires a target file path")
	ErrCannotReadFile    = errors.New("cannot read file")
)

const (
	defaultRetrievalK  = retrieval.DefaultK
	defaultMaxTokens   = 2048
	defaultTemperature = 0.1
	refineReasonNoCode = "no-code-detected"
	refineDeltaNoCode  = "Your previous answer contained no usable code. Respond with one fenced ```python block " +
		"that defines at least one class or function."
)

// SyntaxChecker reports advisory syntax issues for files it supports.
type SyntaxChecker interface {
	Supports(path string) bool
	Check(ctx context.Context, source string) ([]syntax.Issue, error)
}

type Options struct {
	Store      merge.FileStore
	Client     pipeline.LLMClient
	Retriever  retrieval.Retriever
	Checker    SyntaxChecker
	Classifier *intent.Classifier
	Resolver   *paths.Resolver
	Extractor  *extract.Engine

	Model       string
	Temperature float64
	MaxTokens   int
	RetrievalK  int
	// MaxAttempts above one re-prompts when no code is detected.
	MaxAttempts int
	Timeout     time.Duration
	DryRun      bool
	Logger      *zap.Logger
}

// Agent is bound to one workspace. Build a separate Agent per project root;
// an Agent holds no per-request state and is safe for concurrent Run calls.
type Agent struct {
	store      merge.FileStore
	selector   merge.Selector
	runner     pipeline.Runner
	retriever  retrieval.Retriever
	checker    SyntaxChecker
	classifier intent.Classifier
	resolver   paths.Resolver
	extractor  extract.Engine
	prompts    prompt.Builder
	options    Options
	logger     *zap.Logger
}

func New(options Options) (*Agent, error) {
	if options.Store == nil {
		return nil, errors.New("agent requires a file store")
	}
	if options.Client == nil {
		return nil, errors.New("agent requires an llm client")
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	agent := &Agent{
		store:      options.Store,
		selector:   merge.NewSelector(options.Store, logger),
		retriever:  options.Retriever,
		checker:    options.Checker,
		classifier: intent.NewClassifier(),
		resolver:   paths.NewResolver(nil),
		extractor:  extract.NewEngine(),
		options:    options,
		logger:     logger,
	}
	if agent.retriever == nil {
		agent.retriever = retrieval.Nop{}
	}
	if options.Classifier != nil {
		agent.classifier = *options.Classifier
	}
	if options.Resolver != nil {
		agent.resolver = *options.Resolver
	}
	if options.Extractor != nil {
		agent.extractor = *options.Extractor
	}
	if agent.options.RetrievalK <= 0 {
		agent.options.RetrievalK = defaultRetrievalK
	}
	if agent.options.MaxTokens <= 0 {
		agent.options.MaxTokens = defaultMaxTokens
	}
	if agent.options.Temperature <= 0 {
		agent.options.Temperature = defaultTemperature
	}
	agent.runner = pipeline.Runner{
		Client: options.Client,
		Options: pipeline.RunOptions{
			MaxAttempts: max(1, options.MaxAttempts),
			DryRun:      options.DryRun,
			Timeout:     options.Timeout,
		},
		Logger: logger,
	}
	return agent, nil
}

// Run handles one instruction and returns the user-facing text.
func (a *Agent) Run(ctx context.Context, instruction string) string {
	return a.Handle(ctx, instruction).Text
}

// Handle is Run with the intermediate results exposed.
func (a *Agent) Handle(ctx context.Context, instruction string) Outcome {
	task := &instructionTask{agent: a, instruction: instruction}
	report, runErr := a.runner.Run(ctx, task)
	outcome := task.outcome
	outcome.Report = report
	switch {
	case runErr == nil:
	case errors.Is(runErr, ErrCannotReadFile):
		outcome.Err = runErr
	case errors.Is(runErr, ErrMissingTargetPath):
		outcome.Err = ErrMissingTargetPath
	default:
		var rejected *pipeline.RejectedError
		if errors.As(runErr, &rejected) {
			outcome.Err = ErrNoCodeDetected
			outcome.Raw = rejected.LastResponse.RawText
		} else {
			outcome.Err = runErr
		}
	}
	if runErr != nil {
		// runErr carries the per-attempt prompts and responses of a rejection
		a.logger.Debug("instruction failed", zap.String("mode", outcome.Mode.String()), zap.Error(runErr))
	}
	outcome.Text = format(outcome)
	return outcome
}

// Outcome describes one handled instruction.
type Outcome struct {
	Instruction string
	Mode        intent.Mode
	Paths       paths.Resolved
	FileContent string
	Sources     []string
	Raw         string
	Code        string
	Strategy    string
	Plan        merge.Plan
	Status      string
	Warnings    []string
	Preview     string
	Report      pipeline.ApplyReport
	Err         error
	Text        string
}
