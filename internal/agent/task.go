package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/diff"
	"github.com/temirov/code-agent/internal/intent"
	"github.com/temirov/code-agent/internal/merge"
	"github.com/temirov/code-agent/internal/pipeline"
	"github.com/temirov/code-agent/internal/prompt"
)

const (
	taskName           = "instruction"
	previewBeforeLabel = "current"
	previewAfterLabel  = "proposed"
	appendSeparator    = "\n\n"
)

// instructionTask adapts one instruction to the pipeline contract. It records
// intermediate results in outcome for formatting.
type instructionTask struct {
	agent       *Agent
	instruction string
	outcome     Outcome
}

// readError reports an unreadable ANSWER target; it matches ErrCannotReadFile.
type readError struct {
	path string
	err  error
}

func (e *readError) Error() string { return fmt.Sprintf("%s %s: %v", ErrCannotReadFile, e.path, e.err) }

func (e *readError) Is(target error) bool { return target == ErrCannotReadFile }

func (e *readError) Unwrap() error { return e.err }

type gathered struct {
	sourceContent string
	context       string
}

func (t *instructionTask) Name() string { return taskName }

// Gather classifies, resolves paths, reads the target (ANSWER) or the source
// (ACTION) and retrieves documentation.
func (t *instructionTask) Gather(ctx context.Context) (pipeline.GatherOutput, error) {
	a := t.agent
	t.outcome.Instruction = t.instruction
	t.outcome.Mode = a.classifier.Classify(t.instruction)
	t.outcome.Paths = a.resolver.Resolve(t.instruction, t.outcome.Mode)
	a.logger.Debug("instruction classified",
		zap.String("mode", t.outcome.Mode.String()),
		zap.String("target", t.outcome.Paths.Target),
		zap.String("source", t.outcome.Paths.Source))

	var out gathered
	if t.outcome.Mode == intent.ModeAnswer && t.outcome.Paths.Target != "" {
		content, err := a.store.Read(t.outcome.Paths.Target)
		if err != nil {
			return nil, &readError{path: t.outcome.Paths.Target, err: err}
		}
		t.outcome.FileContent = content
	}
	if t.outcome.Mode == intent.ModeAction && t.outcome.Paths.Source != "" {
		content, err := a.store.Read(t.outcome.Paths.Source)
		if err != nil {
			a.logger.Warn("source file unreadable, continuing without it",
				zap.String("path", t.outcome.Paths.Source), zap.Error(err))
		} else {
			out.sourceContent = content
		}
	}

	retrieved := a.retriever.Retrieve(ctx, t.instruction, a.options.RetrievalK)
	out.context = retrieved.Text
	t.outcome.Sources = retrieved.Sources
	return out, nil
}

func (t *instructionTask) Prompt(ctx context.Context, g pipeline.GatherOutput) (pipeline.LLMRequest, error) {
	in := g.(gathered)
	fileContent := t.outcome.FileContent
	if fileContent == "" {
		fileContent = in.sourceContent
	}
	rendered := t.agent.prompts.Build(prompt.Input{
		Instruction: t.instruction,
		Mode:        t.outcome.Mode,
		Context:     in.context,
		FileContent: fileContent,
		TargetPath:  t.outcome.Paths.Target,
		SourcePath:  t.outcome.Paths.Source,
	})
	return pipeline.LLMRequest{
		SystemPrompt: rendered.System,
		UserPrompt:   rendered.User,
		Model:        t.agent.options.Model,
		MaxTokens:    t.agent.options.MaxTokens,
		Temperature:  t.agent.options.Temperature,
	}, nil
}

// Verify accepts any ANSWER response. ACTION responses must yield code; a
// missing target path is terminal and checked only after code was found.
func (t *instructionTask) Verify(ctx context.Context, _ pipeline.GatherOutput, response pipeline.LLMResponse) (bool, pipeline.VerifiedOutput, *pipeline.RefineRequest, error) {
	t.outcome.Raw = response.RawText
	if t.outcome.Mode == intent.ModeAnswer {
		return true, nil, nil, nil
	}
	result := t.agent.extractor.Extract(response.RawText)
	if result.Empty() {
		return false, nil, &pipeline.RefineRequest{UserPromptDelta: refineDeltaNoCode, Reason: refineReasonNoCode}, nil
	}
	t.outcome.Code = result.Code
	t.outcome.Strategy = result.Strategy
	t.agent.logger.Debug("code extracted", zap.String("strategy", result.Strategy), zap.Int("bytes", len(result.Code)))
	if t.outcome.Paths.Target == "" {
		return false, nil, nil, ErrMissingTargetPath
	}
	return true, result.Code, nil, nil
}

// Apply reconciles the code with the target and writes it. File errors are
// reported in the status line, not returned.
func (t *instructionTask) Apply(ctx context.Context, v pipeline.VerifiedOutput) (pipeline.ApplyReport, error) {
	if t.outcome.Mode == intent.ModeAnswer {
		return pipeline.ApplyReport{Summary: "answered"}, nil
	}
	a := t.agent
	target := t.outcome.Paths.Target
	code := v.(string)

	t.outcome.Warnings = t.syntaxWarnings(ctx, target, code)
	plan := a.selector.Reconcile(target, code)
	t.outcome.Plan = plan
	a.logger.Debug("file action selected",
		zap.String("path", target),
		zap.String("action", plan.Action.String()),
		zap.Int("duplicates_removed", plan.DuplicatesRemoved))

	if a.options.DryRun {
		t.outcome.Preview = t.preview(target, plan)
		t.outcome.Status = dryRunStatus(target, plan)
		return pipeline.ApplyReport{DryRun: true, Summary: t.outcome.Status}, nil
	}
	if plan.Action == merge.ActionAppendExisting && plan.Empty() {
		t.outcome.Status = fmt.Sprintf(statusNothingNewFormat, target)
		return pipeline.ApplyReport{Summary: t.outcome.Status}, nil
	}
	if err := a.selector.Execute(target, plan); err != nil {
		a.logger.Warn("file action failed", zap.String("path", target), zap.Error(err))
		t.outcome.Status = fmt.Sprintf(statusFileErrorFormat, err)
		return pipeline.ApplyReport{Summary: t.outcome.Status}, nil
	}
	t.outcome.Status = successStatus(target, plan.Action)
	return pipeline.ApplyReport{Summary: t.outcome.Status, NumActions: 1}, nil
}

func (t *instructionTask) syntaxWarnings(ctx context.Context, target, code string) []string {
	checker := t.agent.checker
	if checker == nil || !checker.Supports(target) {
		return nil
	}
	issues, err := checker.Check(ctx, code)
	if err != nil {
		t.agent.logger.Warn("syntax check failed", zap.Error(err))
		return nil
	}
	warnings := make([]string, 0, len(issues))
	for _, issue := range issues {
		warnings = append(warnings, issue.String())
	}
	return warnings
}

// preview renders the diff a dry run would produce.
func (t *instructionTask) preview(target string, plan merge.Plan) string {
	before := ""
	after := plan.Code
	if plan.Action == merge.ActionAppendExisting {
		existing, err := t.agent.store.Read(target)
		if err != nil {
			return ""
		}
		before = existing
		after = existing
		if !plan.Empty() {
			after = existing + appendSeparator + plan.Code
		}
	}
	unified, err := diff.Unified(before, after, previewBeforeLabel, previewAfterLabel)
	if err != nil {
		return ""
	}
	return unified
}
