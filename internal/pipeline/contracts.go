package pipeline

import "context"

// Pipeline is one unit of work driven by Runner: gather inputs, render a
// prompt, verify the model response (optionally asking for a refined one) and
// apply the verified result.
type Pipeline interface {
	Name() string
	Gather(ctx context.Context) (GatherOutput, error)
	Prompt(ctx context.Context, gathered GatherOutput) (LLMRequest, error)
	Verify(ctx context.Context, gathered GatherOutput, response LLMResponse) (accepted bool, verified VerifiedOutput, refine *RefineRequest, err error)
	Apply(ctx context.Context, verified VerifiedOutput) (ApplyReport, error)
}

// GatherOutput and VerifiedOutput are opaque to Runner; each Pipeline
// asserts its own concrete types.
type GatherOutput any
type VerifiedOutput any

type LLMRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	Model        string
}

type LLMResponse struct {
	RawText string
}

// RefineRequest asks Runner for another attempt with UserPromptDelta appended.
type RefineRequest struct {
	UserPromptDelta string
	Reason          string
}

// ApplyReport summarises what Apply did. Attempts is filled in by Runner.
type ApplyReport struct {
	DryRun     bool
	Summary    string
	NumActions int
	Attempts   int
}
