package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/temirov/code-agent/internal/pipeline"
)

type fakeClient struct {
	responses []string
	prompts   []string
	call      int
	deadlines []bool
}

func (f *fakeClient) Chat(ctx context.Context, req pipeline.LLMRequest) (pipeline.LLMResponse, error) {
	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.prompts = append(f.prompts, req.UserPrompt)
	if f.call >= len(f.responses) {
		return pipeline.LLMResponse{}, errors.New("no more responses")
	}
	r := f.responses[f.call]
	f.call++
	return pipeline.LLMResponse{RawText: r}, nil
}

type fakePipeline struct {
	verify  func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error)
	applied any
}

func (p *fakePipeline) Name() string { return "fake" }
func (p *fakePipeline) Gather(ctx context.Context) (pipeline.GatherOutput, error) {
	return []int{1, 2, 3}, nil
}
func (p *fakePipeline) Prompt(ctx context.Context, g pipeline.GatherOutput) (pipeline.LLMRequest, error) {
	return pipeline.LLMRequest{UserPrompt: "hi"}, nil
}
func (p *fakePipeline) Verify(ctx context.Context, g pipeline.GatherOutput, r pipeline.LLMResponse) (bool, pipeline.VerifiedOutput, *pipeline.RefineRequest, error) {
	return p.verify(r)
}
func (p *fakePipeline) Apply(ctx context.Context, v pipeline.VerifiedOutput) (pipeline.ApplyReport, error) {
	p.applied = v
	return pipeline.ApplyReport{Summary: "ok", NumActions: 1}, nil
}

func TestRunner_RefineFlow(t *testing.T) {
	fp := &fakePipeline{
		verify: func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error) {
			if r.RawText == "bad" {
				return false, nil, &pipeline.RefineRequest{UserPromptDelta: "fix", Reason: "no-code-detected"}, nil
			}
			if r.RawText == "good" {
				return true, "verified", nil, nil
			}
			return false, nil, nil, errors.New("unexpected")
		},
	}
	client := &fakeClient{responses: []string{"bad", "good"}}
	r := pipeline.Runner{
		Client:  client,
		Options: pipeline.RunOptions{MaxAttempts: 3, Timeout: 2 * time.Second},
	}
	report, err := r.Run(context.Background(), fp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Attempts != 2 {
		t.Fatalf("expected 2 attempts in report, got %d", report.Attempts)
	}
	if fp.applied != "verified" {
		t.Fatalf("expected Apply to receive verified output, got %v", fp.applied)
	}
	if len(client.prompts) != 2 || !strings.HasSuffix(client.prompts[1], "REFINE:\nfix") {
		t.Fatalf("expected refine delta in second prompt, got %q", client.prompts)
	}
	if !client.deadlines[0] {
		t.Fatalf("expected per-attempt deadline when Timeout is set")
	}
}

func TestRunner_ExhaustAttempts(t *testing.T) {
	fp := &fakePipeline{
		verify: func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error) {
			return false, nil, &pipeline.RefineRequest{UserPromptDelta: "again", Reason: "no-code-detected"}, nil
		},
	}
	client := &fakeClient{responses: []string{"bad1", "bad2"}}
	r := pipeline.Runner{
		Client:  client,
		Options: pipeline.RunOptions{MaxAttempts: 2, Timeout: time.Second},
	}
	_, err := r.Run(context.Background(), fp)
	var rejected *pipeline.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.Attempts != 2 || rejected.Reason != "no-code-detected" || rejected.LastResponse.RawText != "bad2" {
		t.Fatalf("unexpected rejection: %+v", rejected)
	}
	if fp.applied != nil {
		t.Fatalf("Apply must not run after rejection")
	}
}

func TestRunner_SingleAttemptByDefault(t *testing.T) {
	fp := &fakePipeline{
		verify: func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error) {
			return false, nil, &pipeline.RefineRequest{Reason: "no-code-detected"}, nil
		},
	}
	client := &fakeClient{responses: []string{"a", "b"}}
	_, err := pipeline.Runner{Client: client}.Run(context.Background(), fp)
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if client.call != 1 {
		t.Fatalf("expected exactly one model call, got %d", client.call)
	}
	if client.deadlines[0] {
		t.Fatalf("expected no deadline when Timeout is zero")
	}
}

func TestRunner_NoRefine(t *testing.T) {
	fp := &fakePipeline{
		verify: func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error) {
			return false, nil, nil, nil
		},
	}
	_, err := pipeline.Runner{Client: &fakeClient{responses: []string{"x"}}}.Run(context.Background(), fp)
	if !errors.Is(err, pipeline.ErrNoRefine) {
		t.Fatalf("expected ErrNoRefine, got %v", err)
	}
}

func TestRunner_DryRunPropagates(t *testing.T) {
	fp := &fakePipeline{
		verify: func(r pipeline.LLMResponse) (bool, any, *pipeline.RefineRequest, error) {
			return true, "v", nil, nil
		},
	}
	report, err := pipeline.Runner{
		Client:  &fakeClient{responses: []string{"x"}},
		Options: pipeline.RunOptions{DryRun: true},
	}.Run(context.Background(), fp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun {
		t.Fatalf("expected dry-run report")
	}
	if report.Attempts != 1 {
		t.Fatalf("expected 1 attempt in report, got %d", report.Attempts)
	}
}
