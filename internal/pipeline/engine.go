package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type LLMClient interface {
	Chat(ctx context.Context, request LLMRequest) (LLMResponse, error)
}

type RunOptions struct {
	MaxAttempts int
	DryRun      bool
	// Timeout bounds each model call; zero leaves the call bounded only by ctx.
	Timeout time.Duration
}

type Runner struct {
	Client  LLMClient
	Options RunOptions
	Logger  *zap.Logger
}

// RejectedError is returned when Verify never accepted a response. Reason is
// the reason of the last refine request.
type RejectedError struct {
	Attempts     int
	Reason       string
	LastResponse LLMResponse
	debug        string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("exhausted %d attempt(s) without acceptance (%s)\n%s", e.Attempts, e.Reason, e.debug)
}

// ErrNoRefine is returned when Verify rejects a response without a refine request.
var ErrNoRefine = errors.New("verify rejected result and no refine request provided")

func (r Runner) Run(ctx context.Context, p Pipeline) (ApplyReport, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gathered, gatherErr := p.Gather(ctx)
	if gatherErr != nil {
		return ApplyReport{}, fmt.Errorf("gather: %w", gatherErr)
	}

	var (
		attemptLogs   []attemptRecord
		lastResponse  LLMResponse
		lastReason    string
		verified      VerifiedOutput
		accepted      bool
		pendingRefine string
	)
	maxAttempts := max(1, r.Options.MaxAttempts)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, reqErr := p.Prompt(ctx, gathered)
		if reqErr != nil {
			return ApplyReport{}, fmt.Errorf("prompt: %w", reqErr)
		}
		if strings.TrimSpace(pendingRefine) != "" {
			req.UserPrompt = appendRefine(req.UserPrompt, pendingRefine)
		}
		resp, chatErr := r.chat(ctx, req)
		if chatErr != nil {
			return ApplyReport{}, fmt.Errorf("llm chat: %w", chatErr)
		}
		lastResponse = resp
		record := attemptRecord{Request: req, Response: resp}

		ok, out, refine, verErr := p.Verify(ctx, gathered, resp)
		if verErr != nil {
			return ApplyReport{}, fmt.Errorf("verify: %w", verErr)
		}
		if ok {
			record.Accepted = true
			attemptLogs = append(attemptLogs, record)
			accepted = true
			verified = out
			logger.Debug("response accepted", zap.String("pipeline", p.Name()), zap.Int("attempt", attempt))
			break
		}
		if refine == nil {
			attemptLogs = append(attemptLogs, record)
			return ApplyReport{}, ErrNoRefine
		}
		record.Refine = refine
		attemptLogs = append(attemptLogs, record)
		lastReason = refine.Reason
		pendingRefine = formatRefine(refine.UserPromptDelta)
		logger.Debug("response rejected",
			zap.String("pipeline", p.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.String("reason", refine.Reason))
	}

	if !accepted {
		return ApplyReport{}, &RejectedError{
			Attempts:     len(attemptLogs),
			Reason:       lastReason,
			LastResponse: lastResponse,
			debug:        renderAttemptDebug(attemptLogs, lastResponse),
		}
	}

	report, applyErr := p.Apply(ctx, verified)
	report.DryRun = report.DryRun || r.Options.DryRun
	report.Attempts = len(attemptLogs)
	return report, applyErr
}

func (r Runner) chat(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if r.Options.Timeout <= 0 {
		return r.Client.Chat(ctx, req)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.Options.Timeout)
	defer cancel()
	return r.Client.Chat(attemptCtx, req)
}

type attemptRecord struct {
	Request  LLMRequest
	Response LLMResponse
	Refine   *RefineRequest
	Accepted bool
}

func renderAttemptDebug(attempts []attemptRecord, lastResponse LLMResponse) string {
	if len(attempts) == 0 {
		return fmt.Sprintf("last response: %s", truncate(lastResponse.RawText, 280))
	}
	var sb strings.Builder
	for idx, attempt := range attempts {
		sb.WriteString(fmt.Sprintf("Attempt %d:\n", idx+1))
		sb.WriteString(fmt.Sprintf("  Model: %s\n", attempt.Request.Model))
		sb.WriteString("  User Prompt:\n")
		sb.WriteString(indentBlock(truncate(attempt.Request.UserPrompt, 1200)))
		sb.WriteString("\n  Response:\n")
		sb.WriteString(indentBlock(truncate(attempt.Response.RawText, 1200)))
		sb.WriteString("\n")
		if attempt.Refine != nil {
			sb.WriteString("  Refine Reason: ")
			sb.WriteString(attempt.Refine.Reason)
			sb.WriteString("\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func indentBlock(block string) string {
	if block == "" {
		return "    <empty>"
	}
	lines := strings.Split(block, "\n")
	for idx, line := range lines {
		lines[idx] = "    " + line
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func appendRefine(original, refine string) string {
	trimmedOriginal := strings.TrimRight(original, "\n")
	if trimmedOriginal == "" {
		return refine
	}
	return trimmedOriginal + "\n\n" + refine
}

func formatRefine(delta string) string {
	trimmed := strings.TrimSpace(delta)
	if trimmed == "" {
		return "REFINE:\n<empty>"
	}
	return "REFINE:\n" + trimmed
}
