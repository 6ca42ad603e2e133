package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/code-agent/internal/intent"
	"github.com/temirov/code-agent/internal/merge"
)

const (
	banner = "============================================================"

	statusCreatedFormat    = "✅ File created: %s"
	statusAppendedFormat   = "✅ Code appended to: %s"
	statusNothingNewFormat = "ℹ️ Nothing new to append to: %s"
	statusFileErrorFormat  = "❌ [FILE ERROR] %v"
	statusDryRunFormat     = "📝 Dry run: would %s %s"
	warningFormat          = "⚠️ Syntax warning: %s"

	noCodeMessage        = "❌ No code detected in LLM output.\n\n"
	missingTargetMessage = "❌ ACTION MODE requires a file path.\n\n"
	cannotReadFormat     = "❌ Cannot read file: %v"
	genericFailureFormat = "❌ %v"

	codeFromFormat     = "📄 Code from %s:"
	explanationHeading = "📝 Explanation:"
	fullResponseLabel  = "📝 Full Response:"
	sourcesHeading     = "📚 Sources:"
	previewHeading     = "🔍 Preview:"
	sourceItemFormat   = "  • %s"
)

func successStatus(target string, action merge.Action) string {
	if action == merge.ActionAppendExisting {
		return fmt.Sprintf(statusAppendedFormat, target)
	}
	return fmt.Sprintf(statusCreatedFormat, target)
}

func dryRunStatus(target string, plan merge.Plan) string {
	verb := "create"
	if plan.Action == merge.ActionAppendExisting {
		verb = "append to"
		if plan.Empty() {
			return fmt.Sprintf(statusNothingNewFormat, target)
		}
	}
	return fmt.Sprintf(statusDryRunFormat, verb, target)
}

func format(outcome Outcome) string {
	if outcome.Err != nil {
		return formatFailure(outcome)
	}
	if outcome.Mode == intent.ModeAnswer {
		return formatAnswer(outcome)
	}
	return formatAction(outcome)
}

func formatFailure(outcome Outcome) string {
	switch {
	case errors.Is(outcome.Err, ErrNoCodeDetected):
		return noCodeMessage + outcome.Raw
	case errors.Is(outcome.Err, ErrMissingTargetPath):
		return missingTargetMessage + outcome.Raw
	case errors.Is(outcome.Err, ErrCannotReadFile):
		var readErr *readError
		if errors.As(outcome.Err, &readErr) {
			return fmt.Sprintf(cannotReadFormat, readErr.err)
		}
		return fmt.Sprintf(cannotReadFormat, outcome.Err)
	default:
		return fmt.Sprintf(genericFailureFormat, outcome.Err)
	}
}

func formatAnswer(outcome Outcome) string {
	return FormatAnswer(outcome, outcome.Raw)
}

// FormatAnswer lays out an answer outcome with body in place of the model
// text. The file frame and the sources list are kept verbatim.
func FormatAnswer(outcome Outcome, body string) string {
	var lines []string
	if outcome.FileContent != "" {
		lines = append(lines,
			fmt.Sprintf(codeFromFormat, outcome.Paths.Target),
			banner,
			outcome.FileContent,
			banner,
			"",
			explanationHeading,
			banner,
		)
	}
	lines = append(lines, body)
	lines = appendSources(lines, outcome.Sources)
	return strings.Join(lines, "\n")
}

func formatAction(outcome Outcome) string {
	lines := []string{outcome.Status}
	for _, warning := range outcome.Warnings {
		lines = append(lines, fmt.Sprintf(warningFormat, warning))
	}
	if outcome.Preview != "" {
		lines = append(lines, "", banner, previewHeading, banner, outcome.Preview)
	}
	lines = append(lines, "", banner, fullResponseLabel, banner, outcome.Raw)
	lines = appendSources(lines, outcome.Sources)
	return strings.Join(lines, "\n")
}

func appendSources(lines []string, sources []string) []string {
	if len(sources) == 0 {
		return lines
	}
	lines = append(lines, "", banner, sourcesHeading, banner)
	for _, source := range sources {
		lines = append(lines, fmt.Sprintf(sourceItemFormat, source))
	}
	return lines
}
