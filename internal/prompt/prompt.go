// Package prompt renders the model prompt for one instruction.
package prompt

import (
	"strings"

	"github.com/temirov/code-agent/internal/intent"
)

const (
	answerSystemPrompt = "You are a senior Django developer. Answer questions about the user's project " +
		"accurately and concisely. Explain code in plain language and do not invent files."
	actionSystemPrompt = "You are a senior Django developer who writes production-ready Python. " +
		"Respond with exactly one fenced ```python code block containing the complete code to add, " +
		"followed by at most two sentences of explanation after the block."
)

var actionRules = []string{
	"Output only code that belongs in the target file.",
	"Include every import the new code needs.",
	"Define at least one class or function.",
	"Do not repeat code that already exists in the target file.",
	"Do not describe what you are going to do before the code block.",
}

// Input carries everything the prompt may reference; empty fields are omitted.
type Input struct {
	Instruction string
	Mode        intent.Mode
	Context     string
	FileContent string
	TargetPath  string
	SourcePath  string
}

type Prompt struct {
	System string
	User   string
}

// Text joins the system and user parts for endpoints that take a single prompt.
func (p Prompt) Text() string {
	if p.System == "" {
		return p.User
	}
	return p.System + "\n\n" + p.User
}

type Builder struct{}

// Build is pure: the same Input always renders the same Prompt.
func (Builder) Build(input Input) Prompt {
	var sb strings.Builder
	if context := strings.TrimSpace(input.Context); context != "" {
		sb.WriteString("Reference documentation:\n")
		sb.WriteString(context)
		sb.WriteString("\n\n")
	}
	if content := strings.TrimRight(input.FileContent, "\n"); content != "" {
		label := input.TargetPath
		if input.Mode == intent.ModeAction && input.SourcePath != "" {
			label = input.SourcePath
		}
		sb.WriteString("Contents of ")
		sb.WriteString(label)
		sb.WriteString(":\n```\n")
		sb.WriteString(content)
		sb.WriteString("\n```\n\n")
	}

	if input.Mode == intent.ModeAction {
		if input.TargetPath != "" {
			sb.WriteString("Target file: ")
			sb.WriteString(input.TargetPath)
			sb.WriteString("\n")
		}
		if input.SourcePath != "" {
			sb.WriteString("Source file for context (read only): ")
			sb.WriteString(input.SourcePath)
			sb.WriteString("\n")
		}
		sb.WriteString("Rules:\n")
		for _, rule := range actionRules {
			sb.WriteString("- ")
			sb.WriteString(rule)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Instruction:\n")
	sb.WriteString(strings.TrimSpace(input.Instruction))

	system := answerSystemPrompt
	if input.Mode == intent.ModeAction {
		system = actionSystemPrompt
	}
	return Prompt{System: system, User: sb.String()}
}
