// Package intent classifies a free-form instruction as a question about code
// or a request to change it.
package intent

import "strings"

type Mode int

const (
	ModeAnswer Mode = iota
	ModeAction
)

func (m Mode) String() string {
	switch m {
	case ModeAction:
		return "ACTION"
	default:
		return "ANSWER"
	}
}

// AnswerPhrases dominate action verbs so that "explain how to add a field"
// stays a question.
var AnswerPhrases = []string{
	"read the code", "read code", "explain the code", "explain code",
	"show me the code", "what is", "how does", "why", "explain", "describe",
	"tell me about", "difference", "when to use", "best practice",
	"help understand", "understand", "clarify",
}

var ActionVerbs = []string{
	"create", "write", "generate", "build", "add", "implement", "make",
	"develop", "insert", "update", "modify", "change", "delete",
}

const (
	readToken  = "read"
	writeToken = "write"
)

// Rule maps a predicate over the lowercased instruction to a mode.
type Rule struct {
	Name  string
	Match func(lowered string) bool
	Mode  Mode
}

// Classifier evaluates Rules in order; the first match wins and Fallback
// applies when none match.
type Classifier struct {
	Rules    []Rule
	Fallback Mode
}

func DefaultRules() []Rule {
	return []Rule{
		{Name: "answer-phrase", Match: containsAny(AnswerPhrases), Mode: ModeAnswer},
		{Name: "read-without-write", Match: func(lowered string) bool {
			return strings.Contains(lowered, readToken) && !strings.Contains(lowered, writeToken)
		}, Mode: ModeAnswer},
		{Name: "action-verb", Match: containsAny(ActionVerbs), Mode: ModeAction},
	}
}

func NewClassifier() Classifier {
	return Classifier{Rules: DefaultRules(), Fallback: ModeAnswer}
}

// Classify never fails. Matching is case-insensitive substring matching.
func (c Classifier) Classify(instruction string) Mode {
	mode, _ := c.Explain(instruction)
	return mode
}

// Explain returns the mode together with the name of the rule that produced
// it, or "default" when the fallback applied.
func (c Classifier) Explain(instruction string) (Mode, string) {
	lowered := strings.ToLower(instruction)
	for _, rule := range c.Rules {
		if rule.Match(lowered) {
			return rule.Mode, rule.Name
		}
	}
	return c.Fallback, "default"
}

// Classify uses the default rule set.
func Classify(instruction string) Mode { return NewClassifier().Classify(instruction) }

func containsAny(phrases []string) func(string) bool {
	return func(lowered string) bool {
		for _, phrase := range phrases {
			if strings.Contains(lowered, phrase) {
				return true
			}
		}
		return false
	}
}
