// Package paths picks the write target and an optional read source out of an
// instruction by looking at file-like tokens and the prepositions before them.
//
// The preposition rules are a heuristic, not a grammar: instructions with
// several action verbs and several "in" clauses can still resolve to the
// wrong file.
package paths

import (
	"strings"

	"github.com/temirov/code-agent/internal/intent"
)

var DefaultExtensions = []string{".py", ".html"}

// ReadIndicators gate path extraction in ANSWER mode; without one the
// instruction is treated as a conceptual question.
var ReadIndicators = []string{
	"read the code in", "read code in", "read the file", "read file",
	"show me the code in", "show code in", "explain the code in",
	"explain code in", "what does the code in", "open", "display the file",
}

var (
	targetPrepositions = []string{"into", "to", "inside"}
	sourcePrepositions = []string{"from", "inside"}
	inPreposition      = "in"
	// targetVerbs must appear before an "in" for the following file to be a target.
	targetVerbs = []string{"create", "write", "add", "register", "make"}
)

const tokenTrimCutset = "\"'`,;:!?()[]"

// Resolved holds workspace-relative paths; an empty string means absent.
type Resolved struct {
	Target string
	Source string
}

type Resolver struct {
	Extensions []string
}

func NewResolver(extensions []string) Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return Resolver{Extensions: extensions}
}

// Resolve extracts the target path and, in ACTION mode, a source path that
// differs from the target. It performs no I/O.
func (r Resolver) Resolve(instruction string, mode intent.Mode) Resolved {
	lowered := strings.ToLower(instruction)
	if mode == intent.ModeAnswer && !containsAny(lowered, ReadIndicators) {
		return Resolved{}
	}
	tokens := tokenize(instruction)
	target := r.target(tokens)
	if mode != intent.ModeAction {
		return Resolved{Target: target}
	}
	return Resolved{Target: target, Source: r.source(tokens, target)}
}

func (r Resolver) target(tokens []string) string {
	strategies := []func([]string) string{r.afterTargetPreposition, r.afterActionIn, r.lastFile}
	for _, strategy := range strategies {
		if found := strategy(tokens); found != "" {
			return found
		}
	}
	return ""
}

func (r Resolver) afterTargetPreposition(tokens []string) string {
	for index := 0; index+1 < len(tokens); index++ {
		if matchesWord(tokens[index], targetPrepositions) && r.isFile(tokens[index+1]) {
			return tokens[index+1]
		}
	}
	return ""
}

func (r Resolver) afterActionIn(tokens []string) string {
	for index := 0; index+1 < len(tokens); index++ {
		if !strings.EqualFold(tokens[index], inPreposition) || !r.isFile(tokens[index+1]) {
			continue
		}
		preceding := strings.ToLower(strings.Join(tokens[:index], " "))
		if containsAny(preceding, targetVerbs) {
			return tokens[index+1]
		}
	}
	return ""
}

func (r Resolver) lastFile(tokens []string) string {
	for index := len(tokens) - 1; index >= 0; index-- {
		if r.isFile(tokens[index]) {
			return tokens[index]
		}
	}
	return ""
}

func (r Resolver) source(tokens []string, target string) string {
	for index := 0; index+1 < len(tokens); index++ {
		candidate := tokens[index+1]
		if matchesWord(tokens[index], sourcePrepositions) && r.isFile(candidate) && candidate != target {
			return candidate
		}
	}
	return ""
}

func (r Resolver) isFile(token string) bool {
	for _, extension := range r.Extensions {
		if len(token) > len(extension) && strings.HasSuffix(token, extension) {
			return true
		}
	}
	return false
}

// tokenize splits on whitespace and strips quoting and trailing punctuation
// so that "`app/models.py`," still reads as a file token.
func tokenize(instruction string) []string {
	fields := strings.Fields(instruction)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		trimmed := strings.TrimRight(strings.TrimLeft(field, tokenTrimCutset), tokenTrimCutset+".")
		if trimmed == "" {
			trimmed = field
		}
		tokens = append(tokens, trimmed)
	}
	return tokens
}

func matchesWord(token string, words []string) bool {
	for _, word := range words {
		if strings.EqualFold(token, word) {
			return true
		}
	}
	return false
}

func containsAny(lowered string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
