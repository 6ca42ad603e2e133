// Package extract pulls a single code unit out of free-form model output.
//
// Strategies run in order and the first one that yields validated code wins.
// Every strategy shares the same cleaning pass: fence-only lines and prose
// marker lines are dropped, and the remainder must contain a class or def.
package extract

import (
	"regexp"
	"strings"
)

const (
	StrategyFenced     = "fenced-block"
	StrategyContiguous = "contiguous-scan"
	StrategyBestBlock  = "best-block"
)

// Strategy returns candidate code from raw text, or "" when it finds none.
// Candidates are cleaned and validated by the Engine.
type Strategy interface {
	Name() string
	Candidate(raw string) string
}

type Result struct {
	Code     string
	Strategy string
}

func (r Result) Empty() bool { return r.Code == "" }

type Engine struct {
	Strategies []Strategy
}

func NewEngine() Engine {
	return Engine{Strategies: []Strategy{FencedBlock{}, ContiguousScan{}, BestBlock{}}}
}

// Extract never fails; an empty Result means no code was detected.
func (e Engine) Extract(raw string) Result {
	for _, strategy := range e.Strategies {
		candidate := strategy.Candidate(raw)
		if candidate == "" {
			continue
		}
		if cleaned := Clean(candidate); cleaned != "" {
			return Result{Code: cleaned, Strategy: strategy.Name()}
		}
	}
	return Result{}
}

// Extract runs the default strategies.
func Extract(raw string) string { return NewEngine().Extract(raw).Code }

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[\\w+-]*[ \\t]*\\r?\\n(.*?)\\r?\\n[ \\t]*```")
	fenceLinePattern   = regexp.MustCompile("^```[\\w+-]*$")
	definitionPattern  = regexp.MustCompile(`(?m)^\s*(async\s+)?(class|def)\s+[A-Za-z_]\w*\s*[(:]`)
	modeBannerPattern  = regexp.MustCompile(`^In .*MODE`)

	assignmentPattern    = regexp.MustCompile(`^[A-Za-z_][\w.]*(\[[^\]]*\])?\s*(:\s*[\w.\[\], ]+)?\s*[-+*/|&%]?=[^=]`)
	controlFlowPattern   = regexp.MustCompile(`^(return|if|elif|else|for|while|with|try|except|finally|raise|yield|pass|break|continue|async|await|assert|del|global|nonlocal)\b`)
	attributeCallPattern = regexp.MustCompile(`^[A-Za-z_]\w*(\.[A-Za-z_]\w*)+\s*\(`)
	callPattern          = regexp.MustCompile(`^[A-Za-z_]\w*\(.*\)$`)
)

var (
	// definitionOpeners start a code region in the scanning strategies.
	definitionOpeners = []string{"from ", "import ", "class ", "def ", "@"}

	// stopMarkers end a contiguous region; the marker line is excluded.
	stopMarkers = []string{
		"Explanation:", "Note:", "Summary:", "This will", "This code", "The code",
		"In this case", "The above", "By default", "You can now",
	}

	// proseMarkers are dropped by Clean wherever they appear.
	proseMarkers = append([]string{"In this", "This model"}, stopMarkers...)
)

// FencedBlock takes the interior of the first fenced block.
type FencedBlock struct{}

func (FencedBlock) Name() string { return StrategyFenced }

func (FencedBlock) Candidate(raw string) string {
	match := fencedBlockPattern.FindStringSubmatch(raw)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// ContiguousScan records from the first definition opener until a stop
// marker. Comment, assignment and call lines directly above the opener
// belong to the region, so a module header survives a second extraction.
type ContiguousScan struct{}

func (ContiguousScan) Name() string { return StrategyContiguous }

func (ContiguousScan) Candidate(raw string) string {
	lines := strings.Split(raw, "\n")
	start := -1
	for index, line := range lines {
		if hasAnyPrefix(strings.TrimSpace(line), definitionOpeners) {
			start = index
			break
		}
	}
	if start < 0 {
		return ""
	}
	for index := start - 1; index >= 0; index-- {
		stripped := strings.TrimSpace(lines[index])
		if stripped == "" {
			continue
		}
		if !isLeadingCode(stripped) {
			break
		}
		start = index
	}
	var recorded []string
	for _, line := range lines[start:] {
		if isStopLine(strings.TrimSpace(line)) {
			break
		}
		recorded = append(recorded, line)
	}
	return strings.TrimSpace(strings.Join(recorded, "\n"))
}

// BestBlock keeps the longest run of code-shaped lines that starts with a
// definition opener. It tolerates prose before, between and after blocks.
type BestBlock struct{}

func (BestBlock) Name() string { return StrategyBestBlock }

func (BestBlock) Candidate(raw string) string {
	best := ""
	var current []string
	inBlock := false
	closeBlock := func() {
		block := strings.TrimSpace(strings.Join(current, "\n"))
		if len(block) > len(best) {
			best = block
		}
		current = nil
		inBlock = false
	}
	for _, line := range strings.Split(raw, "\n") {
		stripped := strings.TrimSpace(line)
		switch {
		case hasAnyPrefix(stripped, definitionOpeners):
			inBlock = true
			current = append(current, line)
		case inBlock && isContinuation(line, stripped):
			current = append(current, line)
		case inBlock:
			closeBlock()
		}
	}
	if inBlock {
		closeBlock()
	}
	return best
}

func isLeadingCode(stripped string) bool {
	return strings.HasPrefix(stripped, "#") ||
		assignmentPattern.MatchString(stripped) ||
		attributeCallPattern.MatchString(stripped) ||
		callPattern.MatchString(stripped)
}

func isContinuation(line, stripped string) bool {
	if stripped == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
		return true
	}
	return assignmentPattern.MatchString(stripped) ||
		controlFlowPattern.MatchString(stripped) ||
		attributeCallPattern.MatchString(stripped)
}

// Clean drops fence-only lines and prose marker lines, then returns the
// trimmed remainder only when it contains a class or def definition.
func Clean(code string) string {
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		stripped := strings.TrimSpace(line)
		if fenceLinePattern.MatchString(stripped) {
			continue
		}
		if hasAnyPrefix(stripped, proseMarkers) || modeBannerPattern.MatchString(stripped) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t\r"))
	}
	cleaned := strings.TrimSpace(strings.Join(kept, "\n"))
	if !HasDefinition(cleaned) {
		return ""
	}
	return cleaned
}

// HasDefinition reports whether text contains a class or def marker.
func HasDefinition(text string) bool { return definitionPattern.MatchString(text) }

func isStopLine(stripped string) bool {
	return hasAnyPrefix(stripped, stopMarkers) || modeBannerPattern.MatchString(stripped)
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
