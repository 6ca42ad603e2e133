package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const unifiedContextLines = 3

// Unified renders a line-based unified diff between before and after.
// Identical inputs yield an empty string.
func Unified(before, after, fromLabel, toLabel string) (string, error) {
	unified := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  unifiedContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(unified)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(text, "\n"), nil
}

// splitLines keeps line terminators and, unlike difflib.SplitLines, does not
// add an empty trailing line when text already ends with a newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n"
	return lines
}

type Stats struct {
	Added     int
	Removed   int
	Unchanged int
}

func (s Stats) Changed() bool { return s.Added > 0 || s.Removed > 0 }

// Summarize counts added, removed and unchanged lines between before and after.
func Summarize(before, after string) Stats {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var stats Stats
	for _, chunk := range diffs {
		count := lineCount(chunk.Text)
		switch chunk.Type {
		case diffmatchpatch.DiffEqual:
			stats.Unchanged += count
		case diffmatchpatch.DiffDelete:
			stats.Removed += count
		case diffmatchpatch.DiffInsert:
			stats.Added += count
		}
	}
	return stats
}

func lineCount(value string) int {
	if value == "" {
		return 0
	}
	lines := strings.Split(value, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return len(lines)
}
