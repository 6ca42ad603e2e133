// Package merge reconciles extracted code with the file it targets and picks
// between creating the file and appending to it.
package merge

import (
	"strings"

	"go.uber.org/zap"
)

type Action int

const (
	ActionWriteNew Action = iota
	ActionAppendExisting
)

func (a Action) String() string {
	switch a {
	case ActionAppendExisting:
		return "APPEND_EXISTING"
	default:
		return "WRITE_NEW"
	}
}

// FileStore is the subset of the workspace store the selector needs.
type FileStore interface {
	Read(path string) (string, error)
	Write(path, content string) error
	Append(path, content string) error
}

type Plan struct {
	Code              string
	Action            Action
	DuplicatesRemoved int
}

// Empty reports whether an append plan has nothing left to add.
func (p Plan) Empty() bool { return strings.TrimSpace(p.Code) == "" }

type Selector struct {
	store  FileStore
	logger *zap.Logger
}

func NewSelector(store FileStore, logger *zap.Logger) Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Selector{store: store, logger: logger}
}

// Reconcile probes target. A readable file yields an append plan with lines
// already present in the file removed; any read failure yields a write plan
// with code unchanged.
func (s Selector) Reconcile(target, code string) Plan {
	existing, readErr := s.store.Read(target)
	if readErr != nil {
		s.logger.Debug("target not readable, planning new file", zap.String("path", target), zap.Error(readErr))
		return Plan{Code: code, Action: ActionWriteNew}
	}
	deduplicated, removed := RemoveDuplicateLines(existing, code)
	s.logger.Debug("reconciled against existing file",
		zap.String("path", target),
		zap.Int("duplicates_removed", removed))
	return Plan{Code: deduplicated, Action: ActionAppendExisting, DuplicatesRemoved: removed}
}

// Execute applies plan to target. An empty append plan is a no-op.
func (s Selector) Execute(target string, plan Plan) error {
	switch plan.Action {
	case ActionAppendExisting:
		if plan.Empty() {
			s.logger.Debug("nothing new to append", zap.String("path", target))
			return nil
		}
		return s.store.Append(target, plan.Code)
	default:
		return s.store.Write(target, plan.Code)
	}
}

// RemoveDuplicateLines drops every non-blank line of code whose trimmed form
// matches a trimmed line of existing. Blank lines are kept except leading
// ones, and trailing whitespace is removed from the result.
func RemoveDuplicateLines(existing, code string) (string, int) {
	present := make(map[string]struct{})
	for _, line := range strings.Split(existing, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			present[trimmed] = struct{}{}
		}
	}
	var (
		kept    []string
		removed int
	)
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(kept) > 0 {
				kept = append(kept, line)
			}
			continue
		}
		if _, duplicate := present[trimmed]; duplicate {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimRight(strings.Join(kept, "\n"), " \t\r\n"), removed
}
