// Package syntax reports Python parse errors in extracted code. Diagnostics
// are advisory; callers never block a write on them.
package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

const pythonExtension = ".py"

// Issue locates a syntax error or missing token, 1-based.
type Issue struct {
	Line    int
	Column  int
	Missing bool
	Node    string
}

func (i Issue) String() string {
	if i.Missing {
		return fmt.Sprintf("line %d, column %d: missing %s", i.Line, i.Column, i.Node)
	}
	return fmt.Sprintf("line %d, column %d: syntax error", i.Line, i.Column)
}

// Checker parses Python source. It holds no parser state, so one Checker can
// be shared across goroutines.
type Checker struct{}

func NewChecker() Checker { return Checker{} }

// Supports reports whether path names a file the checker understands.
func (Checker) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), pythonExtension)
}

// Check returns every error or missing node in source in document order.
func (Checker) Check(ctx context.Context, source string) ([]Issue, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}
	var issues []Issue
	collect(root, &issues)
	return issues, nil
}

func collect(node *sitter.Node, issues *[]Issue) {
	if node == nil {
		return
	}
	if node.IsError() || node.IsMissing() {
		start := node.StartPoint()
		*issues = append(*issues, Issue{
			Line:    int(start.Row) + 1,
			Column:  int(start.Column) + 1,
			Missing: node.IsMissing(),
			Node:    node.Type(),
		})
		if node.IsMissing() {
			return
		}
	}
	if !node.HasError() {
		return
	}
	for index := 0; index < int(node.ChildCount()); index++ {
		collect(node.Child(index), issues)
	}
}
