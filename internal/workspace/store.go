// Package workspace confines file reads and mutations to a single root directory.
//
// Every operation takes a workspace-relative path, joins it to the root,
// canonicalises it and refuses to touch anything that resolves outside the
// root or that would treat an existing file as a directory.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/diff"
	"github.com/temirov/code-agent/internal/fsops"
)

const (
	operationRead       = "read"
	operationWrite      = "write"
	operationAppend     = "append"
	operationDelete     = "delete"
	operationDiffUpdate = "diff-update"

	appendSeparator     = "\n\n"
	diffBeforeLabel     = "before"
	diffAfterLabel      = "after"
	directoryPermission = 0o755
	filePermission      = 0o644

	blankRootErrorMessage      = "workspace root is blank"
	canonicalRootErrorFormat   = "canonicalize workspace root %s: %w"
	rootIsFileErrorFormat      = "workspace root %s is a file"
	fileAsDirectoryDetail      = "treating file as directory: %s"
	directoryAsFileDetail      = "path is a directory"
	emptyPathDetail            = "path is empty"
	escapeDetailFormat         = "resolves to %s"
	canonicalPathDetailFormat  = "canonicalize: %v"
	unifiedDiffErrorDetail     = "render diff: %v"
	parentDirectoryErrorDetail = "create parent directories: %v"
)

// Store is a sandboxed view of one workspace root. A Store is immutable after
// construction; concurrent requests for different projects use different Stores.
type Store struct {
	root   string
	fs     fsops.FS
	logger *zap.Logger
}

// New builds a Store rooted at root. The root is canonicalised once; it may
// not exist yet but must not be a regular file.
func New(root string, filesystem fsops.FS, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New(blankRootErrorMessage)
	}
	if filesystem == nil {
		filesystem = fsops.NewOS()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	canonicalRoot, err := filesystem.Canonical(root)
	if err != nil {
		return nil, fmt.Errorf(canonicalRootErrorFormat, root, err)
	}
	if info, statErr := filesystem.Stat(canonicalRoot); statErr == nil && !info.IsDir() {
		return nil, fmt.Errorf(rootIsFileErrorFormat, canonicalRoot)
	}
	return &Store{root: canonicalRoot, fs: filesystem, logger: logger}, nil
}

// Root returns the canonical workspace root.
func (s *Store) Root() string { return s.root }

// Read returns the content of an existing file.
func (s *Store) Read(path string) (string, error) {
	resolved, err := s.resolve(operationRead, path)
	if err != nil {
		return "", err
	}
	info, statErr := s.fs.Stat(resolved)
	if statErr != nil {
		return "", s.statFailure(operationRead, path, statErr)
	}
	if info.IsDir() {
		return "", &PathError{Op: operationRead, Path: path, Err: ErrInvalidPath, Detail: directoryAsFileDetail}
	}
	content, readErr := s.fs.ReadFile(resolved)
	if readErr != nil {
		return "", newPathError(operationRead, path, readErr)
	}
	return string(content), nil
}

// Write creates a new file, creating intermediate directories. It never
// overwrites an existing path.
func (s *Store) Write(path, content string) error {
	resolved, err := s.resolve(operationWrite, path)
	if err != nil {
		return err
	}
	if _, statErr := s.fs.Stat(resolved); statErr == nil {
		return newPathError(operationWrite, path, ErrAlreadyExists)
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return newPathError(operationWrite, path, statErr)
	}
	if mkdirErr := s.fs.MkdirAll(filepath.Dir(resolved), directoryPermission); mkdirErr != nil {
		return &PathError{Op: operationWrite, Path: path, Err: ErrInvalidPath, Detail: fmt.Sprintf(parentDirectoryErrorDetail, mkdirErr)}
	}
	if writeErr := s.fs.WriteFile(resolved, []byte(content), filePermission); writeErr != nil {
		return newPathError(operationWrite, path, writeErr)
	}
	s.logger.Debug("file written", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}

// Append adds a blank-line separator followed by content to an existing file.
func (s *Store) Append(path, content string) error {
	resolved, err := s.resolve(operationAppend, path)
	if err != nil {
		return err
	}
	if err := s.requireFile(operationAppend, path, resolved); err != nil {
		return err
	}
	if appendErr := s.fs.AppendFile(resolved, []byte(appendSeparator+content)); appendErr != nil {
		return newPathError(operationAppend, path, appendErr)
	}
	s.logger.Debug("file appended", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}

// Delete removes an existing file.
func (s *Store) Delete(path string) error {
	resolved, err := s.resolve(operationDelete, path)
	if err != nil {
		return err
	}
	if err := s.requireFile(operationDelete, path, resolved); err != nil {
		return err
	}
	if removeErr := s.fs.Remove(resolved); removeErr != nil {
		return newPathError(operationDelete, path, removeErr)
	}
	s.logger.Debug("file deleted", zap.String("path", path))
	return nil
}

// DiffUpdate overwrites an existing file with newContent and returns the
// unified diff between the old and new content.
func (s *Store) DiffUpdate(path, newContent string) (string, error) {
	resolved, err := s.resolve(operationDiffUpdate, path)
	if err != nil {
		return "", err
	}
	if err := s.requireFile(operationDiffUpdate, path, resolved); err != nil {
		return "", err
	}
	previous, readErr := s.fs.ReadFile(resolved)
	if readErr != nil {
		return "", newPathError(operationDiffUpdate, path, readErr)
	}
	unified, diffErr := diff.Unified(string(previous), newContent, diffBeforeLabel, diffAfterLabel)
	if diffErr != nil {
		return "", &PathError{Op: operationDiffUpdate, Path: path, Err: diffErr, Detail: fmt.Sprintf(unifiedDiffErrorDetail, diffErr)}
	}
	if writeErr := s.fs.WriteFile(resolved, []byte(newContent), filePermission); writeErr != nil {
		return "", newPathError(operationDiffUpdate, path, writeErr)
	}
	stats := diff.Summarize(string(previous), newContent)
	s.logger.Debug("file updated",
		zap.String("path", path),
		zap.Int("lines_added", stats.Added),
		zap.Int("lines_removed", stats.Removed))
	return unified, nil
}

// resolve maps a workspace-relative path to its canonical absolute form and
// enforces containment and the no-file-as-directory rule.
func (s *Store) resolve(op, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &PathError{Op: op, Path: path, Err: ErrInvalidPath, Detail: emptyPathDetail}
	}
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, filepath.FromSlash(path))
	}
	canonical, err := s.fs.Canonical(candidate)
	if err != nil {
		return "", &PathError{Op: op, Path: path, Err: ErrInvalidPath, Detail: fmt.Sprintf(canonicalPathDetailFormat, err)}
	}
	if !s.contains(canonical) {
		s.logger.Warn("path escapes workspace", zap.String("path", path), zap.String("resolved", canonical))
		return "", &PathError{Op: op, Path: path, Err: ErrAccessDenied, Detail: fmt.Sprintf(escapeDetailFormat, canonical)}
	}
	if canonical == s.root {
		return "", &PathError{Op: op, Path: path, Err: ErrInvalidPath, Detail: directoryAsFileDetail}
	}
	for ancestor := filepath.Dir(canonical); s.contains(ancestor); ancestor = filepath.Dir(ancestor) {
		info, statErr := s.fs.Stat(ancestor)
		if statErr == nil && !info.IsDir() {
			return "", &PathError{Op: op, Path: path, Err: ErrInvalidPath, Detail: fmt.Sprintf(fileAsDirectoryDetail, ancestor)}
		}
		if ancestor == s.root {
			break
		}
	}
	return canonical, nil
}

func (s *Store) contains(candidate string) bool {
	relative, err := filepath.Rel(s.root, candidate)
	if err != nil {
		return false
	}
	if relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(relative)
}

func (s *Store) requireFile(op, path, resolved string) error {
	info, statErr := s.fs.Stat(resolved)
	if statErr != nil {
		return s.statFailure(op, path, statErr)
	}
	if info.IsDir() {
		return &PathError{Op: op, Path: path, Err: ErrInvalidPath, Detail: directoryAsFileDetail}
	}
	return nil
}

func (s *Store) statFailure(op, path string, statErr error) error {
	if errors.Is(statErr, fs.ErrNotExist) {
		return newPathError(op, path, ErrNotFound)
	}
	return newPathError(op, path, statErr)
}
