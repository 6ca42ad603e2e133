// Package history persists projects and their chat transcripts in sqlite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	SenderUser  = "user"
	SenderAgent = "agent"

	defaultNodeID = 1
	inMemoryPath  = ":memory:"
)

const schema = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	root_path TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	sender TEXT NOT NULL CHECK (sender IN ('user', 'agent')),
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_project ON chat_messages(project_id, id);
`

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
	ErrInvalidSender   = errors.New("sender must be user or agent")
	ErrBlankName       = errors.New("project name is blank")
)

type Project struct {
	ID        string
	Name      string
	RootPath  string
	CreatedAt time.Time
}

type Message struct {
	ID        int64
	ProjectID string
	Sender    string
	Message   string
	CreatedAt time.Time
}

type Store struct {
	db   *sql.DB
	node *snowflake.Node
	now  func() time.Time
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if path != inMemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	// PRAGMA foreign_keys is per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	node, err := snowflake.NewNode(defaultNodeID)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	return &Store{db: db, node: node, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateProject(ctx context.Context, name, rootPath string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, ErrBlankName
	}
	if _, err := s.FindProject(ctx, name); err == nil {
		return Project{}, fmt.Errorf("%w: %s", ErrProjectExists, name)
	} else if !errors.Is(err, ErrProjectNotFound) {
		return Project{}, err
	}
	project := Project{ID: uuid.NewString(), Name: name, RootPath: rootPath, CreatedAt: s.now().UTC()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, root_path, created_at) VALUES (?, ?, ?, ?)`,
		project.ID, project.Name, project.RootPath, project.CreatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("insert project %s: %w", name, err)
	}
	return project, nil
}

// ListProjects returns projects newest first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, root_path, created_at FROM projects ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var projects []Project
	for rows.Next() {
		var project Project
		if err := rows.Scan(&project.ID, &project.Name, &project.RootPath, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *Store) FindProject(ctx context.Context, name string) (Project, error) {
	var project Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, root_path, created_at FROM projects WHERE name = ?`, strings.TrimSpace(name)).
		Scan(&project.ID, &project.Name, &project.RootPath, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	if err != nil {
		return Project{}, fmt.Errorf("find project %s: %w", name, err)
	}
	return project, nil
}

// DeleteProject removes the project and its messages.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, projectID, sender, message string) (Message, error) {
	if sender != SenderUser && sender != SenderAgent {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	entry := Message{
		ID:        s.node.Generate().Int64(),
		ProjectID: projectID,
		Sender:    sender,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, project_id, sender, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.Sender, entry.Message, entry.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	return entry, nil
}

// Messages returns the transcript of a project oldest first.
func (s *Store) Messages(ctx context.Context, projectID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, sender, message, created_at FROM chat_messages WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var messages []Message
	for rows.Next() {
		var message Message
		if err := rows.Scan(&message.ID, &message.ProjectID, &message.Sender, &message.Message, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}
