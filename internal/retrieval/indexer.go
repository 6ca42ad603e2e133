package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"

	"github.com/temirov/code-agent/internal/fsops"
)

var DefaultDocumentExtensions = []string{".txt", ".md", ".rst"}

// Indexer chunks documentation files under a directory, embeds them and
// stores them in an Index, one source file at a time.
type Indexer struct {
	FS             fsops.FS
	Index          *Index
	Embedder       Embedder
	EmbeddingModel string
	Extensions     []string
	ChunkSize      int
	Concurrency    int
	Logger         *zap.Logger
}

type IndexReport struct {
	Files  int
	Chunks int
}

func (x Indexer) Build(ctx context.Context, root string) (IndexReport, error) {
	logger := x.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	extensions := x.Extensions
	if len(extensions) == 0 {
		extensions = DefaultDocumentExtensions
	}
	files, err := fsops.NewOps(x.FS).Inventory(root, extensions)
	if err != nil {
		return IndexReport{}, fmt.Errorf("inventory %s: %w", root, err)
	}
	var report IndexReport
	for _, file := range files {
		content, readErr := x.FS.ReadFile(file.AbsolutePath)
		if readErr != nil {
			return report, fmt.Errorf("read %s: %w", file.RelativePath, readErr)
		}
		chunks := SplitText(file.RelativePath, string(content), x.ChunkSize)
		if len(chunks) == 0 {
			continue
		}
		if x.Embedder != nil && x.EmbeddingModel != "" {
			if embedErr := EmbedChunks(ctx, x.Embedder, x.EmbeddingModel, chunks, x.Concurrency); embedErr != nil {
				return report, embedErr
			}
		}
		if storeErr := x.Index.ReplaceSource(ctx, file.RelativePath, chunks); storeErr != nil {
			return report, storeErr
		}
		report.Files++
		report.Chunks += len(chunks)
		logger.Debug("indexed file", zap.String("source", file.RelativePath), zap.Int("chunks", len(chunks)))
	}
	return report, nil
}

// Load opens the index at path and returns a Hybrid retriever over its
// chunks. A missing index file yields Nop so that the agent still runs.
func Load(ctx context.Context, filesystem fsops.FS, path string, options HybridOptions) (Retriever, error) {
	if path == "" {
		return Nop{}, nil
	}
	if _, statErr := filesystem.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if options.Logger != nil {
			options.Logger.Warn("retrieval index not found; run the index command", zap.String("path", path))
		}
		return Nop{}, nil
	}
	index, err := OpenIndex(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = index.Close() }()
	chunks, err := index.Chunks(ctx)
	if err != nil {
		return nil, err
	}
	return NewHybrid(chunks, options), nil
}
