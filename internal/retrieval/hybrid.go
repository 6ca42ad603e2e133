package retrieval

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const (
	rrfConstant       = 60
	fusionIDLength    = 100
	maxCandidates     = 20
	candidateMultiple = 3
	DefaultAlpha      = 0.5
	DefaultK          = 4
	contextSeparator  = "\n\n"
)

type HybridOptions struct {
	// Alpha weights embedding ranks against keyword ranks: 0 is keyword only,
	// 1 is embedding only.
	Alpha          float64
	EmbeddingModel string
	Embedder       Embedder
	Logger         *zap.Logger
}

// Hybrid fuses BM25 and embedding rankings over an in-memory chunk set.
type Hybrid struct {
	chunks  []Chunk
	keyword *BM25
	options HybridOptions
}

func NewHybrid(chunks []Chunk, options HybridOptions) *Hybrid {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	documents := make([]string, len(chunks))
	for position, chunk := range chunks {
		documents[position] = chunk.Content
	}
	return &Hybrid{chunks: chunks, keyword: NewBM25(documents), options: options}
}

type ranked struct {
	position int
	rank     int
}

func (h *Hybrid) Retrieve(ctx context.Context, query string, k int) Result {
	if len(h.chunks) == 0 || strings.TrimSpace(query) == "" {
		return Result{}
	}
	if k <= 0 {
		k = DefaultK
	}
	processed := PreprocessQuery(query)
	candidates := min(k*candidateMultiple, maxCandidates)

	semantic := h.semanticSearch(ctx, processed.Semantic, candidates)
	var keyword []ranked
	for rank, position := range h.keyword.Top(processed.Keyword, candidates) {
		keyword = append(keyword, ranked{position: position, rank: rank})
	}
	h.options.Logger.Debug("retrieval candidates",
		zap.String("keyword_query", processed.Keyword),
		zap.Int("semantic", len(semantic)),
		zap.Int("keyword", len(keyword)))

	fused := fuse(h.chunks, semantic, keyword, h.options.Alpha, k)
	result := Result{}
	seen := map[string]struct{}{}
	contents := make([]string, 0, len(fused))
	for _, position := range fused {
		chunk := h.chunks[position]
		contents = append(contents, chunk.Content)
		if _, duplicate := seen[chunk.Source]; !duplicate {
			seen[chunk.Source] = struct{}{}
			result.Sources = append(result.Sources, chunk.Source)
		}
	}
	result.Text = strings.Join(contents, contextSeparator)
	return result
}

func (h *Hybrid) semanticSearch(ctx context.Context, query string, candidates int) []ranked {
	if h.options.Embedder == nil || h.options.EmbeddingModel == "" {
		return nil
	}
	vector, err := h.options.Embedder.Embed(ctx, h.options.EmbeddingModel, query)
	if err != nil {
		h.options.Logger.Warn("semantic search failed, using keyword ranking only", zap.Error(err))
		return nil
	}
	queryVector := toFloat32(vector)
	scores := make([]float64, len(h.chunks))
	for position, chunk := range h.chunks {
		scores[position] = cosine(queryVector, chunk.Embedding)
	}
	var out []ranked
	for rank, position := range topPositions(scores, candidates, func(score float64) bool { return score != 0 }) {
		out = append(out, ranked{position: position, rank: rank})
	}
	return out
}

// fuse applies weighted reciprocal rank fusion. Chunks are identified by the
// first characters of their content so that duplicates across sources merge.
func fuse(chunks []Chunk, semantic, keyword []ranked, alpha float64, k int) []int {
	type entry struct {
		position int
		score    float64
	}
	entries := map[string]*entry{}
	var ordered []*entry
	add := func(list []ranked, weight float64) {
		for _, item := range list {
			identity := fusionID(chunks[item.position].Content)
			current, ok := entries[identity]
			if !ok {
				current = &entry{position: item.position}
				entries[identity] = current
				ordered = append(ordered, current)
			}
			current.score += weight / float64(item.rank+rrfConstant)
		}
	}
	add(semantic, alpha)
	add(keyword, 1-alpha)

	sort.SliceStable(ordered, func(left, right int) bool {
		return ordered[left].score > ordered[right].score
	})
	if k < len(ordered) {
		ordered = ordered[:k]
	}
	positions := make([]int, len(ordered))
	for index, item := range ordered {
		positions[index] = item.position
	}
	return positions
}

func fusionID(content string) string {
	runes := []rune(content)
	if len(runes) > fusionIDLength {
		runes = runes[:fusionIDLength]
	}
	return string(runes)
}
