package retrieval

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
)

const defaultEmbedConcurrency = 4

// Embedder produces a vector for text; llm.OllamaClient satisfies it.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float64, error)
}

// EmbedChunks fills in the embedding of every chunk, running at most
// concurrency requests at a time. The first failure cancels the rest.
func EmbedChunks(ctx context.Context, embedder Embedder, model string, chunks []Chunk, concurrency int) error {
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for position := range chunks {
		position := position
		group.Go(func() error {
			vector, err := embedder.Embed(groupCtx, model, chunks[position].Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", position, chunks[position].Source, err)
			}
			chunks[position].Embedding = toFloat32(vector)
			return nil
		})
	}
	return group.Wait()
}

func toFloat32(vector []float64) []float32 {
	out := make([]float32, len(vector))
	for position, value := range vector {
		out[position] = float32(value)
	}
	return out
}

// cosine returns 0 for mismatched or zero-length vectors.
func cosine(left []float32, right []float32) float64 {
	if len(left) == 0 || len(left) != len(right) {
		return 0
	}
	var dot, leftNorm, rightNorm float64
	for position := range left {
		l, r := float64(left[position]), float64(right[position])
		dot += l * r
		leftNorm += l * l
		rightNorm += r * r
	}
	if leftNorm == 0 || rightNorm == 0 {
		return 0
	}
	return dot / (math.Sqrt(leftNorm) * math.Sqrt(rightNorm))
}
