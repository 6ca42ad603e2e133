package retrieval

import (
	"math"
	"sort"
)

const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// BM25 is an Okapi BM25 index over whitespace-lowercased documents.
// Terms whose idf would be negative get epsilon times the average idf, or
// epsilon itself when that average is not positive (tiny corpora).
type BM25 struct {
	termFrequencies []map[string]int
	lengths         []int
	averageLength   float64
	idf             map[string]float64
}

func NewBM25(documents []string) *BM25 {
	index := &BM25{
		termFrequencies: make([]map[string]int, len(documents)),
		lengths:         make([]int, len(documents)),
		idf:             map[string]float64{},
	}
	documentFrequency := map[string]int{}
	totalLength := 0
	for position, document := range documents {
		tokens := tokenize(document)
		frequencies := make(map[string]int, len(tokens))
		for _, token := range tokens {
			frequencies[token]++
		}
		for token := range frequencies {
			documentFrequency[token]++
		}
		index.termFrequencies[position] = frequencies
		index.lengths[position] = len(tokens)
		totalLength += len(tokens)
	}
	if len(documents) == 0 {
		return index
	}
	index.averageLength = float64(totalLength) / float64(len(documents))

	corpusSize := float64(len(documents))
	idfSum := 0.0
	var negative []string
	for token, frequency := range documentFrequency {
		value := math.Log(corpusSize-float64(frequency)+0.5) - math.Log(float64(frequency)+0.5)
		index.idf[token] = value
		idfSum += value
		if value < 0 {
			negative = append(negative, token)
		}
	}
	floor := bm25Epsilon * idfSum / float64(len(index.idf))
	if floor <= 0 {
		floor = bm25Epsilon
	}
	for _, token := range negative {
		index.idf[token] = floor
	}
	return index
}

func (b *BM25) Len() int { return len(b.lengths) }

// Scores returns one score per document for the query tokens.
func (b *BM25) Scores(queryTokens []string) []float64 {
	scores := make([]float64, len(b.lengths))
	if b.averageLength == 0 {
		return scores
	}
	for _, token := range queryTokens {
		idf, known := b.idf[token]
		if !known {
			continue
		}
		for position, frequencies := range b.termFrequencies {
			frequency := float64(frequencies[token])
			if frequency == 0 {
				continue
			}
			normalizer := bm25K1 * (1 - bm25B + bm25B*float64(b.lengths[position])/b.averageLength)
			scores[position] += idf * frequency * (bm25K1 + 1) / (frequency + normalizer)
		}
	}
	return scores
}

// Top returns up to k document positions by descending score, skipping
// documents that scored zero or less.
func (b *BM25) Top(query string, k int) []int {
	scores := b.Scores(tokenize(query))
	return topPositions(scores, k, func(score float64) bool { return score > 0 })
}

func topPositions(scores []float64, k int, keep func(float64) bool) []int {
	positions := make([]int, len(scores))
	for position := range positions {
		positions[position] = position
	}
	sort.SliceStable(positions, func(left, right int) bool {
		return scores[positions[left]] > scores[positions[right]]
	})
	if k < len(positions) {
		positions = positions[:k]
	}
	kept := positions[:0]
	for _, position := range positions {
		if keep(scores[position]) {
			kept = append(kept, position)
		}
	}
	return kept
}
