package retrieval

import "strings"

// DefaultChunkSize is the soft upper bound of a chunk in bytes.
const DefaultChunkSize = 1000

type Chunk struct {
	ID        int64
	Source    string
	Content   string
	Embedding []float32
}

// SplitText groups blank-line separated paragraphs into chunks of at most
// maxChars bytes. A single paragraph longer than maxChars is split on line
// boundaries, and a single line longer than that is kept whole.
func SplitText(source, text string, maxChars int) []Chunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	var (
		chunks  []Chunk
		current strings.Builder
	)
	flush := func() {
		if content := strings.TrimSpace(current.String()); content != "" {
			chunks = append(chunks, Chunk{Source: source, Content: content})
		}
		current.Reset()
	}
	add := func(piece, separator string) {
		if current.Len() > 0 && current.Len()+len(separator)+len(piece) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(separator)
		}
		current.WriteString(piece)
	}
	for _, paragraph := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(paragraph) <= maxChars {
			add(paragraph, "\n\n")
			continue
		}
		flush()
		for _, line := range strings.Split(paragraph, "\n") {
			add(line, "\n")
		}
		flush()
	}
	flush()
	return chunks
}
