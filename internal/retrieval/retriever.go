// Package retrieval supplies reference documentation for a prompt. Keyword
// (BM25) and embedding rankings are fused by reciprocal rank; chunks live in
// a sqlite index built by the index command.
package retrieval

import "context"

// Result is the context handed to the prompt builder. Sources are unique and
// keep the order in which they were first ranked.
type Result struct {
	Text    string
	Sources []string
}

// Retriever never fails: internal errors degrade to an empty Result.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) Result
}

// Nop returns nothing; used when no index is configured.
type Nop struct{}

func (Nop) Retrieve(context.Context, string, int) Result { return Result{} }
