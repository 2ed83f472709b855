// Package llm provides the language-model clients the engine depends on:
// text completion for answering and summarization, and embedding
// generation for retrieval. All HTTP calls are wrapped with circuit
// breaker protection and carry bounded timeouts.
package llm

import "context"

// TextGenerator is the interface for LLM text completion. The engine uses
// single-string completion style for both answers and summaries.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}
