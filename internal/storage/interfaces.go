// Package storage defines the vector store boundary the retrieval adapter
// depends on. The indexing and nearest-neighbor internals of a backend are
// opaque to the engine; only the ranked-candidates contract matters.
package storage

import (
	"context"
	"errors"

	"github.com/scrypster/recall/pkg/types"
)

// ErrInvalidInput indicates a malformed argument (empty ID, empty
// embedding, non-positive candidate count).
var ErrInvalidInput = errors.New("invalid input")

// VectorStore answers similarity queries over an indexed document
// collection. Scores are normalized to [0,1], higher is more similar, and
// results are ordered by score descending.
type VectorStore interface {
	// Query returns up to n candidates ranked by similarity to the
	// embedding. An empty index yields an empty slice, not an error.
	Query(ctx context.Context, embedding []float32, n int) ([]types.RetrievedPassage, error)

	// Add indexes a chunk with its embedding (upsert by passage ID).
	// Ingestion pipelines live outside the engine; Add is the seam they
	// write through.
	Add(ctx context.Context, passage types.RetrievedPassage, embedding []float32) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
