// Package sqlitevec implements the vector store boundary on SQLite.
// Embeddings are stored as little-endian float32 blobs and queries run a
// brute-force cosine scan, which is adequate for the single-user document
// collections this engine targets.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	source      TEXT NOT NULL,
	doc_type    TEXT NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	embedding   BLOB NOT NULL,
	dimension   INTEGER NOT NULL,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite vector index at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitevec: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Add indexes a chunk with its embedding, replacing any previous chunk
// with the same ID.
func (s *Store) Add(ctx context.Context, passage types.RetrievedPassage, embedding []float32) error {
	if passage.ID == "" {
		return fmt.Errorf("%w: passage ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding cannot be empty", storage.ErrInvalidInput)
	}
	if !passage.DocType.Valid() {
		return fmt.Errorf("%w: unknown doc type %q", storage.ErrInvalidInput, passage.DocType)
	}

	const query = `
		INSERT INTO chunks (id, content, source, doc_type, chunk_index, embedding, dimension)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			source = excluded.source,
			doc_type = excluded.doc_type,
			chunk_index = excluded.chunk_index,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query,
		passage.ID, passage.Content, passage.Source, string(passage.DocType),
		passage.ChunkIndex, encodeEmbedding(embedding), len(embedding))
	if err != nil {
		return fmt.Errorf("sqlitevec: add chunk %s: %w", passage.ID, err)
	}
	return nil
}

// Query scans all chunks, scores them by cosine similarity against the
// query embedding, and returns the top n in descending score order.
// Cosine similarity is mapped from [-1,1] to [0,1].
func (s *Store) Query(ctx context.Context, embedding []float32, n int) ([]types.RetrievedPassage, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding cannot be empty", storage.ErrInvalidInput)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: candidate count must be positive", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, source, doc_type, chunk_index, embedding, dimension FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []types.RetrievedPassage
	for rows.Next() {
		var (
			p         types.RetrievedPassage
			docType   string
			blob      []byte
			dimension int
		)
		if err := rows.Scan(&p.ID, &p.Content, &p.Source, &docType, &p.ChunkIndex, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("sqlitevec: scan chunk: %w", err)
		}
		p.DocType = types.DocType(docType)

		stored, err := decodeEmbedding(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("sqlitevec: chunk %s: %w", p.ID, err)
		}
		if len(stored) != len(embedding) {
			// Dimension mismatch means the chunk was indexed with a
			// different embedding model; skip it.
			continue
		}
		p.Score = normalizeCosine(cosineSimilarity(embedding, stored))
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitevec: iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlitevec: count chunks: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeEmbedding serializes a vector as little-endian float32 bytes.
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding deserializes little-endian float32 bytes, validating
// the expected dimension.
func decodeEmbedding(blob []byte, dimension int) ([]float32, error) {
	if len(blob) != 4*dimension {
		return nil, fmt.Errorf("embedding blob is %d bytes, want %d for dimension %d",
			len(blob), 4*dimension, dimension)
	}
	embedding := make([]float32, dimension)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// normalizeCosine maps cosine similarity from [-1,1] to [0,1] and clamps.
func normalizeCosine(cos float64) float64 {
	score := (cos + 1) / 2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
