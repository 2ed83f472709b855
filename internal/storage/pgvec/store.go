// Package pgvec implements the vector store boundary on PostgreSQL with
// the pgvector extension. Cosine distance queries use the <=> operator
// and are index-accelerated once an ivfflat index exists.
package pgvec

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// schema creates the chunks table. The embedding column dimension is
// fixed at first insert by pgvector; 768 matches the default local
// embedding model.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	source      TEXT NOT NULL,
	doc_type    TEXT NOT NULL,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	embedding   vector(768) NOT NULL,
	created_at  TIMESTAMPTZ DEFAULT now(),
	updated_at  TIMESTAMPTZ DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chunks_embedding_cosine
	ON chunks USING ivfflat (embedding vector_cosine_ops);
`

// Store is a PostgreSQL/pgvector-backed vector store.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the given DSN and ensures the schema
// exists.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvec: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgvec: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgvec: create schema: %w", err)
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
		INSERT INTO chunks (id, content, source, doc_type, chunk_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			doc_type = EXCLUDED.doc_type,
			chunk_index = EXCLUDED.chunk_index,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, query,
		passage.ID, passage.Content, passage.Source, string(passage.DocType),
		passage.ChunkIndex, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("pgvec: add chunk %s: %w", passage.ID, err)
	}
	return nil
}

// Query returns the n nearest chunks by cosine distance. pgvector's <=>
// yields distance in [0,2]; similarity 1-d/2 maps it to [0,1].
func (s *Store) Query(ctx context.Context, embedding []float32, n int) ([]types.RetrievedPassage, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding cannot be empty", storage.ErrInvalidInput)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: candidate count must be positive", storage.ErrInvalidInput)
	}

	const query = `
		SELECT id, content, source, doc_type, chunk_index,
		       1 - (embedding <=> $1) / 2 AS score
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(embedding), n)
	if err != nil {
		return nil, fmt.Errorf("pgvec: query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []types.RetrievedPassage
	for rows.Next() {
		var (
			p       types.RetrievedPassage
			docType string
		)
		if err := rows.Scan(&p.ID, &p.Content, &p.Source, &docType, &p.ChunkIndex, &p.Score); err != nil {
			return nil, fmt.Errorf("pgvec: scan chunk: %w", err)
		}
		p.DocType = types.DocType(docType)
		if p.Score < 0 {
			p.Score = 0
		}
		if p.Score > 1 {
			p.Score = 1
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvec: iterate chunks: %w", err)
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("pgvec: count chunks: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
