package sqlitevec

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// newTestStore opens a store backed by a temp file and closes it when the
// test finishes.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mustAdd(t *testing.T, store *Store, p types.RetrievedPassage, emb []float32) {
	t.Helper()
	if err := store.Add(context.Background(), p, emb); err != nil {
		t.Fatalf("Add(%s) failed: %v", p.ID, err)
	}
}

func TestQuery_RanksByCosineSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mustAdd(t, store, types.RetrievedPassage{
		ID: "chunk-aligned", Content: "aligned", Source: "a.md", DocType: types.DocTypeMarkdown,
	}, []float32{1, 0, 0})
	mustAdd(t, store, types.RetrievedPassage{
		ID: "chunk-orthogonal", Content: "orthogonal", Source: "b.md", DocType: types.DocTypeMarkdown,
	}, []float32{0, 1, 0})
	mustAdd(t, store, types.RetrievedPassage{
		ID: "chunk-opposite", Content: "opposite", Source: "c.md", DocType: types.DocTypeMarkdown,
	}, []float32{-1, 0, 0})

	results, err := store.Query(ctx, []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Query() returned %d results, want 3", len(results))
	}

	wantOrder := []string{"chunk-aligned", "chunk-orthogonal", "chunk-opposite"}
	for i, want := range wantOrder {
		if results[i].ID != want {
			t.Errorf("results[%d].ID = %s, want %s", i, results[i].ID, want)
		}
	}

	// Identical vector maps to score 1, orthogonal to 0.5, opposite to 0.
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("aligned score = %g, want 1.0", results[0].Score)
	}
	if math.Abs(results[1].Score-0.5) > 1e-6 {
		t.Errorf("orthogonal score = %g, want 0.5", results[1].Score)
	}
	if math.Abs(results[2].Score-0.0) > 1e-6 {
		t.Errorf("opposite score = %g, want 0.0", results[2].Score)
	}
}

func TestQuery_LimitsToN(t *testing.T) {
	store := newTestStore(t)

	for i, id := range []string{"c1", "c2", "c3", "c4"} {
		mustAdd(t, store, types.RetrievedPassage{
			ID: id, Content: id, Source: "s.txt", DocType: types.DocTypeText, ChunkIndex: i,
		}, []float32{1, float32(i) * 0.1})
	}

	results, err := store.Query(context.Background(), []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Query(n=2) returned %d results", len(results))
	}
}

func TestQuery_SkipsMismatchedDimensions(t *testing.T) {
	store := newTestStore(t)

	mustAdd(t, store, types.RetrievedPassage{
		ID: "dim3", Content: "three", Source: "s.txt", DocType: types.DocTypeText,
	}, []float32{1, 0, 0})
	mustAdd(t, store, types.RetrievedPassage{
		ID: "dim2", Content: "two", Source: "s.txt", DocType: types.DocTypeText,
	}, []float32{1, 0})

	results, err := store.Query(context.Background(), []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != "dim3" {
		t.Errorf("Query() = %v, want only dim3", results)
	}
}

func TestAdd_UpsertsByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := types.RetrievedPassage{ID: "c1", Content: "v1", Source: "s.txt", DocType: types.DocTypeText}
	mustAdd(t, store, p, []float32{1, 0})
	p.Content = "v2"
	mustAdd(t, store, p, []float32{0, 1})

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d after upsert, want 1", count)
	}

	results, err := store.Query(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if results[0].Content != "v2" {
		t.Errorf("content = %q after upsert, want v2", results[0].Content)
	}
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, types.RetrievedPassage{Content: "no id", DocType: types.DocTypeText}, []float32{1})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Add without ID: err = %v, want ErrInvalidInput", err)
	}

	err = store.Add(ctx, types.RetrievedPassage{ID: "x", DocType: types.DocTypeText}, nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Add without embedding: err = %v, want ErrInvalidInput", err)
	}

	err = store.Add(ctx, types.RetrievedPassage{ID: "x", DocType: "spreadsheet"}, []float32{1})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Add with unknown doc type: err = %v, want ErrInvalidInput", err)
	}
}

func TestQuery_EmptyIndex(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Query(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Query() on empty index failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query() on empty index returned %d results", len(results))
	}
}
