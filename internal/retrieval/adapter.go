package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scrypster/recall/internal/llm"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// ErrUnavailable signals that the vector store or the embedding provider
// could not serve the query. Retrieval failures are never fatal: the
// caller proceeds without grounding for the turn.
var ErrUnavailable = errors.New("retrieval unavailable")

// tieBreakWindow is the score distance within which two passages count as
// near-equal; only then may keyword overlap reorder them.
const tieBreakWindow = 0.05

// minCandidates is the floor on the over-fetched candidate set, so the
// filter has room to reject low scores even for small k.
const minCandidates = 20

// AdapterConfig holds the construction parameters for an Adapter.
type AdapterConfig struct {
	// OverfetchMultiplier scales k when fetching candidates. Minimum 1.
	OverfetchMultiplier int

	// CacheSize bounds the query-embedding LRU cache. Minimum 16.
	CacheSize int

	// Timeout bounds the embedding call plus the store query.
	// Default 15s.
	Timeout time.Duration
}

// Adapter retrieves ranked passages for a query: embed, over-fetch from
// the store, threshold-filter, then re-rank near ties by keyword overlap.
type Adapter struct {
	store    storage.VectorStore
	embedder llm.EmbeddingGenerator
	cache    *lru.Cache[string, []float32]

	overfetch int
	timeout   time.Duration
}

// NewAdapter creates a retrieval adapter over the given store and
// embedding provider.
func NewAdapter(store storage.VectorStore, embedder llm.EmbeddingGenerator, cfg AdapterConfig) (*Adapter, error) {
	if cfg.OverfetchMultiplier < 1 {
		cfg.OverfetchMultiplier = 3
	}
	if cfg.CacheSize < 16 {
		cfg.CacheSize = 16
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	cache, err := lru.New[string, []float32](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("retrieval: create embedding cache: %w", err)
	}
	return &Adapter{
		store:     store,
		embedder:  embedder,
		cache:     cache,
		overfetch: cfg.OverfetchMultiplier,
		timeout:   cfg.Timeout,
	}, nil
}

// Retrieve returns at most k passages scoring at least threshold, ranked
// by similarity with keyword tie-breaking. On any backend failure it
// returns an empty slice and an error wrapping ErrUnavailable.
func (a *Adapter) Retrieve(ctx context.Context, query string, k int, threshold float64) ([]types.RetrievedPassage, error) {
	if k <= 0 {
		return []types.RetrievedPassage{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	embedding, err := a.embedQuery(ctx, query)
	if err != nil {
		return []types.RetrievedPassage{}, fmt.Errorf("%w: embed query: %v", ErrUnavailable, err)
	}

	fetchCount := k * a.overfetch
	if fetchCount < minCandidates {
		fetchCount = minCandidates
	}

	candidates, err := a.store.Query(ctx, embedding, fetchCount)
	if err != nil {
		return []types.RetrievedPassage{}, fmt.Errorf("%w: vector store query: %v", ErrUnavailable, err)
	}
	if len(candidates) == 0 {
		return []types.RetrievedPassage{}, nil
	}

	// Backends are trusted to normalize, but clamp defensively at the
	// engine boundary.
	for i := range candidates {
		candidates[i].Score = clamp01(candidates[i].Score)
	}

	result := Filter(candidates, k, threshold)
	rerank(result, query)
	return result, nil
}

// embedQuery returns the cached embedding for query, or computes and
// caches it.
func (a *Adapter) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if cached, ok := a.cache.Get(query); ok {
		return cached, nil
	}
	embedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	a.cache.Add(query, embedding)
	return embedding, nil
}

// rerank stably reorders passages whose scores fall within the tie-break
// window of each other by literal keyword overlap with the query. The
// primary similarity ordering is never disturbed beyond that window.
func rerank(passages []types.RetrievedPassage, query string) {
	if len(passages) < 2 {
		return
	}

	overlap := make([]float64, len(passages))
	terms := queryTerms(query)
	for i, p := range passages {
		overlap[i] = keywordOverlap(terms, p.Content)
	}

	idx := make([]int, len(passages))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		i, j := idx[x], idx[y]
		if math.Abs(passages[i].Score-passages[j].Score) > tieBreakWindow {
			return passages[i].Score > passages[j].Score
		}
		return overlap[i] > overlap[j]
	})

	reordered := make([]types.RetrievedPassage, len(passages))
	for pos, i := range idx {
		reordered[pos] = passages[i]
	}
	copy(passages, reordered)
}

// queryTerms lower-cases and splits the query into a term set.
func queryTerms(query string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = struct{}{}
	}
	return terms
}

// keywordOverlap returns the fraction of query terms that literally
// appear in content.
func keywordOverlap(terms map[string]struct{}, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	contentTerms := queryTerms(content)
	matched := 0
	for t := range terms {
		if _, ok := contentTerms[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
