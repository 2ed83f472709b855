// Package retrieval turns a user query into a ranked, threshold-filtered
// set of passages from the vector store. It owns the relevance filter,
// the over-fetch policy, and a keyword tie-break re-rank.
package retrieval

import (
	"sort"

	"github.com/scrypster/recall/pkg/types"
)

// Filter returns at most k candidates whose score meets the threshold,
// sorted by score descending. The sort is stable, so candidates with
// equal scores keep their original relative order. Filter is pure and
// total: an empty candidate list yields an empty result.
func Filter(candidates []types.RetrievedPassage, k int, threshold float64) []types.RetrievedPassage {
	if k <= 0 || len(candidates) == 0 {
		return []types.RetrievedPassage{}
	}

	sorted := make([]types.RetrievedPassage, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	result := make([]types.RetrievedPassage, 0, k)
	for _, c := range sorted {
		if c.Score < threshold {
			break
		}
		result = append(result, c)
		if len(result) == k {
			break
		}
	}
	return result
}
