package retrieval

import (
	"testing"

	"github.com/scrypster/recall/pkg/types"
)

func passagesWithScores(scores ...float64) []types.RetrievedPassage {
	out := make([]types.RetrievedPassage, len(scores))
	for i, s := range scores {
		out[i] = types.RetrievedPassage{
			ID:      string(rune('a' + i)),
			Content: "content",
			Score:   s,
			Source:  "doc.txt",
			DocType: types.DocTypeText,
		}
	}
	return out
}

// TestFilter_ThresholdAndCap mirrors the canonical filtering scenario:
// top_k=5, threshold=0.3 over seven scored candidates.
func TestFilter_ThresholdAndCap(t *testing.T) {
	candidates := passagesWithScores(0.91, 0.85, 0.52, 0.40, 0.35, 0.29, 0.10)

	got := Filter(candidates, 5, 0.3)

	want := []float64{0.91, 0.85, 0.52, 0.40, 0.35}
	if len(got) != len(want) {
		t.Fatalf("Filter() returned %d passages, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Score != w {
			t.Errorf("got[%d].Score = %g, want %g", i, got[i].Score, w)
		}
	}
}

func TestFilter_CapBeforeThreshold(t *testing.T) {
	candidates := passagesWithScores(0.9, 0.8, 0.7, 0.6, 0.5)

	got := Filter(candidates, 2, 0.1)
	if len(got) != 2 {
		t.Fatalf("Filter(k=2) returned %d passages", len(got))
	}
	if got[0].Score != 0.9 || got[1].Score != 0.8 {
		t.Errorf("Filter(k=2) = [%g, %g], want [0.9, 0.8]", got[0].Score, got[1].Score)
	}
}

func TestFilter_SortsUnorderedInput(t *testing.T) {
	candidates := passagesWithScores(0.4, 0.9, 0.6)

	got := Filter(candidates, 3, 0)
	if got[0].Score != 0.9 || got[1].Score != 0.6 || got[2].Score != 0.4 {
		t.Errorf("Filter() order = [%g %g %g], want descending", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestFilter_StableOnTies(t *testing.T) {
	candidates := []types.RetrievedPassage{
		{ID: "first", Score: 0.5},
		{ID: "second", Score: 0.5},
		{ID: "third", Score: 0.5},
	}

	got := Filter(candidates, 3, 0)
	if got[0].ID != "first" || got[1].ID != "second" || got[2].ID != "third" {
		t.Errorf("tie order = [%s %s %s], want original order preserved", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestFilter_EmptyAndDegenerate(t *testing.T) {
	if got := Filter(nil, 5, 0.3); len(got) != 0 {
		t.Errorf("Filter(nil) returned %d passages", len(got))
	}
	if got := Filter(passagesWithScores(0.9), 0, 0.3); len(got) != 0 {
		t.Errorf("Filter(k=0) returned %d passages", len(got))
	}
	if got := Filter(passagesWithScores(0.1, 0.2), 5, 0.9); len(got) != 0 {
		t.Errorf("Filter(all below threshold) returned %d passages", len(got))
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	candidates := passagesWithScores(0.2, 0.9)
	_ = Filter(candidates, 2, 0)
	if candidates[0].Score != 0.2 {
		t.Error("Filter() mutated its input slice")
	}
}
