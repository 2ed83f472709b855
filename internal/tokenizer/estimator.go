// Package tokenizer provides an approximate token estimator for budget
// accounting. The real tokenizer lives downstream in the hosted model, so
// the estimate deliberately errs high: under-counting is the failure mode
// that breaks budgets, over-counting only wastes a little headroom.
package tokenizer

import "strings"

// longWordLen is the word length beyond which downstream tokenizers tend
// to split a single word into multiple tokens.
const longWordLen = 8

// Estimate returns the approximate token count of text. It counts
// whitespace-delimited words, charges extra for long words, and adds a 10%
// safety margin. The result is deterministic, never negative, zero for the
// empty string, and never decreases when text is extended.
func Estimate(text string) int {
	if text == "" {
		return 0
	}

	raw := 0
	for _, w := range strings.Fields(text) {
		raw++
		if len(w) > longWordLen {
			raw += (len(w) - 1) / longWordLen
		}
	}
	if raw == 0 {
		return 0
	}

	// +10% margin, rounded up.
	return raw + (raw+9)/10
}
