// Package assembler packs the system preamble, conversation history and
// retrieved passages into a bounded context payload. Sections are priced
// with the shared token estimator and admitted in priority order:
// preamble always, then history, then passages.
package assembler

import (
	"strings"

	"github.com/scrypster/recall/internal/prompt"
	"github.com/scrypster/recall/internal/tokenizer"
	"github.com/scrypster/recall/pkg/types"
)

// truncationMarker is appended to passage content that had to be cut to
// fit the remaining budget.
const truncationMarker = " …[truncated]"

// Assembler builds context payloads around a fixed system preamble.
type Assembler struct {
	preamble     string
	preambleCost int
}

// New creates an assembler with the given system preamble. The preamble
// is priced once and is included in every payload regardless of budget.
func New(systemPreamble string) *Assembler {
	return &Assembler{
		preamble:     systemPreamble,
		preambleCost: tokenizer.Estimate(systemPreamble),
	}
}

// Assemble packs the summary, messages and passages into a payload whose
// estimated cost never exceeds budget, except for the preamble itself
// which is always present. History keeps whole messages only, newest
// first; passages are admitted in rank order and the last one may be
// truncated, never its attribution.
func (a *Assembler) Assemble(summary string, messages []types.Message, passages []types.RetrievedPassage, budget int) types.ContextPayload {
	payload := types.ContextPayload{
		SystemPreamble:     a.preamble,
		RetrievedBlock:     []types.RetrievedPassage{},
		TotalTokenEstimate: a.preambleCost,
	}

	remaining := budget - a.preambleCost
	if remaining <= 0 {
		return payload
	}

	historyCost, historyBlock := packHistory(summary, messages, remaining)
	payload.HistoryBlock = historyBlock
	payload.TotalTokenEstimate += historyCost
	remaining -= historyCost

	retrievedCost, retrieved := packPassages(passages, remaining)
	payload.RetrievedBlock = retrieved
	payload.TotalTokenEstimate += retrievedCost

	return payload
}

// packHistory admits the summary in full when it fits, then walks the
// messages newest first keeping a contiguous suffix of whole messages.
// A message either fits entirely or is dropped along with everything
// older than it.
func packHistory(summary string, messages []types.Message, budget int) (int, string) {
	used := 0

	includedSummary := ""
	if summary != "" {
		cost := tokenizer.Estimate(prompt.FormatHistory(summary, nil))
		if cost <= budget {
			includedSummary = summary
			used += cost
		}
	}

	var kept []types.Message
	for i := len(messages) - 1; i >= 0; i-- {
		cost := messageCost(messages[i])
		if used+cost > budget {
			break
		}
		kept = append(kept, messages[i])
		used += cost
	}
	for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
		kept[l], kept[r] = kept[r], kept[l]
	}

	if includedSummary == "" && len(kept) == 0 {
		return 0, ""
	}
	return used, prompt.FormatHistory(includedSummary, kept)
}

// messageCost prices a message as it will actually render in the
// history block, role label included.
func messageCost(m types.Message) int {
	return tokenizer.Estimate(prompt.FormatHistory("", []types.Message{m}))
}

// packPassages admits passages in rank order. Each passage pays for its
// attribution line up front; attribution is never truncated. Content
// that does not fit whole is cut at a word boundary and marked.
func packPassages(passages []types.RetrievedPassage, budget int) (int, []types.RetrievedPassage) {
	used := 0
	kept := []types.RetrievedPassage{}
	for _, p := range passages {
		attrCost := tokenizer.Estimate(prompt.Attribution(p))
		avail := budget - used - attrCost
		if avail <= 0 {
			break
		}

		contentCost := tokenizer.Estimate(p.Content)
		if contentCost <= avail {
			kept = append(kept, p)
			used += attrCost + contentCost
			continue
		}

		truncated, cost, ok := truncateToFit(p.Content, avail)
		if !ok {
			break
		}
		p.Content = truncated
		kept = append(kept, p)
		used += attrCost + cost
	}
	return used, kept
}

// truncateToFit finds the longest word prefix of content that, with the
// truncation marker appended, still prices within budget. It reports
// false when not even a single word fits.
func truncateToFit(content string, budget int) (string, int, bool) {
	fields := strings.Fields(content)

	best, bestCost := "", 0
	lo, hi := 1, len(fields)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		candidate := strings.Join(fields[:mid], " ") + truncationMarker
		cost := tokenizer.Estimate(candidate)
		if cost <= budget {
			best, bestCost = candidate, cost
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best == "" {
		return "", 0, false
	}
	return best, bestCost, true
}
