package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/scrypster/recall/pkg/types"
)

// stubSummarizer returns a fixed summary, or an error when failWith is set.
type stubSummarizer struct {
	summary  string
	failWith error
	calls    int

	// lastPrefix records the messages handed to the most recent call.
	lastPrefix []types.Message
	lastPrior  string
}

func (s *stubSummarizer) Summarize(_ context.Context, prior string, prefix []types.Message) (string, error) {
	s.calls++
	s.lastPrior = prior
	s.lastPrefix = prefix
	if s.failWith != nil {
		return "", s.failWith
	}
	return s.summary, nil
}

// words returns a string that estimates to roughly n tokens.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestAppend_StaysUnderCeiling(t *testing.T) {
	// Scenario: maxTokens=4000, threshold=0.8 → compaction at 3200.
	sum := &stubSummarizer{summary: "short summary"}
	conv := New(Config{
		MaxTokens:              4000,
		SummarizationThreshold: 0.8,
		RetentionWindow:        4,
		Summarizer:             sum,
	})
	ctx := context.Background()

	// Each message is ~330 estimated tokens; ten of them cross 3200.
	for i := 0; i < 10; i++ {
		conv.Append(ctx, types.RoleUser, words(300))
		if got := conv.TotalTokens(); got > 4000 {
			t.Fatalf("totalTokens = %d after append %d, want <= maxTokens 4000", got, i+1)
		}
	}

	if sum.calls == 0 {
		t.Fatal("summarizer never invoked despite crossing threshold")
	}
	stats := conv.Stats()
	if !stats.HasSummary {
		t.Error("Stats().HasSummary = false after compaction")
	}
	if stats.TotalTokens > 3200 {
		t.Errorf("totalTokens = %d after compaction, want <= threshold 3200", stats.TotalTokens)
	}
	if stats.Degraded {
		t.Error("Stats().Degraded = true on the summarization path")
	}
}

func TestCompact_PreservesRetentionWindowVerbatim(t *testing.T) {
	sum := &stubSummarizer{summary: "the summary"}
	conv := New(Config{
		MaxTokens:              1000,
		SummarizationThreshold: 0.5,
		RetentionWindow:        4,
		Summarizer:             sum,
	})
	ctx := context.Background()

	var contents []string
	for i := 0; i < 8; i++ {
		content := fmt.Sprintf("message number %d %s", i, words(80))
		contents = append(contents, content)
		conv.Append(ctx, types.RoleUser, content)
	}

	history := conv.Messages()
	if len(history) < 4 {
		t.Fatalf("only %d messages remain, retention window is 4", len(history))
	}
	recent := history[len(history)-4:]
	for i, m := range recent {
		want := contents[len(contents)-4+i]
		if m.Content != want {
			t.Errorf("retained message %d = %q, want verbatim %q", i, m.Content[:20], want[:20])
		}
	}

	// The summarized prefix must never include retained messages.
	for _, m := range sum.lastPrefix {
		for _, r := range recent {
			if m.Content == r.Content {
				t.Errorf("retained message %q was handed to the summarizer", m.Content[:20])
			}
		}
	}
}

func TestCompact_FallsBackToTruncationOnFailure(t *testing.T) {
	sum := &stubSummarizer{failWith: errors.New("summarizer down")}
	conv := New(Config{
		MaxTokens:              500,
		SummarizationThreshold: 0.5,
		RetentionWindow:        2,
		Summarizer:             sum,
	})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(60))
	}

	stats := conv.Stats()
	if !stats.Degraded {
		t.Error("Stats().Degraded = false after summarizer failure")
	}
	if stats.HasSummary {
		t.Error("Stats().HasSummary = true, truncation path should not create a summary")
	}
	if stats.TotalTokens > 500 {
		t.Errorf("totalTokens = %d after fallback, want <= 500", stats.TotalTokens)
	}
	if got := len(conv.Messages()); got < 2 {
		t.Errorf("%d messages remain, retention window is 2", got)
	}
}

func TestCompact_FailureKeepsPriorSummary(t *testing.T) {
	sum := &stubSummarizer{summary: "first summary"}
	conv := New(Config{
		MaxTokens:              600,
		SummarizationThreshold: 0.5,
		RetentionWindow:        2,
		Summarizer:             sum,
	})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(50))
	}
	if conv.Summary() != "first summary" {
		t.Fatalf("Summary() = %q, want first summary", conv.Summary())
	}

	// Subsequent compactions fail; the old summary must survive.
	sum.failWith = errors.New("summarizer down")
	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(50))
	}
	if conv.Summary() != "first summary" {
		t.Errorf("Summary() = %q after failed compaction, want prior summary kept", conv.Summary())
	}
	if !conv.Stats().Degraded {
		t.Error("Degraded flag not set after failed compaction")
	}
}

func TestCompact_IdempotentWhenUnderThreshold(t *testing.T) {
	sum := &stubSummarizer{summary: "s"}
	conv := New(Config{
		MaxTokens:              1000,
		SummarizationThreshold: 0.5,
		RetentionWindow:        2,
		Summarizer:             sum,
	})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(60))
	}
	callsAfterAppend := sum.calls
	statsOnce := conv.Stats()

	conv.Compact(ctx)
	conv.Compact(ctx)

	if sum.calls != callsAfterAppend {
		t.Errorf("summarizer called %d extra times by redundant Compact", sum.calls-callsAfterAppend)
	}
	if got := conv.Stats(); got != statsOnce {
		t.Errorf("state changed by redundant Compact: %+v != %+v", got, statsOnce)
	}
}

func TestCompact_PassesPriorSummaryToSummarizer(t *testing.T) {
	sum := &stubSummarizer{summary: "updated"}
	conv := New(Config{
		MaxTokens:              600,
		SummarizationThreshold: 0.5,
		RetentionWindow:        2,
		Summarizer:             sum,
	})
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(50))
	}
	sum.summary = "updated again"
	for i := 0; i < 6; i++ {
		conv.Append(ctx, types.RoleUser, words(50))
	}

	if sum.lastPrior != "updated" {
		t.Errorf("prior summary handed to summarizer = %q, want %q", sum.lastPrior, "updated")
	}
}

func TestHistory_ReturnsLastN(t *testing.T) {
	conv := New(Config{MaxTokens: 100000, SummarizationThreshold: 1, RetentionWindow: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		conv.Append(ctx, types.RoleUser, fmt.Sprintf("msg %d", i))
	}

	got := conv.History(2)
	if len(got) != 2 {
		t.Fatalf("History(2) returned %d messages", len(got))
	}
	if got[0].Content != "msg 3" || got[1].Content != "msg 4" {
		t.Errorf("History(2) = [%q, %q], want last two in order", got[0].Content, got[1].Content)
	}

	if got := conv.History(50); len(got) != 5 {
		t.Errorf("History(50) returned %d messages, want all 5", len(got))
	}
}

func TestClear_ResetsToInitialState(t *testing.T) {
	sum := &stubSummarizer{failWith: errors.New("down")}
	conv := New(Config{MaxTokens: 300, SummarizationThreshold: 0.5, RetentionWindow: 1, Summarizer: sum})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		conv.Append(ctx, types.RoleUser, words(40))
	}
	conv.Clear()

	stats := conv.Stats()
	if stats.MessageCount != 0 || stats.TotalTokens != 0 || stats.HasSummary || stats.Degraded {
		t.Errorf("Stats() after Clear = %+v, want empty state", stats)
	}
}

func TestAppend_NoSummarizerTruncates(t *testing.T) {
	conv := New(Config{MaxTokens: 400, SummarizationThreshold: 0.5, RetentionWindow: 2})
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		conv.Append(ctx, types.RoleUser, words(40))
		if got := conv.TotalTokens(); got > 400 {
			t.Fatalf("totalTokens = %d, want <= 400 even without a summarizer", got)
		}
	}
	if !conv.Stats().Degraded {
		t.Error("Degraded = false, truncation without summarizer should flag degraded mode")
	}
}
