// Package memory implements bounded conversation history with automatic
// compaction. A Conversation tracks messages and their token cost; when
// consumption crosses the configured threshold it folds older messages
// into a running summary, falling back to hard truncation when the
// summarization call fails.
package memory

import (
	"context"
	"log"
	"time"

	"github.com/scrypster/recall/internal/tokenizer"
	"github.com/scrypster/recall/pkg/types"
)

// Summarizer produces an updated summary that incorporates the prior
// summary (possibly empty) and a prefix of conversation messages. It may
// fail or time out; the conversation recovers locally either way.
type Summarizer interface {
	Summarize(ctx context.Context, priorSummary string, prefix []types.Message) (string, error)
}

// Config holds the construction parameters for a Conversation.
type Config struct {
	// MaxTokens is the token ceiling for the whole conversation state.
	MaxTokens int

	// SummarizationThreshold is the fraction of MaxTokens that triggers
	// compaction, in (0,1].
	SummarizationThreshold float64

	// RetentionWindow is the number of most-recent messages that
	// compaction never touches. Minimum 1.
	RetentionWindow int

	// Summarizer produces summaries during compaction. When nil every
	// compaction takes the hard-truncation path.
	Summarizer Summarizer
}

// Stats is a point-in-time snapshot of conversation consumption.
type Stats struct {
	MessageCount    int     `json:"message_count"`
	TotalTokens     int     `json:"total_tokens"`
	MaxTokens       int     `json:"max_tokens"`
	HasSummary      bool    `json:"has_summary"`
	UsagePercentage float64 `json:"usage_percentage"`
	Degraded        bool    `json:"degraded"`
}

// Conversation owns the ordered message history, the running summary and
// the cumulative token count for one session.
//
// A Conversation is not safe for concurrent mutation: sessions are
// turn-serial by design and the session layer guarantees at most one
// in-flight mutating operation per conversation.
type Conversation struct {
	maxTokens int
	threshold float64
	retention int

	summarizer Summarizer

	messages      []types.Message
	summary       string
	summaryTokens int
	totalTokens   int
	degraded      bool
}

// New creates an empty conversation. Zero or out-of-range config values
// fall back to safe defaults (4000 tokens, 0.8 threshold, window of 4).
func New(cfg Config) *Conversation {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.SummarizationThreshold <= 0 || cfg.SummarizationThreshold > 1 {
		cfg.SummarizationThreshold = 0.8
	}
	if cfg.RetentionWindow < 1 {
		cfg.RetentionWindow = 4
	}
	return &Conversation{
		maxTokens:  cfg.MaxTokens,
		threshold:  cfg.SummarizationThreshold,
		retention:  cfg.RetentionWindow,
		summarizer: cfg.Summarizer,
	}
}

// Append adds a message to the end of the history and returns it. If the
// addition pushes consumption past the threshold, compaction runs before
// Append returns, so the caller always observes a within-budget state.
func (c *Conversation) Append(ctx context.Context, role types.Role, content string) types.Message {
	msg := types.Message{
		Role:       role,
		Content:    content,
		CreatedAt:  time.Now(),
		TokenCount: tokenizer.Estimate(content),
	}
	c.messages = append(c.messages, msg)
	c.totalTokens += msg.TokenCount

	if c.overThreshold() {
		c.Compact(ctx)
	}
	return msg
}

// Compact folds all but the most recent RetentionWindow messages into the
// running summary. When already under threshold, or when no messages fall
// outside the retention window, it is a no-op; calling it twice in a row
// therefore yields the same state as calling it once.
//
// On summarization failure the selected prefix is dropped outright, the
// prior summary is kept, and the conversation is flagged degraded. Either
// path recomputes the token count.
func (c *Conversation) Compact(ctx context.Context) {
	if !c.overThreshold() {
		return
	}
	if len(c.messages) <= c.retention {
		return
	}

	prefix := c.messages[:len(c.messages)-c.retention]

	if c.summarizer != nil {
		newSummary, err := c.summarizer.Summarize(ctx, c.summary, prefix)
		if err == nil {
			c.summary = newSummary
			c.summaryTokens = tokenizer.Estimate(newSummary)
			c.dropPrefix(len(prefix))
			return
		}
		log.Printf("warning: summarization failed, falling back to truncation: %v", err)
	}

	// Hard truncation: drop the prefix without summarizing it. The prior
	// summary, if any, is kept as-is.
	c.degraded = true
	c.dropPrefix(len(prefix))
}

// dropPrefix removes the first n messages and recomputes the token count
// from what remains.
func (c *Conversation) dropPrefix(n int) {
	remaining := make([]types.Message, len(c.messages)-n)
	copy(remaining, c.messages[n:])
	c.messages = remaining

	c.totalTokens = c.summaryTokens
	for _, m := range c.messages {
		c.totalTokens += m.TokenCount
	}
}

func (c *Conversation) overThreshold() bool {
	return float64(c.totalTokens) > c.threshold*float64(c.maxTokens)
}

// Stats returns a snapshot of current consumption.
func (c *Conversation) Stats() Stats {
	return Stats{
		MessageCount:    len(c.messages),
		TotalTokens:     c.totalTokens,
		MaxTokens:       c.maxTokens,
		HasSummary:      c.summary != "",
		UsagePercentage: float64(c.totalTokens) / float64(c.maxTokens) * 100,
		Degraded:        c.degraded,
	}
}

// History returns a copy of the last n messages, oldest first. n <= 0 or
// n greater than the message count returns the full history.
func (c *Conversation) History(n int) []types.Message {
	if n <= 0 || n > len(c.messages) {
		n = len(c.messages)
	}
	out := make([]types.Message, n)
	copy(out, c.messages[len(c.messages)-n:])
	return out
}

// Messages returns a copy of the full raw message history, oldest first.
func (c *Conversation) Messages() []types.Message {
	return c.History(0)
}

// Summary returns the running summary, or the empty string when no
// compaction has produced one yet.
func (c *Conversation) Summary() string {
	return c.summary
}

// TotalTokens returns the current cumulative token count, including the
// summary's cost.
func (c *Conversation) TotalTokens() int {
	return c.totalTokens
}

// Clear resets the conversation to its initial empty state.
func (c *Conversation) Clear() {
	c.messages = nil
	c.summary = ""
	c.summaryTokens = 0
	c.totalTokens = 0
	c.degraded = false
}
