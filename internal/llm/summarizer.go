package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/recall/internal/prompt"
	"github.com/scrypster/recall/pkg/types"
)

// PromptSummarizer produces conversation summaries through a
// TextGenerator. It satisfies the memory package's Summarizer interface.
type PromptSummarizer struct {
	gen      TextGenerator
	template prompt.Template
	timeout  time.Duration
}

// NewPromptSummarizer creates a summarizer that renders the library's
// summarization template. A zero timeout defaults to 30 seconds.
func NewPromptSummarizer(gen TextGenerator, lib *prompt.Library, timeout time.Duration) (*PromptSummarizer, error) {
	tpl, ok := lib.Get(prompt.TemplateSummarization)
	if !ok {
		return nil, fmt.Errorf("prompt library has no %q template", prompt.TemplateSummarization)
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &PromptSummarizer{gen: gen, template: tpl, timeout: timeout}, nil
}

// Summarize asks the model to merge the prior summary with the given
// message prefix into an updated summary. The call carries a bounded
// timeout; a timeout surfaces as an ordinary error so the caller can take
// its truncation fallback.
func (s *PromptSummarizer) Summarize(ctx context.Context, priorSummary string, prefix []types.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var input strings.Builder
	if priorSummary != "" {
		input.WriteString("Prior summary:\n")
		input.WriteString(priorSummary)
		input.WriteString("\n\n")
	}
	input.WriteString("Conversation excerpt:\n")
	input.WriteString(prompt.FormatTranscript(prefix))

	p, err := prompt.Build(s.template, input.String())
	if err != nil {
		return "", fmt.Errorf("build summarization prompt: %w", err)
	}

	summary, err := s.gen.Complete(ctx, p)
	if err != nil {
		return "", fmt.Errorf("summarization call failed: %w", err)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("summarization returned empty text")
	}
	return summary, nil
}
