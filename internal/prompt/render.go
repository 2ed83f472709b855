package prompt

import (
	"fmt"
	"strings"

	"github.com/scrypster/recall/pkg/types"
)

// RenderPayload flattens an assembled context payload and the current
// question into the single prompt string sent to the language model.
// Section order matches the assembler's budget priority: preamble,
// history, retrieved passages, question.
func RenderPayload(payload types.ContextPayload, question string) string {
	var b strings.Builder

	if payload.SystemPreamble != "" {
		b.WriteString(payload.SystemPreamble)
		b.WriteString("\n\n")
	}

	if payload.HistoryBlock != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(payload.HistoryBlock)
		b.WriteString("\n\n")
	}

	if len(payload.RetrievedBlock) > 0 {
		b.WriteString("Retrieved passages:\n")
		for i, p := range payload.RetrievedBlock {
			fmt.Fprintf(&b, "[%d] %s\n%s\n", i+1, Attribution(p), p.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("Current question: ")
	b.WriteString(question)
	return b.String()
}

// Attribution renders the source line for a passage. It is kept on its
// own so the assembler can price it separately: attribution is exempt
// from truncation.
func Attribution(p types.RetrievedPassage) string {
	return fmt.Sprintf("(source: %s, type: %s, chunk: %d)", p.Source, p.DocType, p.ChunkIndex)
}

// FormatHistory renders a summary and raw messages into a history block,
// summary first, messages oldest first.
func FormatHistory(summary string, messages []types.Message) string {
	var parts []string
	if summary != "" {
		parts = append(parts, "Previous conversation: "+summary)
	}
	for _, m := range messages {
		parts = append(parts, fmt.Sprintf("%s: %s", roleLabel(m.Role), m.Content))
	}
	return strings.Join(parts, "\n")
}

// FormatTranscript renders messages for the summarization prompt with
// timestamps and upper-cased roles.
func FormatTranscript(messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s",
			m.CreatedAt.Format("15:04:05"), strings.ToUpper(string(m.Role)), m.Content))
	}
	return strings.Join(lines, "\n")
}

func roleLabel(r types.Role) string {
	switch r {
	case types.RoleUser:
		return "User"
	case types.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}
