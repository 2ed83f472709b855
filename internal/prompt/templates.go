package prompt

// Template names used by the engine.
const (
	TemplateAssistant     = "rag_assistant_prompt"
	TemplateSummarization = "summarization_prompt"
)

// DefaultLibrary returns the built-in template library used when no
// prompts file is configured.
func DefaultLibrary() *Library {
	return &Library{templates: map[string]Template{
		TemplateAssistant: {
			Description: "Grounded question answering over retrieved passages",
			Role:        "A knowledgeable assistant that answers questions using a private document collection",
			Instruction: "Answer the current question using the retrieved passages and the conversation so far.",
			OutputConstraints: []string{
				"Base the answer only on the retrieved passages and conversation history",
				"If the passages do not contain the answer, say you don't know rather than guessing",
				"Cite the source of any passage you rely on",
			},
			StyleOrTone: []string{
				"Clear and direct",
				"No filler or restating of the question",
			},
		},
		TemplateSummarization: {
			Description: "Compacts older conversation turns into a running summary",
			Role:        "A conversation summarizer",
			Instruction: "Merge the prior summary (if any) with the conversation excerpt into one updated summary.",
			OutputConstraints: []string{
				"Preserve key topics, decisions, and critical information",
				"Preserve user preferences and requirements",
				"Keep context needed for future turns",
				"Be concise but comprehensive",
				"Return only the summary text, no preamble",
			},
		},
	}}
}
