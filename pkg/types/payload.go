package types

// ContextPayload is the fully assembled, budget-compliant input for one
// language-model request. It is built fresh each turn and owned by the
// caller that issues the request.
type ContextPayload struct {
	// SystemPreamble is always present in full; the assembler subtracts
	// its cost from the budget before anything else is admitted.
	SystemPreamble string `json:"system_preamble"`

	// HistoryBlock holds the running summary (if any) followed by the
	// recent raw messages that fit the budget, oldest first.
	HistoryBlock string `json:"history_block"`

	// RetrievedBlock holds the admitted passages in ranked order. A
	// passage may carry truncated content; its Source is always intact.
	RetrievedBlock []RetrievedPassage `json:"retrieved_block"`

	// TotalTokenEstimate is the estimated cost of the whole payload.
	// It never exceeds the budget given to Assemble.
	TotalTokenEstimate int `json:"total_token_estimate"`
}
