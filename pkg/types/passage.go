package types

// DocType identifies the kind of document a passage was extracted from.
// The set is closed; new document kinds require a new constant here.
type DocType string

const (
	DocTypePDF      DocType = "pdf"
	DocTypeText     DocType = "text"
	DocTypeMarkdown DocType = "markdown"
	DocTypeWeb      DocType = "web"
)

// Valid reports whether d is one of the known document types.
func (d DocType) Valid() bool {
	switch d {
	case DocTypePDF, DocTypeText, DocTypeMarkdown, DocTypeWeb:
		return true
	}
	return false
}

// RetrievedPassage is a scored document chunk returned by a retrieval
// query. Passages live for a single turn: the assembler borrows them to
// build a payload and nothing in the engine retains them afterwards.
type RetrievedPassage struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`  // similarity in [0,1], higher is better
	Source     string  `json:"source"` // file path or URL the chunk came from
	DocType    DocType `json:"doc_type"`
	ChunkIndex int     `json:"chunk_index"`
}
