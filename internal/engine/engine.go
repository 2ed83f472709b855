// Package engine orchestrates a conversational turn: retrieve passages
// for the question, fold it into conversation memory, assemble a bounded
// context payload and ask the language model for an answer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/scrypster/recall/internal/assembler"
	"github.com/scrypster/recall/internal/llm"
	"github.com/scrypster/recall/internal/memory"
	"github.com/scrypster/recall/internal/prompt"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/pkg/types"
)

// Retriever returns ranked passages for a query. Implementations signal
// backend trouble through the error; the engine treats retrieval as best
// effort and answers without grounding when it fails.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, threshold float64) ([]types.RetrievedPassage, error)
}

// Options holds the collaborators and tuning for an Engine.
type Options struct {
	Conversation *memory.Conversation
	Retriever    Retriever
	Assembler    *assembler.Assembler
	Generator    llm.TextGenerator
	Library      *prompt.Library

	// Embedder and Store are needed only for Ingest.
	Embedder llm.EmbeddingGenerator
	Store    storage.VectorStore

	TopK           int
	ScoreThreshold float64

	// ContextBudget is the token budget for the assembled payload, with
	// the response reservation already subtracted.
	ContextBudget int
}

// Engine runs conversational turns over one conversation.
//
// Like the conversation it owns, an Engine is not safe for concurrent
// use; the session layer serializes turns.
type Engine struct {
	conv      *memory.Conversation
	retriever Retriever
	asm       *assembler.Assembler
	gen       llm.TextGenerator

	embedder llm.EmbeddingGenerator
	store    storage.VectorStore

	assistant prompt.Template
	topK      int
	threshold float64
	budget    int
}

type retrievalResult struct {
	passages []types.RetrievedPassage
	err      error
}

// New assembles an engine from its collaborators.
func New(opts Options) (*Engine, error) {
	if opts.Conversation == nil || opts.Retriever == nil || opts.Assembler == nil || opts.Generator == nil {
		return nil, errors.New("engine: conversation, retriever, assembler and generator are required")
	}
	if opts.Library == nil {
		opts.Library = prompt.DefaultLibrary()
	}
	assistant, ok := opts.Library.Get(prompt.TemplateAssistant)
	if !ok {
		return nil, fmt.Errorf("engine: prompt library has no %q template", prompt.TemplateAssistant)
	}
	if opts.TopK < 1 {
		opts.TopK = 5
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = 5000
	}
	return &Engine{
		conv:      opts.Conversation,
		retriever: opts.Retriever,
		asm:       opts.Assembler,
		gen:       opts.Generator,
		embedder:  opts.Embedder,
		store:     opts.Store,
		assistant: assistant,
		topK:      opts.TopK,
		threshold: opts.ScoreThreshold,
		budget:    opts.ContextBudget,
	}, nil
}

// Chat runs one turn: the question is retrieved against and appended to
// memory concurrently, then the assembled context is sent to the model.
// The answer is appended to memory before it is returned. A retrieval
// failure degrades to an ungrounded answer; a generation failure leaves
// the user message in memory and returns the error.
func (e *Engine) Chat(ctx context.Context, question string) (string, error) {
	results := make(chan retrievalResult, 1)
	go func() {
		passages, err := e.retriever.Retrieve(ctx, question, e.topK, e.threshold)
		results <- retrievalResult{passages: passages, err: err}
	}()

	e.conv.Append(ctx, types.RoleUser, question)

	res := <-results
	if res.err != nil {
		log.Printf("warning: retrieval failed, answering without passages: %v", res.err)
		res.passages = nil
	}

	payload := e.asm.Assemble(e.conv.Summary(), e.conv.Messages(), res.passages, e.budget)

	rendered := prompt.RenderPayload(payload, question)
	p, err := prompt.Build(e.assistant, rendered)
	if err != nil {
		return "", fmt.Errorf("engine: build prompt: %w", err)
	}

	answer, err := e.gen.Complete(ctx, p)
	if err != nil {
		return "", fmt.Errorf("engine: generation failed: %w", err)
	}

	e.conv.Append(ctx, types.RoleAssistant, answer)
	return answer, nil
}

// Ingest embeds a passage and adds it to the vector index. It requires
// the engine to be constructed with an embedder and a store.
func (e *Engine) Ingest(ctx context.Context, passage types.RetrievedPassage) error {
	if e.embedder == nil || e.store == nil {
		return errors.New("engine: ingestion not configured")
	}
	embedding, err := e.embedder.Embed(ctx, passage.Content)
	if err != nil {
		return fmt.Errorf("engine: embed passage %s: %w", passage.ID, err)
	}
	if err := e.store.Add(ctx, passage, embedding); err != nil {
		return fmt.Errorf("engine: index passage %s: %w", passage.ID, err)
	}
	return nil
}

// IndexedPassages reports how many passages the vector index holds.
func (e *Engine) IndexedPassages(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, errors.New("engine: no vector store configured")
	}
	return e.store.Count(ctx)
}

// Stats returns the memory consumption snapshot for the conversation.
func (e *Engine) Stats() memory.Stats {
	return e.conv.Stats()
}

// History returns the last n conversation messages, oldest first.
func (e *Engine) History(n int) []types.Message {
	return e.conv.History(n)
}

// Clear resets the conversation memory.
func (e *Engine) Clear() {
	e.conv.Clear()
}
