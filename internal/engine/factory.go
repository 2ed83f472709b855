package engine

import (
	"fmt"
	"time"

	"github.com/scrypster/recall/internal/assembler"
	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/internal/llm"
	"github.com/scrypster/recall/internal/memory"
	"github.com/scrypster/recall/internal/prompt"
	"github.com/scrypster/recall/internal/retrieval"
	"github.com/scrypster/recall/internal/storage"
	"github.com/scrypster/recall/internal/storage/pgvec"
	"github.com/scrypster/recall/internal/storage/sqlitevec"
)

// DefaultSystemPreamble anchors every assembled payload.
const DefaultSystemPreamble = "You are a helpful assistant. Answer using the retrieved passages " +
	"and the conversation so far; say so when they do not contain the answer."

// Runtime holds the collaborators shared by every engine: the vector
// store, the LLM clients, the retrieval adapter, the assembler and the
// prompt library. Conversations are per-engine; everything here is safe
// to share.
type Runtime struct {
	cfg *config.Config

	store      storage.VectorStore
	generator  llm.TextGenerator
	embedder   llm.EmbeddingGenerator
	library    *prompt.Library
	summarizer *llm.PromptSummarizer
	adapter    *retrieval.Adapter
	asm        *assembler.Assembler
}

// NewRuntime wires the shared collaborators from configuration.
func NewRuntime(cfg *config.Config) (*Runtime, error) {
	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	gen, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, err
	}
	throttled := llm.Throttle(gen, cfg.LLM.RequestsPerSecond, 1)

	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		store.Close()
		return nil, err
	}

	library := prompt.DefaultLibrary()
	if cfg.LLM.PromptsPath != "" {
		library, err = prompt.LoadLibrary(cfg.LLM.PromptsPath)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	summarizer, err := llm.NewPromptSummarizer(throttled, library, timeout)
	if err != nil {
		store.Close()
		return nil, err
	}

	adapter, err := retrieval.NewAdapter(store, embedder, retrieval.AdapterConfig{
		OverfetchMultiplier: cfg.Retrieval.OverfetchMultiplier,
		CacheSize:           cfg.Retrieval.EmbeddingCacheSize,
		Timeout:             timeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Runtime{
		cfg:        cfg,
		store:      store,
		generator:  throttled,
		embedder:   embedder,
		library:    library,
		summarizer: summarizer,
		adapter:    adapter,
		asm:        assembler.New(DefaultSystemPreamble),
	}, nil
}

// NewEngine creates an engine with a fresh conversation over the shared
// collaborators. Each session gets its own.
func (r *Runtime) NewEngine() (*Engine, error) {
	conv := memory.New(memory.Config{
		MaxTokens:              r.cfg.Memory.MaxConversationTokens,
		SummarizationThreshold: r.cfg.Memory.SummarizationThreshold,
		RetentionWindow:        r.cfg.Memory.RetentionWindow,
		Summarizer:             r.summarizer,
	})
	return New(Options{
		Conversation:   conv,
		Retriever:      r.adapter,
		Assembler:      r.asm,
		Generator:      r.generator,
		Library:        r.library,
		Embedder:       r.embedder,
		Store:          r.store,
		TopK:           r.cfg.Retrieval.TopK,
		ScoreThreshold: r.cfg.Retrieval.ScoreThreshold,
		ContextBudget:  r.cfg.Context.Budget - r.cfg.Context.ResponseReservation,
	})
}

// Close releases the shared resources, currently the vector store.
func (r *Runtime) Close() error {
	return r.store.Close()
}

// NewFromConfig wires a single-conversation engine, the shape the CLI
// uses. The returned cleanup function closes the vector store.
func NewFromConfig(cfg *config.Config) (*Engine, func() error, error) {
	runtime, err := NewRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	eng, err := runtime.NewEngine()
	if err != nil {
		runtime.Close()
		return nil, nil, err
	}
	return eng, runtime.Close, nil
}

func openStore(cfg config.StorageConfig) (storage.VectorStore, error) {
	switch cfg.VectorBackend {
	case "postgres":
		store, err := pgvec.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres vector store: %w", err)
		}
		return store, nil
	case "sqlite", "":
		store, err := sqlitevec.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite vector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.VectorBackend)
	}
}
