package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scrypster/recall/internal/prompt"
	"github.com/scrypster/recall/pkg/types"
)

// fakeGenerator records prompts and returns a canned response.
type fakeGenerator struct {
	prompts  []string
	response string
	err      error
}

func (f *fakeGenerator) Complete(_ context.Context, p string) (string, error) {
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) GetModel() string { return "fake" }

func TestPromptSummarizer_IncludesPriorSummaryAndTranscript(t *testing.T) {
	gen := &fakeGenerator{response: "merged summary"}
	s, err := NewPromptSummarizer(gen, prompt.DefaultLibrary(), time.Second)
	if err != nil {
		t.Fatalf("NewPromptSummarizer() failed: %v", err)
	}

	msgs := []types.Message{
		{Role: types.RoleUser, Content: "tell me about storage", CreatedAt: time.Now()},
		{Role: types.RoleAssistant, Content: "it uses sqlite", CreatedAt: time.Now()},
	}
	got, err := s.Summarize(context.Background(), "earlier we discussed config", msgs)
	if err != nil {
		t.Fatalf("Summarize() failed: %v", err)
	}
	if got != "merged summary" {
		t.Errorf("Summarize() = %q, want %q", got, "merged summary")
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("generator called %d times, want 1", len(gen.prompts))
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "earlier we discussed config") {
		t.Error("prompt missing prior summary")
	}
	if !strings.Contains(p, "USER: tell me about storage") {
		t.Error("prompt missing transcript line")
	}
}

func TestPromptSummarizer_PropagatesFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	s, err := NewPromptSummarizer(gen, prompt.DefaultLibrary(), time.Second)
	if err != nil {
		t.Fatalf("NewPromptSummarizer() failed: %v", err)
	}

	_, err = s.Summarize(context.Background(), "", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Summarize() with failing generator succeeded, want error")
	}
}

func TestPromptSummarizer_RejectsEmptySummary(t *testing.T) {
	gen := &fakeGenerator{response: "   \n"}
	s, err := NewPromptSummarizer(gen, prompt.DefaultLibrary(), time.Second)
	if err != nil {
		t.Fatalf("NewPromptSummarizer() failed: %v", err)
	}

	_, err = s.Summarize(context.Background(), "", []types.Message{{Role: types.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Summarize() with blank model output succeeded, want error")
	}
}
