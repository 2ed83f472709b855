package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/scrypster/recall/internal/memory"
	"github.com/scrypster/recall/pkg/types"
)

// slowEngine blocks inside Chat until released, to exercise the
// one-turn-at-a-time guarantee.
type slowEngine struct {
	started chan struct{}
	release chan struct{}
	turns   int
}

func newSlowEngine() *slowEngine {
	return &slowEngine{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *slowEngine) Chat(context.Context, string) (string, error) {
	e.turns++
	close(e.started)
	<-e.release
	return "done", nil
}

func (e *slowEngine) Stats() memory.Stats         { return memory.Stats{} }
func (e *slowEngine) History(int) []types.Message { return nil }
func (e *slowEngine) Clear()                      {}

type stubEngine struct {
	cleared bool
}

func (e *stubEngine) Chat(_ context.Context, q string) (string, error) { return "echo: " + q, nil }

func (e *stubEngine) Stats() memory.Stats {
	return memory.Stats{MessageCount: 2}
}

func (e *stubEngine) History(int) []types.Message { return nil }
func (e *stubEngine) Clear()                      { e.cleared = true }

func newStubManager() *Manager {
	return NewManager(func() (Engine, error) { return &stubEngine{}, nil })
}

func TestManager_CreateGetDelete(t *testing.T) {
	m := newStubManager()

	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if s.ID == "" {
		t.Fatal("Create() returned a session with empty ID")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", s.ID, err)
	}
	if got != s {
		t.Error("Get() returned a different session")
	}

	if err := m.Delete(s.ID); err != nil {
		t.Fatalf("Delete(%s) failed: %v", s.ID, err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	m := newStubManager()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := m.Create()
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %s", s.ID)
		}
		seen[s.ID] = true
	}
	if m.Count() != 50 {
		t.Errorf("Count() = %d, want 50", m.Count())
	}
}

func TestManager_EngineFactoryFailure(t *testing.T) {
	m := NewManager(func() (Engine, error) { return nil, errors.New("no backend") })

	if _, err := m.Create(); err == nil {
		t.Error("Create() succeeded despite factory failure")
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d after failed create, want 0", m.Count())
	}
}

func TestSession_RejectsConcurrentTurns(t *testing.T) {
	eng := newSlowEngine()
	m := NewManager(func() (Engine, error) { return eng, nil })
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := s.Chat(context.Background(), "first"); err != nil {
			t.Errorf("first Chat() failed: %v", err)
		}
	}()

	<-eng.started
	if _, err := s.Chat(context.Background(), "second"); !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("concurrent Chat() = %v, want ErrTurnInProgress", err)
	}

	close(eng.release)
	wg.Wait()

	if eng.turns != 1 {
		t.Errorf("engine ran %d turns, want 1", eng.turns)
	}

	// The session accepts turns again once the first one finishes.
	eng.started = make(chan struct{})
	eng.release = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := s.Chat(context.Background(), "third")
		done <- err
	}()
	<-eng.started
	close(eng.release)
	if err := <-done; err != nil {
		t.Errorf("Chat() after release failed: %v", err)
	}
}

func TestSession_ChatUpdatesLastActive(t *testing.T) {
	m := newStubManager()
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	before := s.LastActive()
	time.Sleep(5 * time.Millisecond)
	if _, err := s.Chat(context.Background(), "ping"); err != nil {
		t.Fatalf("Chat() failed: %v", err)
	}
	if !s.LastActive().After(before) {
		t.Error("LastActive() not advanced by Chat()")
	}
}

func TestSession_DelegatesToEngine(t *testing.T) {
	eng := &stubEngine{}
	m := NewManager(func() (Engine, error) { return eng, nil })
	s, err := m.Create()
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	answer, err := s.Chat(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Chat() failed: %v", err)
	}
	if answer != "echo: hello" {
		t.Errorf("Chat() = %q", answer)
	}
	if got := s.Stats(); got.MessageCount != 2 {
		t.Errorf("Stats().MessageCount = %d, want 2", got.MessageCount)
	}

	s.Clear()
	if !eng.cleared {
		t.Error("Clear() not delegated to engine")
	}
}
