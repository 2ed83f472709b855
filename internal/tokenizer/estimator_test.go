package tokenizer

import (
	"strings"
	"testing"
)

func TestEstimate_Empty(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
	if got := Estimate("   \n\t  "); got != 0 {
		t.Errorf("Estimate(whitespace) = %d, want 0", got)
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	const text = "the quick brown fox jumps over the lazy dog"
	first := Estimate(text)
	for i := 0; i < 10; i++ {
		if got := Estimate(text); got != first {
			t.Fatalf("Estimate not deterministic: got %d, want %d", got, first)
		}
	}
}

// TestEstimate_Margin verifies that the estimate is strictly above the
// naive whitespace word count for non-trivial input.
func TestEstimate_Margin(t *testing.T) {
	text := strings.Repeat("word ", 100)
	words := len(strings.Fields(text))
	if got := Estimate(text); got <= words {
		t.Errorf("Estimate(%d words) = %d, want > %d (safety margin)", words, got, words)
	}
}

// TestEstimate_Monotonic verifies that extending text never lowers the
// estimate, across word boundaries and within a single long word.
func TestEstimate_Monotonic(t *testing.T) {
	text := ""
	prev := 0
	pieces := []string{"alpha", " beta", "gamma", " a", "verylongidentifiername", " tail"}
	for _, p := range pieces {
		text += p
		got := Estimate(text)
		if got < prev {
			t.Fatalf("Estimate decreased from %d to %d after appending %q", prev, got, p)
		}
		prev = got
	}
}

func TestEstimate_LongWordsCostMore(t *testing.T) {
	short := Estimate("ab cd ef")
	long := Estimate("abcdefghijklmnopqrstuvwxyz abcdefghijklmnopqrstuvwxyz abcdefghijklmnopqrstuvwxyz")
	if long <= short {
		t.Errorf("long words estimate %d, want > short words estimate %d", long, short)
	}
}
