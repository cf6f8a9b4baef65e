package dedup

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/halcyard/botfarm/internal/bot"
)

func TestSimilarityIdentity(t *testing.T) {
	texts := []string{
		"How do I calm my nerves before a big presentation?",
		"a",
		"I shake during presentations and feel nervous speaking in public",
	}
	for _, s := range texts {
		if got := Similarity(s, s); got != 1.0 {
			t.Errorf("Similarity(%q, same) = %v, want 1.0", s, got)
		}
	}
}

func TestSimilaritySymmetry(t *testing.T) {
	a := "I shake during presentations and feel nervous speaking in public"
	b := "I get nervous and shake when presenting at work"
	ab := Similarity(a, b)
	ba := Similarity(b, a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("similarity not symmetric: %v vs %v", ab, ba)
	}
}

func TestParaphraseIsDuplicate(t *testing.T) {
	// Two texts sharing well over 70% of their content.
	a := "I shake during presentations and feel nervous speaking in public"
	b := "I shake during presentations and get nervous speaking in public"
	if got := Similarity(a, b); got <= 0.70 {
		t.Errorf("paraphrase similarity = %v, want > 0.70", got)
	}
}

func TestUnrelatedTextsAreNotDuplicate(t *testing.T) {
	a := "I shake during presentations and feel nervous speaking in public"
	b := "How do I improve my dating profile on apps?"
	if got := Similarity(a, b); got >= 0.30 {
		t.Errorf("unrelated similarity = %v, want < 0.30", got)
	}
}

func TestTextHashDeterministic(t *testing.T) {
	a := "How do I handle conflict with my manager?"
	if TextHash(a) != TextHash(a) {
		t.Error("hash of identical text must be identical")
	}
	// Whitespace and case normalization collapses to the same hash.
	if TextHash("  How do I  handle conflict ") != TextHash("how do i handle conflict") {
		t.Error("hash should normalize case and whitespace")
	}
	if TextHash(a) == TextHash("Completely different question about cooking") {
		t.Error("distinct texts should hash differently")
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("The quick, BROWN fox is on my presentation!")
	want := map[string]bool{"quick": true, "brown": true, "fox": true, "presentation": true}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v, want %v", got, want)
	}
	for _, w := range got {
		if !want[w] {
			t.Errorf("unexpected keyword %q", w)
		}
	}
}

// fakeMemory is an in-memory MemoryStore.
type fakeMemory struct {
	entries map[string][]bot.MemoryEntry
	global  []string
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{entries: make(map[string][]bot.MemoryEntry)}
}

func (f *fakeMemory) RecentForAgent(_ context.Context, agentID string, limit int) ([]bot.MemoryEntry, error) {
	list := f.entries[agentID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeMemory) Append(_ context.Context, entry *bot.MemoryEntry, keep int) error {
	f.entries[entry.AgentID] = append([]bot.MemoryEntry{*entry}, f.entries[entry.AgentID]...)
	if len(f.entries[entry.AgentID]) > keep {
		f.entries[entry.AgentID] = f.entries[entry.AgentID][:keep]
	}
	return nil
}

func (f *fakeMemory) RecentGlobal(_ context.Context, limit int) ([]string, error) {
	if len(f.global) > limit {
		return f.global[:limit], nil
	}
	return f.global, nil
}

func TestEngineRejectsRememberedText(t *testing.T) {
	mem := newFakeMemory()
	eng := NewEngine(mem, nil, 0, zap.NewNop())
	ctx := context.Background()

	text := "I shake during presentations and feel nervous speaking in public"
	if err := eng.Remember(ctx, "agent-1", text, "anxiety", "problem_statement"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	res, err := eng.Check(ctx, "agent-1", text, "anxiety")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsDuplicate || res.Similarity != 1.0 {
		t.Errorf("exact repeat: got %+v, want duplicate at 1.0", res)
	}

	res, err = eng.Check(ctx, "agent-1", "I shake during presentations and get nervous speaking in public", "anxiety")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsDuplicate {
		t.Errorf("paraphrase: got %+v, want duplicate", res)
	}
	if res.MatchedText != text {
		t.Errorf("matched text = %q, want the stored entry", res.MatchedText)
	}
}

func TestEngineAcceptsFreshText(t *testing.T) {
	mem := newFakeMemory()
	eng := NewEngine(mem, nil, 0, zap.NewNop())
	ctx := context.Background()

	if err := eng.Remember(ctx, "agent-1", "I struggle with public speaking at conferences", "anxiety", "traditional"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	res, err := eng.Check(ctx, "agent-1", "How do I improve my dating profile on apps?", "dating")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.IsDuplicate {
		t.Errorf("fresh text flagged as duplicate: %+v", res)
	}
}

func TestEngineChecksGlobalCorpus(t *testing.T) {
	mem := newFakeMemory()
	mem.global = []string{"I shake during presentations and feel nervous speaking in public"}
	eng := NewEngine(mem, nil, 0, zap.NewNop())

	res, err := eng.Check(context.Background(), "agent-2", "I shake during presentations and get nervous speaking in public", "anxiety")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.IsDuplicate {
		t.Error("text matching another agent's recent content should be rejected")
	}
}

func TestMemoryPrunedToKeepLimit(t *testing.T) {
	mem := newFakeMemory()
	eng := NewEngine(mem, nil, 0, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < memoryKeepLimit+10; i++ {
		text := "unique filler question number " + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
		if err := eng.Remember(ctx, "agent-1", text, "misc", "traditional"); err != nil {
			t.Fatalf("remember %d: %v", i, err)
		}
	}
	if got := len(mem.entries["agent-1"]); got != memoryKeepLimit {
		t.Errorf("memory size = %d, want pruned to %d", got, memoryKeepLimit)
	}
}
