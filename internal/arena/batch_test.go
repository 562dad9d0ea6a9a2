package arena

import (
	"testing"
	"time"
)

func testJokes() []GeneratedJoke {
	return []GeneratedJoke{
		{Identity: GeneratorOpenAI, Content: "openai joke"},
		{Identity: GeneratorAnthropic, Content: "anthropic joke"},
		{Identity: GeneratorGemini, Content: "gemini joke"},
		{Identity: GeneratorLlama, Content: "llama joke"},
	}
}

func TestNewJokeBatchAssignsShuffledSlots(t *testing.T) {
	order := []int{2, 0, 3, 1}
	batch, err := NewJokeBatch("token-1", testJokes(), order, time.Unix(1700000000, 0).UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if batch.Items[2].Identity != GeneratorOpenAI {
		t.Fatalf("expected OpenAI at slot 2, got %s", batch.Items[2].Identity)
	}
	if batch.Items[0].Identity != GeneratorAnthropic {
		t.Fatalf("expected Anthropic at slot 0, got %s", batch.Items[0].Identity)
	}
	for slot, item := range batch.Items {
		if item.DisplayIndex != slot {
			t.Fatalf("slot %d has display index %d", slot, item.DisplayIndex)
		}
	}
}

func TestNewJokeBatchEnforcesDistinctIdentities(t *testing.T) {
	jokes := testJokes()
	jokes[3].Identity = GeneratorOpenAI
	if _, err := NewJokeBatch("token-1", jokes, identityOrder(BatchSize), time.Now().UTC()); err == nil {
		t.Fatal("expected duplicate identity to be rejected")
	}
}

func TestNewJokeBatchRejectsWrongSize(t *testing.T) {
	jokes := testJokes()[:3]
	if _, err := NewJokeBatch("token-1", jokes, identityOrder(3), time.Now().UTC()); err == nil {
		t.Fatal("expected short batch to be rejected")
	}
}

func TestNewJokeBatchRejectsUnknownIdentity(t *testing.T) {
	jokes := testJokes()
	jokes[0].Identity = "Clippy"
	if _, err := NewJokeBatch("token-1", jokes, identityOrder(BatchSize), time.Now().UTC()); err == nil {
		t.Fatal("expected unknown identity to be rejected")
	}
}

func TestNewJokeBatchRejectsBrokenPermutation(t *testing.T) {
	tests := []struct {
		name  string
		order []int
	}{
		{name: "repeated-slot", order: []int{0, 0, 1, 2}},
		{name: "out-of-range", order: []int{0, 1, 2, 7}},
		{name: "short", order: []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJokeBatch("token-1", testJokes(), tt.order, time.Now().UTC()); err == nil {
				t.Fatalf("expected order %v to be rejected", tt.order)
			}
		})
	}
}

func TestViewsCarryNoIdentity(t *testing.T) {
	batch, err := NewJokeBatch("token-1", testJokes(), identityOrder(BatchSize), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	views := batch.Views()
	if len(views) != BatchSize {
		t.Fatalf("expected %d views, got %d", BatchSize, len(views))
	}
	for i, view := range views {
		if view.DisplayIndex != i {
			t.Fatalf("view %d has display index %d", i, view.DisplayIndex)
		}
		if view.Content == "" {
			t.Fatalf("view %d has empty content", i)
		}
	}
}
