package llm

import (
	"fmt"
	"sync"
	"testing"
)

func TestGenerationSettingsWith(t *testing.T) {
	base := DefaultGenerationSettings()

	got := base.with([]SendOption{
		WithTemperature(0.2),
		WithTopP(0.5),
		WithTopK(10),
		WithMaxOutputTokens(256),
		WithJSONMode(false),
	})

	if got.Temperature != 0.2 || got.TopP != 0.5 || got.TopK != 10 || got.MaxOutputTokens != 256 || got.JSONMode {
		t.Errorf("Expected overrides applied, got %+v", got)
	}

	if base != DefaultGenerationSettings() {
		t.Error("Expected base settings to be unchanged")
	}
}

func TestDefaultGenerationSettings(t *testing.T) {
	s := DefaultGenerationSettings()

	if s.Temperature != 1 || s.TopP != 0.95 || s.TopK != 64 || s.MaxOutputTokens != 8192 || !s.JSONMode {
		t.Errorf("Unexpected defaults: %+v", s)
	}
}

func TestHistoryCommitAndReset(t *testing.T) {
	h := &history{}

	h.commit("p1", "r1")
	h.commit("p2", "r2")

	if h.exchanges() != 2 {
		t.Errorf("Expected 2 exchanges, got %d", h.exchanges())
	}

	turns := h.snapshot()
	if len(turns) != 4 || turns[0].Role != RoleUser || turns[1].Role != RoleModel || turns[3].Text != "r2" {
		t.Errorf("Unexpected turns: %+v", turns)
	}

	// Snapshots are copies.
	turns[0].Text = "mutated"
	if h.snapshot()[0].Text != "p1" {
		t.Error("Expected snapshot mutation not to leak into history")
	}

	h.reset()
	if h.exchanges() != 0 {
		t.Errorf("Expected empty history after reset, got %d", h.exchanges())
	}
}

func TestHistoryLimitEvictsOldest(t *testing.T) {
	h := &history{limit: 2}

	for i := 1; i <= 5; i++ {
		h.commit(fmt.Sprintf("p%d", i), fmt.Sprintf("r%d", i))
	}

	if h.exchanges() != 2 {
		t.Fatalf("Expected 2 retained exchanges, got %d", h.exchanges())
	}

	turns := h.snapshot()
	if turns[0].Text != "p4" || turns[3].Text != "r5" {
		t.Errorf("Expected the newest exchanges kept, got %+v", turns)
	}
}

func TestHistoryConcurrentCommits(t *testing.T) {
	h := &history{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.snapshot()
			h.commit(fmt.Sprintf("p%d", i), fmt.Sprintf("r%d", i))
		}(i)
	}
	wg.Wait()

	if h.exchanges() != 50 {
		t.Errorf("Expected 50 exchanges, got %d", h.exchanges())
	}

	// Each exchange stays paired even when calls interleave.
	turns := h.snapshot()
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != RoleUser || turns[i+1].Role != RoleModel {
			t.Fatalf("Expected user/model pairs, got %+v and %+v", turns[i], turns[i+1])
		}
		if turns[i].Text[1:] != turns[i+1].Text[1:] {
			t.Errorf("Expected matching exchange, got %s / %s", turns[i].Text, turns[i+1].Text)
		}
	}
}
