package orchestrator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ShayCichocki/anvil/pkg/models"
)

func TestHistory_AppendAndRead(t *testing.T) {
	h := NewHistory()

	if _, ok := h.Latest(); ok {
		t.Fatal("expected no latest attempt in empty history")
	}
	if _, ok := h.Best(); ok {
		t.Fatal("expected no best attempt in empty history")
	}

	h.Append(models.Attempt{Number: 1, Score: 3})
	h.Append(models.Attempt{Number: 2, Score: 5})
	h.Append(models.Attempt{Number: 3, Score: 4})

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	latest, ok := h.Latest()
	if !ok || latest.Number != 3 {
		t.Errorf("Latest() = %+v, want number 3", latest)
	}

	snap := h.Snapshot()
	for i, a := range snap {
		if a.Number != i+1 {
			t.Errorf("snapshot out of order at %d: got number %d", i, a.Number)
		}
	}
}

func TestHistory_NonContiguousAppendPanics(t *testing.T) {
	tests := []struct {
		name   string
		number int
	}{
		{"skipped number", 2},
		{"zero number", 0},
		{"repeated number", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory()
			if tt.name == "repeated number" {
				h.Append(models.Attempt{Number: 1})
			}
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic appending number %d", tt.number)
				}
			}()
			h.Append(models.Attempt{Number: tt.number})
		})
	}
}

func TestHistory_LastNMostRecentFirst(t *testing.T) {
	h := NewHistory()
	for i := 1; i <= 5; i++ {
		h.Append(models.Attempt{Number: i})
	}

	got := h.LastN(3)
	if len(got) != 3 {
		t.Fatalf("LastN(3) returned %d attempts", len(got))
	}
	for i, want := range []int{5, 4, 3} {
		if got[i].Number != want {
			t.Errorf("LastN(3)[%d].Number = %d, want %d", i, got[i].Number, want)
		}
	}

	if got := h.LastN(10); len(got) != 5 {
		t.Errorf("LastN beyond length returned %d attempts, want 5", len(got))
	}
	if got := h.LastN(0); len(got) != 0 {
		t.Errorf("LastN(0) returned %d attempts, want 0", len(got))
	}
}

func TestHistory_BestPrefersScoreThenTierThenEarliest(t *testing.T) {
	tests := []struct {
		name       string
		attempts   []models.Attempt
		wantNumber int
	}{
		{
			name: "highest score wins",
			attempts: []models.Attempt{
				{Number: 1, Tier: models.TierLocal, Score: 5},
				{Number: 2, Tier: models.TierLocal, Score: 7},
				{Number: 3, Tier: models.TierLocal, Score: 6},
			},
			wantNumber: 2,
		},
		{
			name: "tied score prefers cheaper tier",
			attempts: []models.Attempt{
				{Number: 1, Tier: models.TierPremium, Score: 6},
				{Number: 2, Tier: models.TierLocal, Score: 6},
			},
			wantNumber: 2,
		},
		{
			name: "tied score and tier prefers earliest",
			attempts: []models.Attempt{
				{Number: 1, Tier: models.TierLocal, Score: 3},
				{Number: 2, Tier: models.TierLocal, Score: 4},
				{Number: 3, Tier: models.TierLocal, Score: 5},
				{Number: 4, Tier: models.TierLocal, Score: 5},
				{Number: 5, Tier: models.TierLocal, Score: 5},
			},
			wantNumber: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory()
			for _, a := range tt.attempts {
				h.Append(a)
			}
			best, ok := h.Best()
			if !ok {
				t.Fatal("expected a best attempt")
			}
			if best.Number != tt.wantNumber {
				t.Errorf("Best().Number = %d, want %d", best.Number, tt.wantNumber)
			}
		})
	}
}

func TestHistory_SnapshotIsIsolated(t *testing.T) {
	h := NewHistory()
	h.Append(models.Attempt{
		Number: 1,
		Score:  5,
		Issues: []models.Issue{{Severity: models.SeverityWarning, Message: "original"}},
	})

	snap := h.Snapshot()
	snap[0].Issues[0].Message = "mutated"
	snap[0].Score = 0

	again := h.Snapshot()
	if again[0].Issues[0].Message != "original" {
		t.Error("mutating a snapshot leaked into the history")
	}
	if again[0].Score != 5 {
		t.Error("mutating a snapshot changed a stored score")
	}
}

func TestHistory_SnapshotNeverShrinksUnderConcurrentReads(t *testing.T) {
	h := NewHistory()
	const total = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	faults := make(chan string, 8)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen := 0
			for {
				snap := h.Snapshot()
				if len(snap) < seen {
					select {
					case faults <- fmt.Sprintf("snapshot shrank from %d to %d", seen, len(snap)):
					default:
					}
					return
				}
				seen = len(snap)
				for i, a := range snap {
					if a.Number != i+1 {
						select {
						case faults <- fmt.Sprintf("snapshot of %d entries has number %d at index %d", len(snap), a.Number, i):
						default:
						}
						return
					}
				}
				if l := h.Len(); l < seen {
					select {
					case faults <- fmt.Sprintf("Len() = %d after a snapshot of %d", l, seen):
					default:
					}
					return
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	for i := 1; i <= total; i++ {
		h.Append(models.Attempt{Number: i, Score: float64(i % 10)})
	}
	close(stop)
	wg.Wait()

	select {
	case fault := <-faults:
		t.Fatal(fault)
	default:
	}
	if h.Len() != total {
		t.Fatalf("Len() = %d, want %d", h.Len(), total)
	}
}
