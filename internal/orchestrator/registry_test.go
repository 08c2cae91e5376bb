package orchestrator

import (
	"testing"

	"github.com/ShayCichocki/anvil/pkg/models"
)

func TestRegistry_AddGetRemove(t *testing.T) {
	r := NewRegistry()

	if r.Get("missing") != nil {
		t.Error("expected nil for an unknown job")
	}
	if r.Count() != 0 {
		t.Errorf("empty registry Count() = %d", r.Count())
	}

	j := newJob(models.Job{ID: "j1", Status: models.JobStatusPending}, func() {})
	r.Add(j)

	if got := r.Get("j1"); got != j {
		t.Errorf("Get returned %p, want %p", got, j)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}

	r.Remove("j1")
	if r.Get("j1") != nil {
		t.Error("expected nil after Remove")
	}
}

func TestRegistry_AllReturnsEveryJob(t *testing.T) {
	r := NewRegistry()
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		r.Add(newJob(models.Job{ID: id}, func() {}))
	}

	all := r.All()
	if len(all) != len(ids) {
		t.Fatalf("All() returned %d jobs, want %d", len(all), len(ids))
	}
	seen := make(map[string]bool)
	for _, j := range all {
		seen[j.snapshot().ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("All() missing job %s", id)
		}
	}
}
