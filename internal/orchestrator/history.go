package orchestrator

import (
	"fmt"
	"sync"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// History is the append-only attempt log for one job. Attempts are
// numbered contiguously from 1 and visible to readers only after being
// fully appended. Writes come from the single job goroutine; reads may
// come from any goroutine.
type History struct {
	mu       sync.RWMutex
	attempts []models.Attempt
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records the next attempt. The attempt's number must be exactly
// one past the current length; anything else is a bug in the loop, not
// a runtime condition, and panics.
func (h *History) Append(a models.Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if a.Number != len(h.attempts)+1 {
		panic(fmt.Sprintf("attempt history: non-contiguous append: got number %d, want %d", a.Number, len(h.attempts)+1))
	}
	h.attempts = append(h.attempts, a.Clone())
}

// Len returns the number of recorded attempts.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.attempts)
}

// Latest returns the most recent attempt, or false if none exist.
func (h *History) Latest() (models.Attempt, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.attempts) == 0 {
		return models.Attempt{}, false
	}
	return h.attempts[len(h.attempts)-1].Clone(), true
}

// Snapshot returns a deep copy of all attempts in append order.
func (h *History) Snapshot() []models.Attempt {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Attempt, 0, len(h.attempts))
	for i := range h.attempts {
		out = append(out, h.attempts[i].Clone())
	}
	return out
}

// LastN returns up to n attempts ordered most recent first.
func (h *History) LastN(n int) []models.Attempt {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.attempts) {
		n = len(h.attempts)
	}
	out := make([]models.Attempt, 0, n)
	for i := len(h.attempts) - 1; i >= len(h.attempts)-n; i-- {
		out = append(out, h.attempts[i].Clone())
	}
	return out
}

// Best returns the best attempt so far, or false if none exist. Ties
// on score prefer the cheaper tier, then the earliest attempt.
func (h *History) Best() (models.Attempt, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.attempts) == 0 {
		return models.Attempt{}, false
	}
	best := 0
	for i := 1; i < len(h.attempts); i++ {
		if betterAttempt(&h.attempts[i], &h.attempts[best]) {
			best = i
		}
	}
	return h.attempts[best].Clone(), true
}

// betterAttempt reports whether candidate beats incumbent: higher
// score wins; on equal scores a cheaper tier wins; on equal tiers the
// earlier attempt wins.
func betterAttempt(candidate, incumbent *models.Attempt) bool {
	if candidate.Score != incumbent.Score {
		return candidate.Score > incumbent.Score
	}
	if candidate.Tier.Rank() != incumbent.Tier.Rank() {
		return candidate.Tier.Rank() < incumbent.Tier.Rank()
	}
	return candidate.Number < incumbent.Number
}
