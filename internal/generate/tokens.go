package generate

import "sync"

// TokenTracker accumulates token usage across calls to one provider
// client. Safe for concurrent use.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int

	inputPerM  float64
	outputPerM float64
}

// NewTokenTracker returns a tracker that prices usage at the given
// dollar rates per million input and output tokens. Zero rates are
// valid for free or local endpoints.
func NewTokenTracker(inputPerM, outputPerM float64) *TokenTracker {
	return &TokenTracker{inputPerM: inputPerM, outputPerM: outputPerM}
}

// Add records the token usage of one completed call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the accumulated input and output token counts.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Reset clears all accumulated usage.
func (t *TokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok = 0
	t.outputTok = 0
	t.calls = 0
}

// Cost estimates the dollar cost of the accumulated usage.
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	inputCost := float64(t.inputTok) / 1_000_000 * t.inputPerM
	outputCost := float64(t.outputTok) / 1_000_000 * t.outputPerM
	return inputCost + outputCost
}
