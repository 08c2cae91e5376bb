// Package generate provides the model clients behind the orchestrator's
// generation step. A Router maps cost tiers to provider clients; each
// client wraps one provider endpoint with token tracking.
package generate

import "context"

// Request is one completion request to a provider client.
type Request struct {
	// Model is the concrete model identifier to invoke.
	Model string
	// System is the system preamble, empty to omit.
	System string
	// Prompt is the user-turn content.
	Prompt string
	// MaxTokens caps the completion length.
	MaxTokens int
	// Temperature is the sampling temperature.
	Temperature float32
}

// Generation is the result of one generation call.
type Generation struct {
	// Artifact is the generated text.
	Artifact string
	// Model is the concrete model that produced it.
	Model string
}

// completer is the provider-side contract the router drives.
type completer interface {
	Complete(ctx context.Context, req Request) (Generation, error)
	Tracker() *TokenTracker
}
