// Package orchestrator runs the attempt loop at the heart of anvil.
//
// Each job is one background goroutine driving a generate -> score ->
// decide cycle: the budget allocator assembles a bounded prompt from
// the task, recent attempt history, and searched knowledge snippets;
// a generator produces an artifact at the current cost tier; a scorer
// grades it; the escalation policy accepts the result, retries at a
// possibly higher tier, or aborts. Ambiguous tasks open a conversation
// gate before the first attempt and block, with timeout and
// cancellation, until a human answer arrives.
//
// The engine owns a concurrent job registry, emits typed events for
// UIs and transports, and optionally persists lifecycle changes
// through a state store.
package orchestrator
