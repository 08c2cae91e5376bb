package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/internal/knowledge"
)

// Allocation fixes the per-bucket token ceilings used to assemble one
// prompt. The sum of the buckets plus the reserve never exceeds the
// total ceiling, so an assembled prompt always leaves the reserve as
// headroom for the model's own output.
type Allocation struct {
	// Total is the hard ceiling on the assembled prompt.
	Total int
	// Overview is the ceiling for the always-present task section.
	Overview int
	// Snippets is the ceiling for retrieved knowledge snippets.
	Snippets int
	// History is the ceiling for formatted past attempts.
	History int
	// Reserve is headroom left for the model's output, never assigned
	// to any bucket.
	Reserve int
	// MinOverview is the floor below which the overview is never
	// truncated.
	MinOverview int
}

// NewAllocation validates config budget values into an Allocation.
func NewAllocation(cfg config.BudgetConfig) (Allocation, error) {
	a := Allocation{
		Total:       cfg.TotalTokens,
		Overview:    cfg.OverviewTokens,
		Snippets:    cfg.SnippetTokens,
		History:     cfg.HistoryTokens,
		Reserve:     cfg.ReserveTokens,
		MinOverview: cfg.MinOverviewTokens,
	}
	if a.Total <= 0 {
		return Allocation{}, fmt.Errorf("budget total must be positive, got %d", a.Total)
	}
	if sum := a.Overview + a.Snippets + a.History + a.Reserve; sum > a.Total {
		return Allocation{}, fmt.Errorf("budget buckets sum to %d, exceeding total %d", sum, a.Total)
	}
	if a.MinOverview > a.Overview {
		return Allocation{}, fmt.Errorf("minimum overview %d exceeds overview bucket %d", a.MinOverview, a.Overview)
	}
	return a, nil
}

// Assembled is the allocator output: the prompt plus a record of what
// was dropped to make it fit.
type Assembled struct {
	// Prompt is the assembled prompt text.
	Prompt string
	// Tokens is the estimated token count of Prompt.
	Tokens int
	// Dropped describes each input that was truncated or omitted.
	Dropped []string
}

// Assemble fits the candidate inputs into the allocation's buckets and
// joins them into one prompt. Fitting order: the overview is truncated
// only down to MinOverview; snippets are included top-rank first and
// dropped wholesale once their bucket is full; history entries arrive
// most recent first and the oldest are dropped once their bucket is
// full. The assembled prompt never exceeds Total.
func (a Allocation) Assemble(overview string, snippets []knowledge.Snippet, history []string) Assembled {
	var out Assembled
	var sections []string

	if overview != "" {
		fitted := overview
		if EstimateTokens(fitted) > a.Overview {
			limit := a.Overview
			if limit < a.MinOverview {
				limit = a.MinOverview
			}
			fitted = TruncateToTokens(fitted, limit)
			out.Dropped = append(out.Dropped, fmt.Sprintf("overview truncated to %d tokens", limit))
		}
		sections = append(sections, fitted)
	}

	if len(snippets) > 0 {
		var kept []string
		used := 0
		for _, s := range snippets {
			rendered := renderSnippet(s)
			cost := EstimateTokens(rendered)
			if used+cost > a.Snippets {
				out.Dropped = append(out.Dropped, fmt.Sprintf("snippet %q (%d tokens)", s.Title, cost))
				continue
			}
			kept = append(kept, rendered)
			used += cost
		}
		if len(kept) > 0 {
			sections = append(sections, "## Relevant Snippets\n\n"+strings.Join(kept, "\n"))
		}
	}

	if len(history) > 0 {
		var kept []string
		used := 0
		for i, entry := range history {
			cost := EstimateTokens(entry)
			if used+cost > a.History {
				// Entries are ordered most recent first. Once one no
				// longer fits, it and everything older goes, so the
				// transcript is always truncated from the oldest end.
				for j := i; j < len(history); j++ {
					out.Dropped = append(out.Dropped, fmt.Sprintf("history entry %d (%d tokens)", j+1, EstimateTokens(history[j])))
				}
				break
			}
			kept = append(kept, entry)
			used += cost
		}
		if len(kept) > 0 {
			sections = append(sections, "## Previous Attempts (most recent first)\n\n"+strings.Join(kept, "\n"))
		}
	}

	out.Prompt = strings.Join(sections, "\n\n")

	// The reserve covers the joining overhead, so this clamp should
	// never fire; it exists to make the ceiling unconditional.
	if EstimateTokens(out.Prompt) > a.Total {
		out.Prompt = TruncateToTokens(out.Prompt, a.Total)
		out.Dropped = append(out.Dropped, "assembled prompt clamped to total ceiling")
	}
	out.Tokens = EstimateTokens(out.Prompt)

	return out
}
