package generate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// Short aliases accepted in tier configs. Full model IDs pass through
// unchanged.
const (
	ModelHaiku  = "claude-3-5-haiku-20241022"
	ModelSonnet = "claude-sonnet-4-20250514"
	ModelOpus   = "claude-opus-4-5-20251101"
)

var modelAliases = map[string]string{
	"haiku":  ModelHaiku,
	"sonnet": ModelSonnet,
	"opus":   ModelOpus,
}

// ResolveModel expands a tier-config model alias to its full model ID.
func ResolveModel(name string) string {
	if full, ok := modelAliases[name]; ok {
		return full
	}
	return name
}

const generateSystem = "You are a code generation engine. Produce the requested artifact directly, complete and self-contained. Output only the artifact with no surrounding commentary."

// Router maps cost tiers to provider clients and models. Each tier
// names a provider, a default model, and an optional fallback model
// tried when the default fails.
type Router struct {
	tiers     *config.TierConfigs
	anthropic completer
	openai    completer
	logger    *zap.Logger
}

// NewRouter wires tier configs to provider clients. Either client may
// be nil; tiers routed to a missing client fail at generation time.
func NewRouter(tiers *config.TierConfigs, anthropicClient *AnthropicClient, openaiClient *OpenAIClient, logger *zap.Logger) *Router {
	r := &Router{tiers: tiers, logger: logger}
	if anthropicClient != nil {
		r.anthropic = anthropicClient
	}
	if openaiClient != nil {
		r.openai = openaiClient
	}
	return r
}

// Generate produces one artifact at the given tier. The tier's default
// model is tried first; on failure the fallback model is tried unless
// the context is already done.
func (r *Router) Generate(ctx context.Context, prompt string, tier models.Tier) (Generation, error) {
	tc := r.tiers.Get(tier)

	client, err := r.clientFor(tc.Provider)
	if err != nil {
		return Generation{}, fmt.Errorf("tier %s: %w", tier, err)
	}

	if timeout := tc.Timeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := Request{
		Model:       ResolveModel(tc.Models.Default),
		System:      generateSystem,
		Prompt:      prompt,
		MaxTokens:   tc.MaxTokens,
		Temperature: tc.Temperature,
	}

	gen, err := client.Complete(ctx, req)
	if err == nil {
		return gen, nil
	}
	if tc.Models.Fallback == "" || ctx.Err() != nil {
		return Generation{}, err
	}

	r.logger.Warn("primary model failed, trying fallback",
		zap.String("tier", string(tier)),
		zap.String("fallback", tc.Models.Fallback),
		zap.Error(err))

	req.Model = ResolveModel(tc.Models.Fallback)
	gen, fbErr := client.Complete(ctx, req)
	if fbErr != nil {
		return Generation{}, fmt.Errorf("both models failed: %v; fallback: %w", err, fbErr)
	}
	return gen, nil
}

// Usage sums token usage and estimated cost across all configured
// provider clients.
func (r *Router) Usage() (input, output int64, cost float64) {
	for _, client := range []completer{r.anthropic, r.openai} {
		if client == nil {
			continue
		}
		in, out := client.Tracker().Total()
		input += in
		output += out
		cost += client.Tracker().Cost()
	}
	return input, output, cost
}

func (r *Router) clientFor(provider string) (completer, error) {
	switch provider {
	case "anthropic":
		if r.anthropic == nil {
			return nil, fmt.Errorf("no anthropic client configured")
		}
		return r.anthropic, nil
	case "openai":
		if r.openai == nil {
			return nil, fmt.Errorf("no openai client configured")
		}
		return r.openai, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}
