// Package validate provides artifact scoring via model critique.
package validate

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/generate"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// generator is the completion capability the critic drives.
type generator interface {
	Generate(ctx context.Context, prompt string, tier models.Tier) (generate.Generation, error)
}

// CriticScorer grades artifacts by prompting a model for a structured
// JSON verdict.
type CriticScorer struct {
	gen    generator
	tier   models.Tier
	logger *zap.Logger
}

// NewCriticScorer creates a scorer that critiques at the given tier.
// An invalid tier falls back to standard.
func NewCriticScorer(gen generator, tier models.Tier, logger *zap.Logger) *CriticScorer {
	if !tier.Valid() {
		tier = models.TierStandard
	}
	return &CriticScorer{gen: gen, tier: tier, logger: logger}
}

// Score critiques an artifact and returns its evaluation. Unparseable
// critique output returns ErrMalformedVerdict; callers treat that as a
// failed attempt rather than a fatal error.
func (c *CriticScorer) Score(ctx context.Context, artifact, language string) (models.Evaluation, error) {
	prompt := buildCritiquePrompt(artifact, language)

	gen, err := c.gen.Generate(ctx, prompt, c.tier)
	if err != nil {
		return models.Evaluation{}, fmt.Errorf("critique generation: %w", err)
	}

	eval, err := ParseVerdict(gen.Artifact)
	if err != nil {
		c.logger.Debug("unparseable critique verdict",
			zap.String("model", gen.Model),
			zap.Error(err))
		return models.Evaluation{}, err
	}

	return eval, nil
}

// buildCritiquePrompt constructs the prompt for artifact critique.
func buildCritiquePrompt(artifact, language string) string {
	var sb strings.Builder

	sb.WriteString("# Code Critique Task\n\n")
	sb.WriteString("You are reviewing a generated artifact for correctness, ")
	sb.WriteString("completeness, and quality.\n\n")

	sb.WriteString(fmt.Sprintf("## Artifact (%s)\n\n", language))
	sb.WriteString("```\n")
	sb.WriteString(artifact)
	sb.WriteString("\n```\n\n")

	sb.WriteString("## Review Guidelines\n\n")
	sb.WriteString("Check for:\n")
	sb.WriteString("- Code that would not compile or parse\n")
	sb.WriteString("- Logic errors or bugs\n")
	sb.WriteString("- Missing or incomplete functionality\n")
	sb.WriteString("- Edge cases not handled\n")
	sb.WriteString("- Poor error handling\n\n")

	sb.WriteString("## Response Format\n\n")
	sb.WriteString("Respond with a single JSON object and nothing else:\n\n")
	sb.WriteString("{\n")
	sb.WriteString("  \"score\": 0.0,\n")
	sb.WriteString("  \"issues\": [\n")
	sb.WriteString("    {\"severity\": \"error|warning|info\", \"location\": \"file or symbol\", ")
	sb.WriteString("\"message\": \"what is wrong\", \"suggested_fix\": \"how to fix it\"}\n")
	sb.WriteString("  ],\n")
	sb.WriteString("  \"build_errors\": [\"compiler-style error, one per entry\"]\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Score from 0 (unusable) to 10 (production ready). ")
	sb.WriteString("List build_errors only for code that would fail to compile; ")
	sb.WriteString("otherwise use an empty array.\n")

	return sb.String()
}
