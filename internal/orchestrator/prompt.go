package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/knowledge"
	"github.com/ShayCichocki/anvil/pkg/models"
)

// renderOverview builds the always-present prompt head: the task, the
// target language, and any clarifications or feedback gathered so far.
func renderOverview(task, language string, answered []models.Question, feedback []string) string {
	var sb strings.Builder

	sb.WriteString("# Task\n\n")
	sb.WriteString(task)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Target language: %s\n", language))

	if len(answered) > 0 {
		sb.WriteString("\n## Clarifications\n\n")
		for _, q := range answered {
			sb.WriteString(fmt.Sprintf("Q: %s\nA: %s\n", q.Prompt, q.Answer))
		}
	}

	if len(feedback) > 0 {
		sb.WriteString("\n## Reviewer Feedback\n\n")
		for _, msg := range feedback {
			sb.WriteString("- ")
			sb.WriteString(msg)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// renderSnippet formats one knowledge snippet for prompt inclusion.
func renderSnippet(s knowledge.Snippet) string {
	var sb strings.Builder

	sb.WriteString("### ")
	sb.WriteString(s.Title)
	if s.Language != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", s.Language))
	}
	sb.WriteString("\n```\n")
	sb.WriteString(s.Content)
	sb.WriteString("\n```\n")

	return sb.String()
}

// renderAttempt formats one past attempt's verdict for the next
// prompt: score, issues, and build errors, never the artifact itself.
func renderAttempt(a models.Attempt) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### Attempt %d (%s, score %.1f)\n", a.Number, a.Tier, a.Score))

	for _, issue := range a.Issues {
		sb.WriteString(fmt.Sprintf("- [%s]", issue.Severity))
		if issue.Location != "" {
			sb.WriteString(" ")
			sb.WriteString(issue.Location)
			sb.WriteString(":")
		}
		sb.WriteString(" ")
		sb.WriteString(issue.Message)
		if issue.SuggestedFix != "" {
			sb.WriteString(" (fix: ")
			sb.WriteString(issue.SuggestedFix)
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}

	if len(a.BuildErrors) > 0 {
		sb.WriteString("Build errors:\n```\n")
		sb.WriteString(strings.Join(a.BuildErrors, "\n"))
		sb.WriteString("\n```\n")
	}

	return sb.String()
}

// assemblePrompt gathers the prompt inputs for a job's next attempt
// and fits them into the budget. Search failures degrade to an empty
// snippet set, never a failed attempt.
func (e *Engine) assemblePrompt(ctx context.Context, j *job) Assembled {
	data := j.snapshot()
	convo := e.gate.Snapshot(data.ID)

	overview := renderOverview(data.Task, data.Language, convo.Answered(), convo.Feedback)

	var snippets []knowledge.Snippet
	if e.searcher != nil {
		found, err := e.searcher.Search(ctx, data.Task, e.cfg.Knowledge.SearchLimit)
		if err != nil {
			e.logger.Debug("snippet search failed",
				zap.String("job_id", data.ID),
				zap.Error(err))
		} else {
			snippets = found
		}
	}

	recent := j.history.LastN(e.cfg.Jobs.HistoryWindow)
	entries := make([]string, 0, len(recent))
	for _, attempt := range recent {
		entries = append(entries, renderAttempt(attempt))
	}

	return e.alloc.Assemble(overview, snippets, entries)
}
