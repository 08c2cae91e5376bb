package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/pkg/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	statusStyles = map[models.JobStatus]lipgloss.Style{
		models.JobStatusPending:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		models.JobStatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		models.JobStatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
		models.JobStatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.JobStatusCancelled: lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
	}
)

// View renders the watch screen.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("anvil watch"))
	b.WriteString("\n\n")

	if a.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", a.err)))
		b.WriteString("\n\n")
	}

	if len(a.jobs) == 0 {
		b.WriteString(a.spin.View())
		b.WriteString(" waiting for jobs...\n")
	} else {
		a.renderJobs(&b)
	}

	if a.detail != nil {
		a.renderDetail(&b)
	}

	if a.answering != nil {
		b.WriteString("\n")
		b.WriteString(questionStyle.Render("? " + a.answering.Prompt))
		b.WriteString("\n")
		if len(a.answering.Choices) > 0 {
			b.WriteString("  choices: " + strings.Join(a.answering.Choices, ", ") + "\n")
		}
		b.WriteString(a.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("j/k move · a answer · c cancel · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderJobs(b *strings.Builder) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-10s %-10s %-9s %-6s %s",
		"JOB", "STATUS", "ATTEMPT", "SCORE", "TASK")))
	b.WriteString("\n")

	for i, job := range a.jobs {
		marker := "  "
		line := fmt.Sprintf("%-10s %-10s %-9s %-6s %s",
			shortID(job.JobID),
			renderStatus(job),
			fmt.Sprintf("%d/%d", job.CurrentAttempt, job.MaxIterations),
			fmt.Sprintf("%.1f", job.LastScore),
			truncate(job.Task, 40))
		if i == a.selected {
			marker = "> "
			line = selectedStyle.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
}

func (a *App) renderDetail(b *strings.Builder) {
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("attempts for " + shortID(a.detail.JobID)))
	b.WriteString("\n")

	if len(a.detail.Attempts) == 0 {
		b.WriteString("  " + a.spin.View() + " no attempts yet\n")
		return
	}
	for _, attempt := range a.detail.Attempts {
		b.WriteString(fmt.Sprintf("  #%d  %-8s  %.1f/10  %s\n",
			attempt.Number, attempt.Tier, attempt.Score, truncate(attempt.Summary, 60)))
	}
	if a.detail.Result != nil && a.detail.Result.Reason != "" {
		b.WriteString("  reason: " + a.detail.Result.Reason + "\n")
	}
}

func renderStatus(job orchestrator.Status) string {
	style, ok := statusStyles[job.Status]
	if !ok {
		return string(job.Status)
	}
	label := string(job.Status)
	if job.PendingQuestion != nil {
		label = "waiting?"
		style = questionStyle
	}
	return style.Render(label)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
