// Package tui provides the terminal user interface for watching jobs.
// The app polls a job source (the HTTP client against a running
// server, or an in-process engine adapter), renders the job table and
// the selected job's attempts, and answers pending questions inline.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/pkg/models"
)

const pollInterval = 1 * time.Second

// JobSource supplies job state and accepts control actions.
type JobSource interface {
	ListJobs() ([]orchestrator.Status, error)
	GetStatus(jobID string) (orchestrator.Status, error)
	SubmitAnswer(jobID, questionID, answer string) error
	CancelJob(jobID string) error
}

// jobsMsg delivers a poll result.
type jobsMsg struct {
	jobs []orchestrator.Status
	err  error
}

// detailMsg delivers the selected job's full status.
type detailMsg struct {
	status orchestrator.Status
	err    error
}

type tickMsg struct{}

// App is the bubbletea model for anvil watch.
type App struct {
	source JobSource

	jobs     []orchestrator.Status
	selected int
	detail   *orchestrator.Status

	input     textinput.Model
	answering *models.Question

	spin     spinner.Model
	width    int
	height   int
	err      error
	quitting bool
}

// New creates the watch app over a job source.
func New(source JobSource) *App {
	input := textinput.New()
	input.Placeholder = "type answer, enter to submit, esc to dismiss"
	input.CharLimit = 500

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return &App{
		source: source,
		input:  input,
		spin:   spin,
	}
}

// Init starts the poll loop.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.poll(), a.spin.Tick)
}

func (a *App) poll() tea.Cmd {
	return func() tea.Msg {
		jobs, err := a.source.ListJobs()
		return jobsMsg{jobs: jobs, err: err}
	}
}

func (a *App) pollDetail(jobID string) tea.Cmd {
	return func() tea.Msg {
		status, err := a.source.GetStatus(jobID)
		return detailMsg{status: status, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case jobsMsg:
		a.err = msg.err
		if msg.err == nil {
			a.jobs = msg.jobs
			if a.selected >= len(a.jobs) {
				a.selected = max(0, len(a.jobs)-1)
			}
		}
		if len(a.jobs) > 0 {
			return a, tea.Batch(tick(), a.pollDetail(a.jobs[a.selected].JobID))
		}
		return a, tick()

	case detailMsg:
		if msg.err == nil {
			a.detail = &msg.status
			a.maybeOpenAnswerInput()
		}
		return a, nil

	case tickMsg:
		return a, a.poll()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.answering != nil && a.input.Focused() {
		switch msg.String() {
		case "enter":
			answer := a.input.Value()
			q := a.answering
			a.dismissAnswerInput()
			if answer != "" {
				a.source.SubmitAnswer(q.JobID, q.ID, answer)
			}
			return a, a.poll()
		case "esc":
			a.dismissAnswerInput()
			return a, nil
		default:
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c":
		a.quitting = true
		return a, tea.Quit
	case "up", "k":
		if a.selected > 0 {
			a.selected--
			a.detail = nil
		}
		return a, a.poll()
	case "down", "j":
		if a.selected < len(a.jobs)-1 {
			a.selected++
			a.detail = nil
		}
		return a, a.poll()
	case "c":
		if a.selected < len(a.jobs) {
			a.source.CancelJob(a.jobs[a.selected].JobID)
		}
		return a, a.poll()
	case "a":
		a.maybeOpenAnswerInput()
		return a, nil
	}
	return a, nil
}

// maybeOpenAnswerInput focuses the answer field when the selected job
// has a pending question and nothing is being typed yet.
func (a *App) maybeOpenAnswerInput() {
	if a.answering != nil || a.detail == nil || a.detail.PendingQuestion == nil {
		return
	}
	a.answering = a.detail.PendingQuestion
	a.input.SetValue("")
	a.input.Focus()
}

func (a *App) dismissAnswerInput() {
	a.answering = nil
	a.input.Blur()
	a.input.SetValue("")
}
