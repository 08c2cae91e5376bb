package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/pkg/models"
)

type fakeSource struct {
	jobs      []orchestrator.Status
	answered  []string
	cancelled []string
}

func (f *fakeSource) ListJobs() ([]orchestrator.Status, error) {
	return f.jobs, nil
}

func (f *fakeSource) GetStatus(jobID string) (orchestrator.Status, error) {
	for _, job := range f.jobs {
		if job.JobID == jobID {
			return job, nil
		}
	}
	return orchestrator.Status{}, orchestrator.ErrJobNotFound
}

func (f *fakeSource) SubmitAnswer(jobID, questionID, answer string) error {
	f.answered = append(f.answered, jobID+"/"+questionID+"="+answer)
	return nil
}

func (f *fakeSource) CancelJob(jobID string) error {
	f.cancelled = append(f.cancelled, jobID)
	return nil
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testJobs() []orchestrator.Status {
	return []orchestrator.Status{
		{JobID: "job-aaaa-1111", Task: "write a parser", Status: models.JobStatusRunning, CurrentAttempt: 2, MaxIterations: 10, LastScore: 5.5},
		{JobID: "job-bbbb-2222", Task: "write a lexer", Status: models.JobStatusCompleted, CurrentAttempt: 3, MaxIterations: 10, LastScore: 8.5},
	}
}

func TestJobsMsgPopulatesTable(t *testing.T) {
	app := New(&fakeSource{})

	model, _ := app.Update(jobsMsg{jobs: testJobs()})
	app = model.(*App)

	view := app.View()
	if !strings.Contains(view, "job-aaaa") {
		t.Errorf("view missing first job: %s", view)
	}
	if !strings.Contains(view, "write a lexer") {
		t.Errorf("view missing second job task: %s", view)
	}
}

func TestNavigationMovesSelection(t *testing.T) {
	src := &fakeSource{jobs: testJobs()}
	app := New(src)

	model, _ := app.Update(jobsMsg{jobs: src.jobs})
	app = model.(*App)

	model, _ = app.Update(keyMsg("j"))
	app = model.(*App)
	if app.selected != 1 {
		t.Errorf("selected = %d after j, want 1", app.selected)
	}

	model, _ = app.Update(keyMsg("k"))
	app = model.(*App)
	if app.selected != 0 {
		t.Errorf("selected = %d after k, want 0", app.selected)
	}
}

func TestCancelKeyForwardsToSource(t *testing.T) {
	src := &fakeSource{jobs: testJobs()}
	app := New(src)

	model, _ := app.Update(jobsMsg{jobs: src.jobs})
	app = model.(*App)
	model, _ = app.Update(keyMsg("c"))
	_ = model

	if len(src.cancelled) != 1 || src.cancelled[0] != "job-aaaa-1111" {
		t.Errorf("cancelled = %v, want the selected job", src.cancelled)
	}
}

func TestAnswerFlowSubmits(t *testing.T) {
	jobs := testJobs()
	jobs[0].PendingQuestion = &models.Question{
		ID:     "q-1",
		JobID:  "job-aaaa-1111",
		Prompt: "Which auth scheme?",
		Status: models.QuestionPending,
	}
	src := &fakeSource{jobs: jobs}
	app := New(src)

	model, _ := app.Update(jobsMsg{jobs: jobs})
	app = model.(*App)
	model, _ = app.Update(detailMsg{status: jobs[0]})
	app = model.(*App)

	if app.answering == nil {
		t.Fatal("pending question did not open the answer input")
	}

	for _, r := range "JWT" {
		model, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = model.(*App)
	}
	model, _ = app.Update(keyMsg("enter"))
	app = model.(*App)

	if len(src.answered) != 1 || src.answered[0] != "job-aaaa-1111/q-1=JWT" {
		t.Errorf("answered = %v, want the typed answer", src.answered)
	}
	if app.answering != nil {
		t.Error("answer input still open after submit")
	}
}

func TestQuitKey(t *testing.T) {
	app := New(&fakeSource{})

	model, cmd := app.Update(keyMsg("q"))
	app = model.(*App)
	if !app.quitting {
		t.Error("q did not set quitting")
	}
	if cmd == nil {
		t.Error("q did not return tea.Quit")
	}
}
