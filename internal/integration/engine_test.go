package integration

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/answers"
	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/internal/generate"
	"github.com/ShayCichocki/anvil/internal/orchestrator"
	"github.com/ShayCichocki/anvil/internal/state"
	"github.com/ShayCichocki/anvil/pkg/models"
)

type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, tier models.Tier) (generate.Generation, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return generate.Generation{Artifact: "package main", Model: "scripted"}, nil
}

func (g *scriptedGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type scriptedScorer struct {
	mu     sync.Mutex
	calls  int
	scores []float64
}

func (s *scriptedScorer) Score(ctx context.Context, artifact, language string) (models.Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	idx := s.calls - 1
	if idx >= len(s.scores) {
		idx = len(s.scores) - 1
	}
	return models.Evaluation{Score: s.scores[idx]}, nil
}

type authDetector struct{}

func (authDetector) Detect(task string) *models.Question {
	if !strings.Contains(strings.ToLower(task), "auth") {
		return nil
	}
	return &models.Question{
		ID:      "q-auth",
		Prompt:  "Which auth scheme should this use?",
		Choices: []string{"JWT", "session cookies"},
		Status:  models.QuestionPending,
	}
}

func openDB(t *testing.T, dir string) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(dir, "anvil.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// TestJobPersistsThroughLifecycle runs a job against the real SQLite
// store and checks that the terminal row, its attempts, and its result
// all land.
func TestJobPersistsThroughLifecycle(t *testing.T) {
	db := openDB(t, t.TempDir())

	gen := &scriptedGenerator{}
	scorer := &scriptedScorer{scores: []float64{5.0, 9.0}}
	engine, err := orchestrator.NewEngine(orchestrator.RequiredConfig{
		Config:    config.Default(),
		Generator: gen,
		Scorer:    scorer,
	}, orchestrator.WithStateStore(db))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer shutdown(t, engine)

	jobID, err := engine.StartJob("write a queue", "go", 5)
	if err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := engine.Wait(ctx, jobID)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status.Status != models.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", status.Status)
	}

	job, err := db.GetJob(jobID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if job == nil || job.Status != models.JobStatusCompleted {
		t.Fatalf("persisted job = %+v, want completed", job)
	}
	if job.Result == nil || job.Result.Score != 9.0 || job.Result.AttemptNumber != 2 {
		t.Errorf("persisted result = %+v, want attempt 2 score 9.0", job.Result)
	}

	attempts, err := db.ListAttempts(jobID)
	if err != nil {
		t.Fatalf("ListAttempts() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("persisted attempts = %d, want 2", len(attempts))
	}
	for i, a := range attempts {
		if a.Number != i+1 {
			t.Errorf("attempt %d has number %d, want contiguous sequence", i, a.Number)
		}
	}
}

// TestAnswerFileUnblocksQuestion drops an answer file into the watched
// directory and checks the blocked job resumes with the answer in its
// prompt and the question persisted as human-answered.
func TestAnswerFileUnblocksQuestion(t *testing.T) {
	dir := t.TempDir()
	db := openDB(t, dir)

	cfg := config.Default()
	cfg.Gate.AnswerTimeout = 10 * time.Second

	gen := &scriptedGenerator{}
	scorer := &scriptedScorer{scores: []float64{9.0}}
	engine, err := orchestrator.NewEngine(orchestrator.RequiredConfig{
		Config:    cfg,
		Generator: gen,
		Scorer:    scorer,
	}, orchestrator.WithStateStore(db), orchestrator.WithDetector(authDetector{}))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer shutdown(t, engine)

	dropDir := answers.Dir(dir)
	watcher, err := answers.NewWatcher(dropDir, engine, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer watcher.Close()
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	jobID, err := engine.StartJob("add auth middleware", "go", 5)
	if err != nil {
		t.Fatalf("StartJob() error = %v", err)
	}

	var question models.Question
	deadline := time.After(5 * time.Second)
	for question.ID == "" {
		select {
		case event := <-engine.Events():
			if event.Type == orchestrator.EventQuestionAsked && event.Question != nil {
				question = *event.Question
			}
		case <-deadline:
			t.Fatal("no question published")
		}
	}
	if question.JobID != jobID {
		t.Fatalf("question for job %q, want %q", question.JobID, jobID)
	}

	if _, err := answers.WriteAnswer(dropDir, jobID, question.ID, "JWT"); err != nil {
		t.Fatalf("WriteAnswer() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := engine.Wait(ctx, jobID)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if status.Status != models.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", status.Status)
	}

	if prompt := gen.lastPrompt(); !strings.Contains(prompt, "JWT") {
		t.Errorf("generation prompt missing the delivered answer:\n%s", prompt)
	}

	questions, err := db.ListQuestions(jobID)
	if err != nil {
		t.Fatalf("ListQuestions() error = %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("persisted questions = %d, want 1", len(questions))
	}
	if questions[0].Status != models.QuestionAnswered || questions[0].Answer != "JWT" {
		t.Errorf("persisted question = %+v, want answered JWT", questions[0])
	}
	if questions[0].Source != models.AnswerSourceHuman {
		t.Errorf("answer source = %q, want human", questions[0].Source)
	}
}

func shutdown(t *testing.T, engine *orchestrator.Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := engine.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
