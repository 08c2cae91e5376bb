package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShayCichocki/anvil/pkg/models"
)

type askResult struct {
	answer string
	source models.AnswerSource
	err    error
}

// askAsync runs Ask on its own goroutine and returns the result channel.
func askAsync(ctx context.Context, g *Gate, q *models.Question, timeout time.Duration) <-chan askResult {
	done := make(chan askResult, 1)
	go func() {
		answer, source, err := g.Ask(ctx, q, timeout)
		done <- askResult{answer, source, err}
	}()
	return done
}

func waitAsk(t *testing.T, done <-chan askResult) askResult {
	t.Helper()
	select {
	case res := <-done:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("Ask never returned")
		return askResult{}
	}
}

// waitPending blocks until the job's question shows up as pending,
// which also means its answer channel is registered.
func waitPending(t *testing.T, g *Gate, jobID string) *models.Question {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q := g.PendingQuestion(jobID); q != nil {
			return q
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("question never became pending")
	return nil
}

func TestGate_AnswerResolvesAsk(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Which auth scheme?"}

	done := askAsync(context.Background(), g, q, 2*time.Second)

	pending := waitPending(t, g, "j1")
	if pending.ID != "q1" || pending.JobID != "j1" {
		t.Errorf("pending question = %+v", pending)
	}
	if pending.Status != models.QuestionPending {
		t.Errorf("pending status = %s, want pending", pending.Status)
	}

	if err := g.Answer("j1", "q1", "JWT"); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	res := waitAsk(t, done)
	if res.err != nil {
		t.Fatalf("Ask returned error: %v", res.err)
	}
	if res.answer != "JWT" || res.source != models.AnswerSourceHuman {
		t.Errorf("Ask returned (%q, %s), want (JWT, human)", res.answer, res.source)
	}

	snap := g.Snapshot("j1")
	if len(snap.Questions) != 1 {
		t.Fatalf("snapshot has %d questions, want 1", len(snap.Questions))
	}
	recorded := snap.Questions[0]
	if recorded.Status != models.QuestionAnswered || recorded.Answer != "JWT" {
		t.Errorf("recorded question = %+v", recorded)
	}
	if recorded.AnsweredAt == nil {
		t.Error("expected AnsweredAt to be set")
	}
}

func TestGate_TimeoutUsesDefault(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Storage?", Default: "SQLite"}

	res := waitAsk(t, askAsync(context.Background(), g, q, 30*time.Millisecond))

	if res.err != nil {
		t.Fatalf("Ask returned error: %v", res.err)
	}
	if res.answer != "SQLite" || res.source != models.AnswerSourceDefault {
		t.Errorf("Ask returned (%q, %s), want (SQLite, default)", res.answer, res.source)
	}

	snap := g.Snapshot("j1")
	if snap.Questions[0].Source != models.AnswerSourceDefault {
		t.Errorf("recorded source = %s, want default", snap.Questions[0].Source)
	}
}

func TestGate_TimeoutWithoutDefaultErrors(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Storage?"}

	res := waitAsk(t, askAsync(context.Background(), g, q, 30*time.Millisecond))

	if !errors.Is(res.err, ErrNoAnswer) {
		t.Fatalf("Ask error = %v, want ErrNoAnswer", res.err)
	}

	// The question stays pending; nobody ever answered it.
	pending := g.PendingQuestion("j1")
	if pending == nil || pending.ID != "q1" {
		t.Errorf("PendingQuestion = %+v, want q1 still pending", pending)
	}
}

func TestGate_CancelledContextUnblocksAsk(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Storage?", Default: "SQLite"}

	ctx, cancel := context.WithCancel(context.Background())
	done := askAsync(ctx, g, q, time.Minute)
	cancel()

	res := waitAsk(t, done)
	if !errors.Is(res.err, context.Canceled) {
		t.Fatalf("Ask error = %v, want context.Canceled", res.err)
	}
}

func TestGate_FirstAnswerWins(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Which auth scheme?"}

	done := askAsync(context.Background(), g, q, 2*time.Second)
	waitPending(t, g, "j1")

	if err := g.Answer("j1", "q1", "first"); err != nil {
		t.Fatalf("first Answer: %v", err)
	}
	if err := g.Answer("j1", "q1", "second"); err != nil {
		t.Fatalf("second Answer: %v", err)
	}

	res := waitAsk(t, done)
	if res.answer != "first" {
		t.Errorf("Ask returned %q, want the first answer", res.answer)
	}

	snap := g.Snapshot("j1")
	if snap.Questions[0].Answer != "first" {
		t.Errorf("recorded answer = %q, want first", snap.Questions[0].Answer)
	}
}

func TestGate_LateAnswerAfterDefaultIsIgnored(t *testing.T) {
	g := NewGate()
	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Storage?", Default: "SQLite"}

	res := waitAsk(t, askAsync(context.Background(), g, q, 20*time.Millisecond))
	if res.source != models.AnswerSourceDefault {
		t.Fatalf("expected default resolution, got %s", res.source)
	}

	if err := g.Answer("j1", "q1", "PostgreSQL"); err != nil {
		t.Fatalf("late Answer: %v", err)
	}

	snap := g.Snapshot("j1")
	recorded := snap.Questions[0]
	if recorded.Answer != "SQLite" || recorded.Source != models.AnswerSourceDefault {
		t.Errorf("late answer overwrote the record: %+v", recorded)
	}
}

func TestGate_AnswerUnknownTargets(t *testing.T) {
	g := NewGate()

	if err := g.Answer("missing-job", "q1", "text"); err == nil {
		t.Error("expected an error answering an unknown job")
	}

	g.AddFeedback("j1", "note")
	if err := g.Answer("j1", "missing-question", "text"); err == nil {
		t.Error("expected an error answering an unknown question")
	}
}

func TestGate_FeedbackAccumulatesInOrder(t *testing.T) {
	g := NewGate()

	g.AddFeedback("j1", "prefer table-driven tests")
	g.AddFeedback("j1", "avoid global state")

	snap := g.Snapshot("j1")
	if len(snap.Feedback) != 2 {
		t.Fatalf("snapshot has %d feedback entries, want 2", len(snap.Feedback))
	}
	if snap.Feedback[0] != "prefer table-driven tests" || snap.Feedback[1] != "avoid global state" {
		t.Errorf("feedback out of order: %v", snap.Feedback)
	}
	if snap.LastActivity.IsZero() {
		t.Error("expected last activity to be stamped")
	}
}

func TestGate_PendingQuestionLifecycle(t *testing.T) {
	g := NewGate()

	if g.PendingQuestion("j1") != nil {
		t.Error("expected no pending question for unknown job")
	}

	q := &models.Question{ID: "q1", JobID: "j1", Prompt: "Which auth scheme?"}
	done := askAsync(context.Background(), g, q, 2*time.Second)

	pending := waitPending(t, g, "j1")
	if pending.ID != "q1" {
		t.Fatalf("PendingQuestion = %+v, want q1", pending)
	}

	g.Answer("j1", "q1", "JWT")
	waitAsk(t, done)

	if g.PendingQuestion("j1") != nil {
		t.Error("expected no pending question after the answer")
	}
}

func TestGate_DropJobDiscardsConversation(t *testing.T) {
	g := NewGate()
	g.AddFeedback("j1", "note")

	g.DropJob("j1")

	if _, ok := g.LastActivity("j1"); ok {
		t.Error("expected conversation to be gone after DropJob")
	}
	snap := g.Snapshot("j1")
	if len(snap.Feedback) != 0 || len(snap.Questions) != 0 {
		t.Errorf("snapshot after drop = %+v", snap)
	}
}
