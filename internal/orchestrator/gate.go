package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// conversation is the per-job question/answer state. Created on first
// use, destroyed with the job.
type conversation struct {
	questions    map[string]*models.Question
	feedback     []string
	lastActivity time.Time
}

// ConversationSnapshot is a read-only copy of a job's conversation
// state, safe to hand to pollers and prompt assembly.
type ConversationSnapshot struct {
	// Questions holds every question asked so far, oldest first.
	Questions []models.Question
	// Feedback holds out-of-band reviewer messages, oldest first.
	Feedback []string
	// LastActivity is when the conversation last changed.
	LastActivity time.Time
}

// Answered returns the answered questions in ask order.
func (s ConversationSnapshot) Answered() []models.Question {
	var out []models.Question
	for _, q := range s.Questions {
		if q.Status == models.QuestionAnswered {
			out = append(out, q)
		}
	}
	return out
}

// Gate coordinates blocking question/answer exchanges between job
// goroutines and external transports. A job goroutine calls Ask and
// blocks; the engine announces the question on its event stream, and
// transports deliver the reply through Answer.
type Gate struct {
	mu      sync.RWMutex
	convos  map[string]*conversation
	pending map[string]chan string
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{
		convos:  make(map[string]*conversation),
		pending: make(map[string]chan string),
	}
}

func pendingKey(jobID, questionID string) string {
	return jobID + "/" + questionID
}

// Ask records q as pending and blocks until whichever comes first of
// an answer arriving, the timeout elapsing, or ctx being done. On
// timeout the question's default answer is used if it has one;
// otherwise Ask returns ErrNoAnswer. The wait never spins.
func (g *Gate) Ask(ctx context.Context, q *models.Question, timeout time.Duration) (string, models.AnswerSource, error) {
	if q.ID == "" || q.JobID == "" {
		return "", "", fmt.Errorf("question missing id or job id")
	}

	q.Status = models.QuestionPending
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now()
	}

	responseCh := make(chan string, 1)
	key := pendingKey(q.JobID, q.ID)

	g.mu.Lock()
	convo := g.ensureConversationLocked(q.JobID)
	convo.questions[q.ID] = q
	convo.lastActivity = time.Now()
	g.pending[key] = responseCh
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.pending, key)
		g.mu.Unlock()
	}()

	select {
	case answer := <-responseCh:
		g.resolve(q.JobID, q.ID, answer, models.AnswerSourceHuman)
		return answer, models.AnswerSourceHuman, nil
	case <-time.After(timeout):
		if q.Default != "" {
			g.resolve(q.JobID, q.ID, q.Default, models.AnswerSourceDefault)
			return q.Default, models.AnswerSourceDefault, nil
		}
		return "", "", ErrNoAnswer
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

// Answer routes an answer to a waiting question. Answers to already
// answered questions are ignored; unknown jobs or questions error.
func (g *Gate) Answer(jobID, questionID, text string) error {
	g.mu.Lock()
	convo, ok := g.convos[jobID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("no conversation for job %s", jobID)
	}
	q, ok := convo.questions[questionID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("unknown question %s for job %s", questionID, jobID)
	}
	convo.lastActivity = time.Now()
	if q.Status == models.QuestionAnswered {
		g.mu.Unlock()
		return nil
	}
	ch, waiting := g.pending[pendingKey(jobID, questionID)]
	g.mu.Unlock()

	if waiting {
		select {
		case ch <- text:
		default:
			// Buffer full: an answer is already in flight, this one loses.
		}
	}
	return nil
}

// AddFeedback appends an out-of-band feedback message for a job. The
// next prompt assembly picks it up.
func (g *Gate) AddFeedback(jobID, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	convo := g.ensureConversationLocked(jobID)
	convo.feedback = append(convo.feedback, text)
	convo.lastActivity = time.Now()
}

// PendingQuestion returns a copy of the oldest unanswered question for
// the job, or nil if none is pending.
func (g *Gate) PendingQuestion(jobID string) *models.Question {
	g.mu.RLock()
	defer g.mu.RUnlock()

	convo, ok := g.convos[jobID]
	if !ok {
		return nil
	}
	var oldest *models.Question
	for _, q := range convo.questions {
		if q.Status != models.QuestionPending {
			continue
		}
		if oldest == nil || q.CreatedAt.Before(oldest.CreatedAt) {
			oldest = q
		}
	}
	if oldest == nil {
		return nil
	}
	copied := *oldest
	return &copied
}

// Snapshot returns a copy of the job's conversation state.
func (g *Gate) Snapshot(jobID string) ConversationSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var snap ConversationSnapshot
	convo, ok := g.convos[jobID]
	if !ok {
		return snap
	}
	for _, q := range convo.questions {
		snap.Questions = append(snap.Questions, *q)
	}
	sort.Slice(snap.Questions, func(i, j int) bool {
		a, b := snap.Questions[i], snap.Questions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	snap.Feedback = append(snap.Feedback, convo.feedback...)
	snap.LastActivity = convo.lastActivity
	return snap
}

// LastActivity returns when the job's conversation last changed, or
// false if the job has no conversation.
func (g *Gate) LastActivity(jobID string) (time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	convo, ok := g.convos[jobID]
	if !ok {
		return time.Time{}, false
	}
	return convo.lastActivity, true
}

// DropJob destroys the job's conversation state and any pending waits.
func (g *Gate) DropJob(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.convos, jobID)
	prefix := jobID + "/"
	for key := range g.pending {
		if strings.HasPrefix(key, prefix) {
			delete(g.pending, key)
		}
	}
}

// resolve marks a question answered exactly once. Later calls for the
// same question are no-ops, which keeps answers immutable.
func (g *Gate) resolve(jobID, questionID, text string, source models.AnswerSource) {
	g.mu.Lock()
	defer g.mu.Unlock()

	convo, ok := g.convos[jobID]
	if !ok {
		return
	}
	q, ok := convo.questions[questionID]
	if !ok || q.Status == models.QuestionAnswered {
		return
	}

	now := time.Now()
	q.Status = models.QuestionAnswered
	q.Answer = text
	q.Source = source
	q.AnsweredAt = &now
	convo.lastActivity = now
}

func (g *Gate) ensureConversationLocked(jobID string) *conversation {
	convo, ok := g.convos[jobID]
	if !ok {
		convo = &conversation{questions: make(map[string]*models.Question)}
		g.convos[jobID] = convo
	}
	return convo
}
