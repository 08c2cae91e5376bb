package orchestrator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventJobStarted indicates a job's loop has begun running.
	EventJobStarted EventType = "job_started"
	// EventAttemptStarted indicates a generation attempt has begun.
	EventAttemptStarted EventType = "attempt_started"
	// EventAttemptScored indicates an attempt was scored and appended.
	EventAttemptScored EventType = "attempt_scored"
	// EventEscalated indicates the tier hint moved up for the next attempt.
	EventEscalated EventType = "escalated"
	// EventQuestionAsked indicates a clarifying question was published.
	EventQuestionAsked EventType = "question_asked"
	// EventQuestionAnswered indicates a question received its answer.
	EventQuestionAnswered EventType = "question_answered"
	// EventJobCompleted indicates a job finished with an accepted result.
	EventJobCompleted EventType = "job_completed"
	// EventJobFailed indicates a job finished without an accepted result.
	EventJobFailed EventType = "job_failed"
	// EventJobCancelled indicates a job was cancelled.
	EventJobCancelled EventType = "job_cancelled"
)

// Event is one engine occurrence, consumed by the server's websocket
// stream and the watch TUI.
type Event struct {
	// Type is the kind of event.
	Type EventType `json:"type"`
	// JobID is the related job.
	JobID string `json:"job_id"`
	// Attempt is the related attempt number, if applicable.
	Attempt int `json:"attempt,omitempty"`
	// Tier is the related cost tier, if applicable.
	Tier models.Tier `json:"tier,omitempty"`
	// Score is the related attempt score, for scored events.
	Score float64 `json:"score,omitempty"`
	// Message provides additional context about the event.
	Message string `json:"message,omitempty"`
	// Question carries the published question for question events.
	Question *models.Question `json:"question,omitempty"`
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter fans engine events out to one subscriber channel. Emission
// never blocks a job goroutine for long: a full channel gets a short
// grace period, then the event is dropped and counted.
type Emitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	logger       *zap.Logger
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int, logger *zap.Logger) *Emitter {
	return &Emitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit sends an event, stamping its timestamp if unset. If the channel
// stays full past a short grace period the event is dropped.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			e.logger.Warn("event channel full, event dropped",
				zap.String("type", string(event.Type)),
				zap.Uint64("total_dropped", count))
		}
	}
}

// DroppedCount returns the total number of events dropped so far.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only event stream.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the event stream. Call only after all job goroutines
// have stopped.
func (e *Emitter) Close() {
	close(e.events)
}
