package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ShayCichocki/anvil/internal/config"
	"github.com/ShayCichocki/anvil/pkg/models"
)

var (
	// ErrJobNotFound is returned when a job id is unknown to the registry.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned for operations that require a live job.
	ErrJobTerminal = errors.New("job already terminal")
	// ErrJobNotTerminal is returned when a result is requested before
	// the job has finished.
	ErrJobNotTerminal = errors.New("job not terminal")
	// ErrNoAnswer is returned by the gate when a question times out and
	// has no default answer.
	ErrNoAnswer = errors.New("no answer before timeout")
	// ErrShuttingDown is returned for submissions after Shutdown began.
	ErrShuttingDown = errors.New("engine shutting down")
)

// RequiredConfig holds the dependencies an Engine cannot run without.
type RequiredConfig struct {
	// Config supplies policy thresholds, budget ceilings, and job limits.
	Config *config.Config
	// Generator produces artifacts for attempts.
	Generator Generator
	// Scorer grades artifacts.
	Scorer Scorer
	// Logger receives engine logs. Nil means no logging.
	Logger *zap.Logger
}

type engineOptions struct {
	searcher    Searcher
	detector    AmbiguityDetector
	store       StateStore
	registerer  prometheus.Registerer
	eventBuffer int
}

// Option customizes optional Engine dependencies.
type Option func(*engineOptions)

// WithSearcher wires a knowledge searcher into prompt assembly.
func WithSearcher(s Searcher) Option {
	return func(o *engineOptions) { o.searcher = s }
}

// WithDetector wires an ambiguity detector for pre-attempt questions.
func WithDetector(d AmbiguityDetector) Option {
	return func(o *engineOptions) { o.detector = d }
}

// WithStateStore wires a persistence store for job lifecycle changes.
func WithStateStore(s StateStore) Option {
	return func(o *engineOptions) { o.store = s }
}

// WithMetrics registers engine metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *engineOptions) { o.registerer = reg }
}

// WithEventBuffer sizes the event stream buffer.
func WithEventBuffer(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.eventBuffer = n
		}
	}
}

// Engine owns every job from submission to terminal state. Each job
// runs its attempt loop on its own goroutine, bounded by a concurrency
// semaphore; the engine itself only coordinates.
type Engine struct {
	cfg    *config.Config
	policy *Policy
	alloc  Allocation

	gen      Generator
	scorer   Scorer
	searcher Searcher
	detector AmbiguityDetector
	store    StateStore

	registry *Registry
	gate     *Gate
	emitter  *Emitter
	metrics  *Metrics
	logger   *zap.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
	closeOnce  sync.Once
}

// NewEngine builds an Engine from required dependencies plus options.
func NewEngine(req RequiredConfig, opts ...Option) (*Engine, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if req.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if req.Scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	alloc, err := NewAllocation(req.Config.Budget)
	if err != nil {
		return nil, fmt.Errorf("building prompt budget: %w", err)
	}

	options := engineOptions{eventBuffer: 256}
	for _, opt := range opts {
		opt(&options)
	}

	maxConcurrent := req.Config.Jobs.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:        req.Config,
		policy:     NewPolicy(req.Config.Policy),
		alloc:      alloc,
		gen:        req.Generator,
		scorer:     req.Scorer,
		searcher:   options.searcher,
		detector:   options.detector,
		store:      options.store,
		registry:   NewRegistry(),
		gate:       NewGate(),
		emitter:    NewEmitter(options.eventBuffer, logger),
		metrics:    NewMetrics(options.registerer),
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}, nil
}

// Status is a point-in-time view of one job, safe to serialize.
type Status struct {
	JobID           string            `json:"job_id"`
	Task            string            `json:"task"`
	Language        string            `json:"language"`
	Status          models.JobStatus  `json:"status"`
	CurrentAttempt  int               `json:"current_attempt"`
	LastScore       float64           `json:"last_score"`
	Tier            models.Tier       `json:"tier"`
	MaxIterations   int               `json:"max_iterations"`
	CreatedAt       time.Time         `json:"created_at"`
	PendingQuestion *models.Question  `json:"pending_question,omitempty"`
	Result          *models.JobResult `json:"result,omitempty"`
	Attempts        []models.Attempt  `json:"attempts,omitempty"`
}

// StartJob registers a new job and launches its attempt loop. The
// returned id is usable immediately for status, answers, and
// cancellation.
func (e *Engine) StartJob(task, language string, maxIterations int) (string, error) {
	if e.rootCtx.Err() != nil {
		return "", ErrShuttingDown
	}
	if task == "" {
		return "", fmt.Errorf("task must not be empty")
	}
	if language == "" {
		language = "go"
	}
	if maxIterations <= 0 {
		maxIterations = e.cfg.Policy.MaxIterations
	}

	data := models.Job{
		ID:            uuid.NewString(),
		Task:          task,
		Language:      language,
		Status:        models.JobStatusPending,
		MaxIterations: maxIterations,
		CreatedAt:     time.Now(),
	}

	jobCtx, cancel := context.WithCancel(e.rootCtx)
	j := newJob(data, cancel)
	e.registry.Add(j)
	e.persistJob(&data)

	e.logger.Info("job submitted",
		zap.String("job_id", data.ID),
		zap.String("language", language),
		zap.Int("max_iterations", maxIterations))

	e.wg.Add(1)
	go e.runJob(jobCtx, j)

	return data.ID, nil
}

// GetStatus returns the full status of one job, including attempts.
func (e *Engine) GetStatus(jobID string) (Status, error) {
	j := e.registry.Get(jobID)
	if j == nil {
		return Status{}, ErrJobNotFound
	}
	return e.statusOf(j, true), nil
}

// ListJobs returns a light status for every registered job, newest
// first.
func (e *Engine) ListJobs() []Status {
	jobs := e.registry.All()
	out := make([]Status, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, e.statusOf(j, false))
	}
	return out
}

func (e *Engine) statusOf(j *job, includeAttempts bool) Status {
	data := j.snapshot()
	st := Status{
		JobID:           data.ID,
		Task:            data.Task,
		Language:        data.Language,
		Status:          data.Status,
		Tier:            j.currentTier(),
		MaxIterations:   data.MaxIterations,
		CreatedAt:       data.CreatedAt,
		PendingQuestion: e.gate.PendingQuestion(data.ID),
		Result:          data.Result,
	}
	if latest, ok := j.history.Latest(); ok {
		st.CurrentAttempt = latest.Number
		st.LastScore = latest.Score
	}
	if includeAttempts {
		st.Attempts = j.history.Snapshot()
	}
	return st
}

// CancelJob requests cancellation of a live job. The loop observes the
// cancellation at its next checkpoint; the job lands in cancelled with
// a best-effort result.
func (e *Engine) CancelJob(jobID string) error {
	j := e.registry.Get(jobID)
	if j == nil {
		return ErrJobNotFound
	}
	if j.terminal() {
		return ErrJobTerminal
	}
	e.logger.Info("job cancellation requested", zap.String("job_id", jobID))
	j.cancel()
	return nil
}

// SubmitAnswer delivers a human answer to a pending question.
func (e *Engine) SubmitAnswer(jobID, questionID, answer string) error {
	if e.registry.Get(jobID) == nil {
		return ErrJobNotFound
	}
	return e.gate.Answer(jobID, questionID, answer)
}

// SubmitFeedback records an out-of-band reviewer message for a live
// job. The message joins the overview section of subsequent prompts.
func (e *Engine) SubmitFeedback(jobID, message string) error {
	j := e.registry.Get(jobID)
	if j == nil {
		return ErrJobNotFound
	}
	if j.terminal() {
		return ErrJobTerminal
	}
	if message == "" {
		return fmt.Errorf("feedback must not be empty")
	}
	e.gate.AddFeedback(jobID, message)
	return nil
}

// Result returns the terminal result of a finished job without
// blocking.
func (e *Engine) Result(jobID string) (*models.JobResult, error) {
	j := e.registry.Get(jobID)
	if j == nil {
		return nil, ErrJobNotFound
	}
	data := j.snapshot()
	if !data.Status.Terminal() {
		return nil, ErrJobNotTerminal
	}
	return data.Result, nil
}

// Wait blocks until the job reaches a terminal state or ctx is done,
// then returns the job's final status.
func (e *Engine) Wait(ctx context.Context, jobID string) (Status, error) {
	j := e.registry.Get(jobID)
	if j == nil {
		return Status{}, ErrJobNotFound
	}
	select {
	case <-j.done:
		return e.statusOf(j, true), nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Events returns the engine's event stream.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// CleanupTerminal drops terminal jobs older than the given retention
// from the registry and gate, returning how many were removed. A
// non-positive retention removes every terminal job.
func (e *Engine) CleanupTerminal(olderThan time.Duration) int {
	removed := 0
	for _, j := range e.registry.All() {
		since, ok := j.terminalSince()
		if !ok {
			continue
		}
		if olderThan > 0 && time.Since(since) < olderThan {
			continue
		}
		data := j.snapshot()
		e.registry.Remove(data.ID)
		e.gate.DropJob(data.ID)
		removed++
	}
	if removed > 0 {
		e.logger.Info("terminal jobs cleaned up", zap.Int("removed", removed))
	}
	return removed
}

// CleanupIdleConversations drops conversation state that has been
// inactive past idleAfter, returning how many conversations went. Only
// finished jobs are swept; a running loop still folds its answers and
// feedback into every prompt.
func (e *Engine) CleanupIdleConversations(idleAfter time.Duration) int {
	if idleAfter <= 0 {
		return 0
	}
	dropped := 0
	for _, j := range e.registry.All() {
		if !j.terminal() {
			continue
		}
		data := j.snapshot()
		last, ok := e.gate.LastActivity(data.ID)
		if !ok || time.Since(last) < idleAfter {
			continue
		}
		e.gate.DropJob(data.ID)
		dropped++
	}
	if dropped > 0 {
		e.logger.Info("idle conversations dropped", zap.Int("dropped", dropped))
	}
	return dropped
}

// Shutdown cancels all running jobs and waits for their loops to
// finish, bounded by ctx. The event stream closes once all loops have
// stopped.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.rootCancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.closeOnce.Do(e.emitter.Close)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for job loops: %w", ctx.Err())
	}
}
