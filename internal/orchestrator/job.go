package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ShayCichocki/anvil/pkg/models"
)

// job is the runtime state for one orchestrated job. The job's loop
// goroutine is the only writer; external readers go through snapshot
// methods that copy.
type job struct {
	mu   sync.Mutex
	data models.Job
	tier models.Tier

	history *History
	cancel  context.CancelFunc
	done    chan struct{}

	// finishedAt is set when the job enters a terminal state, for
	// retention-based cleanup.
	finishedAt time.Time
}

func newJob(data models.Job, cancel context.CancelFunc) *job {
	return &job{
		data:    data,
		tier:    models.TierLocal,
		history: NewHistory(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// snapshot returns a copy of the job record, including a copied result.
func (j *job) snapshot() models.Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	data := j.data
	if j.data.Result != nil {
		result := *j.data.Result
		data.Result = &result
	}
	return data
}

// currentTier returns the tier hint in effect for the next attempt.
func (j *job) currentTier() models.Tier {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.tier
}

// setTier records an escalated tier hint.
func (j *job) setTier(tier models.Tier) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.tier = tier
}

// markRunning moves the job from pending to running.
func (j *job) markRunning() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.transitionLocked(models.JobStatusRunning)
}

// finish moves the job to a terminal state exactly once and records
// its result. Calling finish on an already terminal job is a bug.
func (j *job) finish(status models.JobStatus, result *models.JobResult) {
	j.mu.Lock()
	j.transitionLocked(status)
	j.data.Result = result
	j.finishedAt = time.Now()
	j.mu.Unlock()

	close(j.done)
}

// terminal reports whether the job has reached a final state.
func (j *job) terminal() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data.Status.Terminal()
}

// terminalSince returns when the job finished, or false if it has not.
func (j *job) terminalSince() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.data.Status.Terminal() {
		return time.Time{}, false
	}
	return j.finishedAt, true
}

// transitionLocked enforces the forward-only state machine. A backward
// or terminal-escaping transition indicates a bug in the loop and
// panics rather than corrupting state.
func (j *job) transitionLocked(to models.JobStatus) {
	from := j.data.Status
	if from.Terminal() {
		panic(fmt.Sprintf("job %s: transition out of terminal state %s to %s", j.data.ID, from, to))
	}
	if from == models.JobStatusRunning && to == models.JobStatusPending {
		panic(fmt.Sprintf("job %s: backward transition %s to %s", j.data.ID, from, to))
	}
	j.data.Status = to
}
