package orchestrator

import "sync"

// Registry is the concurrent map of jobs. It provides thread-safe
// insert, lookup, and removal for job goroutines and API handlers
// alike.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*job)}
}

// Add inserts a job.
func (r *Registry) Add(j *job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.data.ID] = j
}

// Get retrieves a job by ID. Returns nil if not present.
func (r *Registry) Get(jobID string) *job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[jobID]
}

// Remove deletes a job from the registry.
func (r *Registry) Remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// All returns every registered job.
func (r *Registry) All() []*job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// Count returns the number of registered jobs.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
