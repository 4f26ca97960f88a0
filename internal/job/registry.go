package job

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds jobs by name. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRegistry returns a registry holding jobs.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		if err := r.Register(j); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a job. Returns ErrDuplicateJob if the name is taken.
func (r *Registry) Register(j Job) error {
	if err := j.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[j.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, j.Name)
	}
	r.jobs[j.Name] = j
	return nil
}

// Get returns a job by name.
func (r *Registry) Get(name string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[name]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return j, nil
}

// All returns every job sorted by name.
func (r *Registry) All() []Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		result = append(result, j)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].Name < result[k].Name
	})
	return result
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
