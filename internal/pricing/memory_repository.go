package pricing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing and config-file deployments.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory pricing profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// Get retrieves a profile by name.
func (r *InMemoryRepository) Get(_ context.Context, name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return nil, ErrProfileNotFound
	}

	cpy := *p
	cpy.Config = p.Config.clone()
	return &cpy, nil
}

// Save creates or replaces a profile after validating its config.
func (r *InMemoryRepository) Save(_ context.Context, profile *Profile) error {
	if err := profile.Config.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *profile
	cpy.Config = profile.Config.clone()
	if cpy.UpdatedAt.IsZero() {
		cpy.UpdatedAt = time.Now()
	}
	r.profiles[profile.Name] = &cpy
	return nil
}

// List returns all profile names in ascending order.
func (r *InMemoryRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
