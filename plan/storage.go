package plan

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Storage archives finished or superseded plans keyed by ID.
//
// Implementations store and return copies: a plan handed to Add is never
// the instance Get later returns. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Add stores plan under its ID. When override is false and the ID is
	// already stored, Add returns ErrPlanExists.
	Add(ctx context.Context, plan *Plan, override bool) error

	// Delete removes a plan. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every stored plan.
	List(ctx context.Context) ([]*Plan, error)

	// Get returns the plan with the given ID, or nil when absent.
	Get(ctx context.Context, id string) (*Plan, error)
}

// MemoryStorage keeps plans in memory in insertion order. Overriding a
// plan keeps its original position.
type MemoryStorage struct {
	mu    sync.RWMutex
	order []string
	plans map[string]*Plan
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{plans: make(map[string]*Plan)}
}

func (m *MemoryStorage) Add(_ context.Context, plan *Plan, override bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plans[plan.ID]; exists {
		if !override {
			return fmt.Errorf("%w: %s", ErrPlanExists, plan.ID)
		}
	} else {
		m.order = append(m.order, plan.ID)
	}

	m.plans[plan.ID] = plan.Clone()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.plans[id]; !exists {
		return nil
	}
	delete(m.plans, id)
	m.order = slices.DeleteFunc(m.order, func(o string) bool { return o == id })
	return nil
}

func (m *MemoryStorage) List(_ context.Context) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plans := make([]*Plan, len(m.order))
	for i, id := range m.order {
		plans[i] = m.plans[id].Clone()
	}
	return plans, nil
}

func (m *MemoryStorage) Get(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.plans[id].Clone(), nil
}
