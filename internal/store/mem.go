package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rcliao/smart-memory/internal/model"
)

// MemRepository keeps memories in a map. Nothing is persisted.
type MemRepository struct {
	mu       sync.RWMutex
	memories map[model.MemoryID]model.Memory
}

// NewMemRepository returns an empty in-memory repository.
func NewMemRepository() *MemRepository {
	return &MemRepository{memories: make(map[model.MemoryID]model.Memory)}
}

func (r *MemRepository) Store(_ context.Context, m model.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories[m.ID] = m.Clone()
	return nil
}

func (r *MemRepository) Retrieve(_ context.Context, id model.MemoryID) (model.Memory, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memories[id]
	if !ok {
		return model.Memory{}, false, nil
	}
	return m.Clone(), true, nil
}

func (r *MemRepository) Touch(_ context.Context, id model.MemoryID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memories[id]; ok {
		m.Touch(at)
		r.memories[id] = m
	}
	return nil
}

// AllIDs returns ids in sorted order. Minted ids sort by creation time.
func (r *MemRepository) AllIDs(_ context.Context) ([]model.MemoryID, error) {
	r.mu.RLock()
	ids := make([]model.MemoryID, 0, len(r.memories))
	for id := range r.memories {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	slices.Sort(ids)
	return ids, nil
}

func (r *MemRepository) TotalTokens(_ context.Context) (model.TokenCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total model.TokenCount
	for _, m := range r.memories {
		total += m.TokenCount
	}
	return total, nil
}

func (r *MemRepository) Close() error { return nil }
