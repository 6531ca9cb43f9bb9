package store

import (
	"context"
	"fmt"

	"github.com/rcliao/smart-memory/internal/model"
)

// ExportAll returns every memory, read straight from the repository so access
// times are left untouched.
func (s *MemoryStore) ExportAll(ctx context.Context) ([]model.Memory, error) {
	ids, err := s.AllIDs(ctx)
	if err != nil {
		return nil, err
	}

	memories := make([]model.Memory, 0, len(ids))
	for _, id := range ids {
		m, ok, err := s.repo.Retrieve(ctx, id)
		if err != nil {
			return nil, opErr("export", id, err)
		}
		if ok {
			memories = append(memories, m)
		}
	}
	return memories, nil
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import writes exported memories back verbatim, keeping ids, token counts and
// timestamps. Memories whose id already exists are skipped so an id is never
// reassigned to different content. The batch is validated before anything is
// written.
func (s *MemoryStore) Import(ctx context.Context, memories []model.Memory) (ImportResult, error) {
	var res ImportResult
	for i, m := range memories {
		if m.ID == "" {
			return res, fmt.Errorf("import: memory %d has no id", i)
		}
		if m.TokenCount < 0 {
			return res, fmt.Errorf("import: memory %s has negative token count %d", m.ID, m.TokenCount)
		}
	}

	for _, m := range memories {
		_, exists, err := s.repo.Retrieve(ctx, m.ID)
		if err != nil {
			return res, opErr("import", m.ID, err)
		}
		if exists {
			s.logger.Debug("import skipped existing memory", "id", m.ID)
			res.Skipped++
			continue
		}
		if m.LastAccessed.Before(m.CreatedAt) {
			m.LastAccessed = m.CreatedAt
		}
		if err := s.repo.Store(ctx, m.Clone()); err != nil {
			return res, opErr("import", m.ID, err)
		}
		res.Imported++
	}
	return res, nil
}
