package bank

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rcliao/smart-memory/internal/config"
	"github.com/rcliao/smart-memory/internal/model"
)

// Uncategorized groups memories stored without a category.
const Uncategorized = "uncategorized"

// CategoryStats summarizes one category.
type CategoryStats struct {
	Category    string           `json:"category"`
	Memories    int              `json:"memories"`
	Tokens      model.TokenCount `json:"tokens"`
	MaxTokens   model.TokenCount `json:"max_tokens"`
	Priority    config.Priority  `json:"priority"`
	OverBudget  bool             `json:"over_budget"`
	LastUpdated time.Time        `json:"last_updated"`
}

// Stats summarizes the memory bank.
type Stats struct {
	TotalMemories int              `json:"total_memories"`
	TotalTokens   model.TokenCount `json:"total_tokens"`
	Budget        model.TokenCount `json:"budget"`
	Categories    []CategoryStats  `json:"categories"`
}

// Stats reports per-category usage against the configured budgets. Every
// configured category is listed, even when empty. Memories are read without
// counting as an access.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	memories, err := s.store.ExportAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read memories: %w", err)
	}

	byCat := make(map[string]*CategoryStats)
	get := func(name string) *CategoryStats {
		cs, ok := byCat[name]
		if !ok {
			cs = &CategoryStats{
				Category:  name,
				MaxTokens: s.cfg.MaxTokens(name),
				Priority:  s.cfg.Priority(name),
			}
			byCat[name] = cs
		}
		return cs
	}
	for _, name := range s.cfg.CategoryNames() {
		get(name)
	}

	st := &Stats{Budget: model.NewTokenCount(s.cfg.TokenBudget.Total)}
	for _, m := range memories {
		name := m.Category
		if name == "" {
			name = Uncategorized
		}
		cs := get(name)
		cs.Memories++
		cs.Tokens += m.TokenCount
		if m.CreatedAt.After(cs.LastUpdated) {
			cs.LastUpdated = m.CreatedAt
		}
		st.TotalMemories++
		st.TotalTokens += m.TokenCount
	}

	st.Categories = make([]CategoryStats, 0, len(byCat))
	for _, cs := range byCat {
		cs.OverBudget = cs.Tokens > cs.MaxTokens
		st.Categories = append(st.Categories, *cs)
	}
	slices.SortFunc(st.Categories, func(a, b CategoryStats) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return st, nil
}
