package bank

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/rcliao/smart-memory/internal/chunker"
	"github.com/rcliao/smart-memory/internal/model"
)

// StoreDocument splits a markdown document into sections and stores each as
// its own entry. Sections record their position in the "section" and "lines"
// metadata keys.
func (s *Service) StoreDocument(ctx context.Context, p EntryParams, opts chunker.Options) ([]model.Memory, error) {
	sections := chunker.Split(p.Content, s.store.Tokenizer(), opts)
	if len(sections) == 0 {
		return nil, fmt.Errorf("store document: content is empty")
	}

	stored := make([]model.Memory, 0, len(sections))
	for i, sec := range sections {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		entry := p
		entry.Content = sec.Text
		entry.Metadata = maps.Clone(p.Metadata)
		if len(sections) > 1 {
			if entry.Metadata == nil {
				entry.Metadata = make(map[string]string, 2)
			}
			entry.Metadata["section"] = strconv.Itoa(i+1) + "/" + strconv.Itoa(len(sections))
			entry.Metadata["lines"] = fmt.Sprintf("%d-%d", sec.StartLine, sec.EndLine)
		}
		m, err := s.StoreEntry(ctx, entry)
		if err != nil {
			return stored, err
		}
		stored = append(stored, m)
	}
	s.logger.Debug("stored document", "category", p.Category, "sections", len(stored))
	return stored, nil
}
