package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/smart-memory/internal/model"
)

// UMBParams is the input of an update-memory-bank command.
type UMBParams struct {
	Mode     string
	Context  string
	Metadata map[string]string
}

// UMBResult reports which categories received the context.
type UMBResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Updated []string         `json:"updated_categories"`
	IDs     []model.MemoryID `json:"ids"`
	Tokens  model.TokenCount `json:"tokens"`
}

// UMB stores the context as an entry in each of UMBCategories. A failure in
// one category is logged and the rest are still written; an error is returned
// only when the command is disabled or every category failed.
func (s *Service) UMB(ctx context.Context, p UMBParams) (*UMBResult, error) {
	if !s.cfg.UpdateTriggers.UMBCommand {
		return nil, ErrUMBDisabled
	}

	res := &UMBResult{}
	var errs []error
	for _, cat := range UMBCategories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.StoreEntry(ctx, EntryParams{
			Content:  p.Context,
			Category: cat,
			Mode:     p.Mode,
			Metadata: p.Metadata,
		})
		if err != nil {
			s.logger.Warn("umb category update failed", "category", cat, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", cat, err))
			continue
		}
		res.Updated = append(res.Updated, cat)
		res.IDs = append(res.IDs, m.ID)
		res.Tokens += m.TokenCount
	}

	if len(res.Updated) == 0 {
		return nil, fmt.Errorf("update memory bank: %w", errors.Join(errs...))
	}
	res.Success = true
	res.Message = fmt.Sprintf("updated %d of %d categories", len(res.Updated), len(UMBCategories))
	s.logger.Info("memory bank updated", "categories", res.Updated)
	return res, nil
}
