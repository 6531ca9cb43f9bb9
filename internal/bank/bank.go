// Package bank assembles relevance-ranked, token-bounded context from a
// MemoryStore and implements the memory bank operations on top of it.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/rcliao/smart-memory/internal/config"
	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/optimizer"
	"github.com/rcliao/smart-memory/internal/relevance"
	"github.com/rcliao/smart-memory/internal/store"
)

// ContentTypeMarkdown is the content type of memory bank entries.
const ContentTypeMarkdown = "text/markdown"

// UMBCategories receive a copy of the context on every UMB command.
var UMBCategories = []string{"context", "decision", "progress"}

// ErrUMBDisabled is returned when the config turns the UMB trigger off.
var ErrUMBDisabled = errors.New("umb command disabled by configuration")

// Service ties a store, a scorer and an optimizer together under one config.
type Service struct {
	store     *store.MemoryStore
	scorer    relevance.Scorer
	optimizer optimizer.Optimizer
	cfg       *config.MemoryBankConfig
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithScorer replaces the default TF-IDF scorer.
func WithScorer(s relevance.Scorer) Option {
	return func(svc *Service) { svc.scorer = s }
}

// WithOptimizer replaces the default token budget optimizer.
func WithOptimizer(o optimizer.Optimizer) Option {
	return func(svc *Service) { svc.optimizer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// NewService returns a Service. A nil cfg means config.Default().
func NewService(st *store.MemoryStore, cfg *config.MemoryBankConfig, opts ...Option) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	svc := &Service{
		store:     st,
		scorer:    relevance.NewTFIDFScorer(),
		optimizer: optimizer.NewTokenBudget(),
		cfg:       cfg,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Config returns the service configuration.
func (s *Service) Config() *config.MemoryBankConfig { return s.cfg }

// Store returns the underlying memory store.
func (s *Service) Store() *store.MemoryStore { return s.store }

// ContextParams selects and bounds an assembled context.
type ContextParams struct {
	Mode  string
	Query string
	// MaxTokens <= 0 uses token_budget.total.
	MaxTokens int
	// Threshold nil uses relevance.threshold.
	Threshold *float64
	// Categories, when non-empty, keeps only memories in one of them.
	Categories []string
	// Date, when set, keeps only memories whose "date" metadata equals it.
	Date string
	// SourceByCategory labels sources with the category instead of the content type.
	SourceByCategory bool
}

// Source is the provenance of one memory in a Bundle.
type Source struct {
	ID    model.MemoryID  `json:"id"`
	Type  string          `json:"type"`
	Score relevance.Score `json:"relevance"`
}

// Bundle is an assembled context.
type Bundle struct {
	Context        string           `json:"context"`
	TokenCount     model.TokenCount `json:"token_count"`
	RelevanceScore relevance.Score  `json:"relevance_score"`
	Sources        []Source         `json:"sources"`
}

// Context retrieves every memory, scores them for the mode, fits the best into
// the budget and assembles the result. Retrieval counts as an access for each
// memory read. Cancellation is checked between memories.
func (s *Service) Context(ctx context.Context, p ContextParams) (*Bundle, error) {
	memories, err := s.collect(ctx, p.Categories, p.Date)
	if err != nil {
		return nil, err
	}

	maxTokens := model.NewTokenCount(p.MaxTokens)
	if p.MaxTokens <= 0 {
		maxTokens = model.NewTokenCount(s.cfg.TokenBudget.Total)
	}
	threshold := s.cfg.Relevance.Threshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}

	scored := s.scorer.ScoreMemories(memories, p.Mode, p.Query)
	selected := s.optimizer.Optimize(scored, maxTokens, relevance.NewScore(threshold))
	b := Assemble(selected, p.SourceByCategory)

	s.logger.Debug("assembled context",
		"mode", p.Mode, "candidates", len(memories), "selected", len(selected),
		"tokens", b.TokenCount, "budget", maxTokens, "threshold", threshold)
	return b, nil
}

func (s *Service) collect(ctx context.Context, categories []string, date string) ([]model.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids, err := s.store.AllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	var memories []model.Memory
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, ok, err := s.store.Retrieve(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("retrieve memory: %w", err)
		}
		if !ok || !matches(m, categories, date) {
			continue
		}
		memories = append(memories, m)
	}
	return memories, nil
}

func matches(m model.Memory, categories []string, date string) bool {
	if len(categories) > 0 && (m.Category == "" || !slices.Contains(categories, m.Category)) {
		return false
	}
	if date != "" && m.Metadata["date"] != date {
		return false
	}
	return true
}

// Assemble concatenates the selected memories, each followed by a blank line,
// and reports their token total, the first memory's score and per-memory
// provenance.
func Assemble(selected []relevance.ScoredMemory, sourceByCategory bool) *Bundle {
	b := &Bundle{Sources: make([]Source, 0, len(selected))}
	var sb strings.Builder
	for _, sm := range selected {
		sb.WriteString(sm.Memory.Content)
		sb.WriteString("\n\n")

		typ := sm.Memory.ContentType
		if sourceByCategory {
			typ = sm.Memory.Category
		}
		b.Sources = append(b.Sources, Source{ID: sm.Memory.ID, Type: typ, Score: sm.Score})
		b.TokenCount += sm.Memory.TokenCount
	}
	b.Context = sb.String()
	if len(selected) > 0 {
		b.RelevanceScore = selected[0].Score
	}
	return b
}

// EntryParams holds a memory bank entry.
type EntryParams struct {
	Content  string
	Category string
	Mode     string
	// Date is recorded as the "date" metadata key when set.
	Date     string
	Metadata map[string]string
}

// StoreEntry stores a markdown memory bank entry.
func (s *Service) StoreEntry(ctx context.Context, p EntryParams) (model.Memory, error) {
	md := maps.Clone(p.Metadata)
	if p.Date != "" {
		if md == nil {
			md = make(map[string]string, 1)
		}
		md["date"] = p.Date
	}
	m, err := s.store.Store(ctx, store.StoreParams{
		Content:     p.Content,
		ContentType: ContentTypeMarkdown,
		Category:    p.Category,
		Mode:        p.Mode,
		Metadata:    md,
	})
	if err != nil {
		return model.Memory{}, fmt.Errorf("store bank entry: %w", err)
	}
	if p.Category != "" {
		if _, known := s.cfg.Categories[p.Category]; !known {
			s.logger.Info("stored entry in unconfigured category", "category", p.Category, "id", m.ID)
		}
	}
	return m, nil
}
