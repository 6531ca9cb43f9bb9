package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/tokenizer"
)

// MemoryStore creates and reads memories through a Repository, keeping a
// write-through cache in front of it.
type MemoryStore struct {
	repo      Repository
	tokenizer tokenizer.Tokenizer
	cache     Cache
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithCache replaces the default unbounded cache.
func WithCache(c Cache) Option {
	return func(s *MemoryStore) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// New builds a MemoryStore over repo.
func New(repo Repository, tok tokenizer.Tokenizer, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		repo:      repo,
		tokenizer: tok,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewMapCache()
	}
	if s.tokenizer == nil {
		s.tokenizer = tokenizer.Simple{}
	}
	return s
}

// NewInMemory builds a MemoryStore with no persistence.
func NewInMemory(tok tokenizer.Tokenizer, opts ...Option) *MemoryStore {
	return New(NewMemRepository(), tok, opts...)
}

// NewSQLite builds a MemoryStore persisted to the SQLite file at dbPath.
func NewSQLite(dbPath string, tok tokenizer.Tokenizer, opts ...Option) (*MemoryStore, error) {
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, opErr("open repository", "", err)
	}
	return New(repo, tok, opts...), nil
}

// StoreParams holds parameters for storing a memory.
type StoreParams struct {
	Content     string
	ContentType string
	Category    string
	Mode        string
	Metadata    map[string]string
}

// Store tokenizes and persists a new memory, then caches it.
func (s *MemoryStore) Store(ctx context.Context, p StoreParams) (model.Memory, error) {
	m := model.New(model.NewParams{
		Content:     p.Content,
		ContentType: p.ContentType,
		Category:    p.Category,
		Mode:        p.Mode,
		Metadata:    p.Metadata,
	}, s.tokenizer.CountTokens(p.Content), s.now())

	if err := s.repo.Store(ctx, m); err != nil {
		s.logger.Error("store memory", "id", m.ID, "err", err)
		return model.Memory{}, opErr("store", m.ID, err)
	}
	s.cache.Put(m)

	s.logger.Debug("stored memory", "id", m.ID, "tokens", m.TokenCount, "category", m.Category, "mode", m.Mode)
	return m, nil
}

// Retrieve returns the memory with id and records the access in the cache and
// the repository. A missing memory is reported with ok == false and a nil error.
func (s *MemoryStore) Retrieve(ctx context.Context, id model.MemoryID) (m model.Memory, ok bool, err error) {
	now := s.now()

	if m, ok = s.cache.Touch(id, now); !ok {
		m, ok, err = s.repo.Retrieve(ctx, id)
		if err != nil {
			s.logger.Error("retrieve memory", "id", id, "err", err)
			return model.Memory{}, false, opErr("retrieve", id, err)
		}
		if !ok {
			return model.Memory{}, false, nil
		}
		m.Touch(now)
		s.cache.Put(m)
	}

	if err := s.repo.Touch(ctx, id, m.LastAccessed); err != nil {
		s.logger.Error("touch memory", "id", id, "err", err)
		return model.Memory{}, false, opErr("touch", id, err)
	}
	return m, true, nil
}

// AllIDs lists every memory id known to the repository.
func (s *MemoryStore) AllIDs(ctx context.Context) ([]model.MemoryID, error) {
	ids, err := s.repo.AllIDs(ctx)
	if err != nil {
		return nil, opErr("list ids", "", err)
	}
	return ids, nil
}

// TotalTokens sums token counts across the repository.
func (s *MemoryStore) TotalTokens(ctx context.Context) (model.TokenCount, error) {
	total, err := s.repo.TotalTokens(ctx)
	if err != nil {
		return 0, opErr("total tokens", "", err)
	}
	return total, nil
}

// Tokenizer returns the tokenizer used to count memory tokens.
func (s *MemoryStore) Tokenizer() tokenizer.Tokenizer { return s.tokenizer }

// Repository returns the backing repository.
func (s *MemoryStore) Repository() Repository { return s.repo }

// Close releases the cache and the repository.
func (s *MemoryStore) Close() error {
	s.cache.Close()
	return s.repo.Close()
}
