// Package store persists memories behind a Repository and fronts it with a
// write-through cache.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/smart-memory/internal/model"
)

// ErrStorage marks failures of the underlying repository (disk, SQL). It is
// matched with errors.Is.
var ErrStorage = errors.New("storage failure")

// OpError reports which operation failed and on which memory.
type OpError struct {
	Op  string
	ID  model.MemoryID
	Err error
}

func (e *OpError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the cause.
func (e *OpError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func opErr(op string, id model.MemoryID, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, ID: id, Err: err}
}

// Repository is durable storage for memories keyed by id.
type Repository interface {
	// Store inserts or replaces the memory with m.ID.
	Store(ctx context.Context, m model.Memory) error

	// Retrieve returns the memory with id. The bool is false when absent.
	Retrieve(ctx context.Context, id model.MemoryID) (model.Memory, bool, error)

	// Touch sets the last access time of id. Unknown ids are ignored.
	Touch(ctx context.Context, id model.MemoryID, at time.Time) error

	// AllIDs lists every stored id.
	AllIDs(ctx context.Context) ([]model.MemoryID, error)

	// TotalTokens sums the token counts of all memories; zero when empty.
	TotalTokens(ctx context.Context) (model.TokenCount, error)

	// Close releases the repository.
	Close() error
}
