// Package model defines the core memory data types.
package model

import (
	"maps"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryID uniquely identifies a memory within a store.
type MemoryID string

// NewMemoryID mints a fresh identifier. ULIDs carry a millisecond timestamp and
// monotonic entropy, so an id is never handed out twice by one process.
func NewMemoryID() MemoryID {
	return MemoryID("mem_" + ulid.Make().String())
}

func (id MemoryID) String() string { return string(id) }

// TokenCount is a non-negative number of tokens.
type TokenCount int

// NewTokenCount clamps n to zero.
func NewTokenCount(n int) TokenCount {
	if n < 0 {
		return 0
	}
	return TokenCount(n)
}

// Int returns the count as an int.
func (c TokenCount) Int() int { return int(c) }

// SumTokens adds up the token counts of the given memories.
func SumTokens(memories []Memory) TokenCount {
	var total TokenCount
	for _, m := range memories {
		total += m.TokenCount
	}
	return total
}

// Memory represents a stored memory entry. Everything except LastAccessed is
// fixed at creation.
type Memory struct {
	ID           MemoryID          `json:"id"`
	Content      string            `json:"content"`
	ContentType  string            `json:"content_type"`
	Category     string            `json:"category,omitempty"`
	Mode         string            `json:"mode,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	TokenCount   TokenCount        `json:"token_count"`
	CreatedAt    time.Time         `json:"created_at"`
	LastAccessed time.Time         `json:"last_accessed"`
}

// NewParams holds the caller-supplied fields of a new memory.
type NewParams struct {
	Content     string
	ContentType string
	Category    string
	Mode        string
	Metadata    map[string]string
}

// New builds a memory with a fresh id, the given token count and both
// timestamps set to now.
func New(p NewParams, tokens TokenCount, now time.Time) Memory {
	now = now.UTC()
	return Memory{
		ID:           NewMemoryID(),
		Content:      p.Content,
		ContentType:  p.ContentType,
		Category:     p.Category,
		Mode:         p.Mode,
		Metadata:     cloneMetadata(p.Metadata),
		TokenCount:   tokens,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// Touch records an access at now. LastAccessed never moves backwards.
func (m *Memory) Touch(now time.Time) {
	now = now.UTC()
	if now.After(m.LastAccessed) {
		m.LastAccessed = now
	}
}

// Clone returns a copy that shares no mutable state with m.
func (m Memory) Clone() Memory {
	m.Metadata = cloneMetadata(m.Metadata)
	return m
}

// cloneMetadata copies md; empty metadata is normalised to nil.
func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	return maps.Clone(md)
}
