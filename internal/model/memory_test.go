package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewMemoryIDUnique(t *testing.T) {
	seen := make(map[MemoryID]bool)
	for i := 0; i < 1000; i++ {
		id := NewMemoryID()
		assert.True(t, strings.HasPrefix(id.String(), "mem_"))
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestNewTokenCountClamps(t *testing.T) {
	assert.Equal(t, TokenCount(0), NewTokenCount(-5))
	assert.Equal(t, TokenCount(7), NewTokenCount(7))
}

func TestSumTokens(t *testing.T) {
	assert.Equal(t, TokenCount(0), SumTokens(nil))
	assert.Equal(t, TokenCount(9), SumTokens([]Memory{{TokenCount: 4}, {TokenCount: 5}}))
}

func TestNew(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	md := map[string]string{"language": "go"}
	m := New(NewParams{Content: "a b", ContentType: "text/plain", Category: "context", Mode: "code", Metadata: md}, 2, now)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, TokenCount(2), m.TokenCount)
	assert.True(t, m.CreatedAt.Equal(now))
	assert.Equal(t, time.UTC, m.CreatedAt.Location())
	assert.Equal(t, m.CreatedAt, m.LastAccessed)

	// The memory owns its metadata.
	md["language"] = "rust"
	assert.Equal(t, "go", m.Metadata["language"])

	empty := New(NewParams{Metadata: map[string]string{}}, 0, now)
	assert.Nil(t, empty.Metadata)
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := Memory{LastAccessed: start}

	m.Touch(start.Add(time.Hour))
	assert.Equal(t, start.Add(time.Hour), m.LastAccessed)

	m.Touch(start)
	assert.Equal(t, start.Add(time.Hour), m.LastAccessed)
}

func TestCloneIsIndependent(t *testing.T) {
	m := Memory{Metadata: map[string]string{"k": "v"}}
	c := m.Clone()
	c.Metadata["k"] = "changed"
	assert.Equal(t, "v", m.Metadata["k"])
}
