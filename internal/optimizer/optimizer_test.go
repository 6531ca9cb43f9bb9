package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/relevance"
)

func scored(id string, score float64, tokens int) relevance.ScoredMemory {
	return relevance.ScoredMemory{
		Memory: model.Memory{ID: model.MemoryID(id), TokenCount: model.TokenCount(tokens)},
		Score:  relevance.NewScore(score),
	}
}

func ids(sms []relevance.ScoredMemory) []model.MemoryID {
	out := make([]model.MemoryID, len(sms))
	for i, sm := range sms {
		out[i] = sm.Memory.ID
	}
	return out
}

func tokens(sms []relevance.ScoredMemory) model.TokenCount {
	var total model.TokenCount
	for _, sm := range sms {
		total += sm.Memory.TokenCount
	}
	return total
}

func scenario() []relevance.ScoredMemory {
	return []relevance.ScoredMemory{
		scored("C", 0.95, 900),
		scored("A", 0.90, 500),
		scored("B", 0.60, 300),
	}
}

func TestOversizedFirstMemoryAccepted(t *testing.T) {
	out := NewTokenBudget().Optimize(scenario(), 700, 0.5)
	assert.Equal(t, []model.MemoryID{"C"}, ids(out))
	assert.Equal(t, model.TokenCount(900), tokens(out))
}

func TestStopsAtFirstOverflow(t *testing.T) {
	out := NewTokenBudget().Optimize(scenario(), 1500, 0.5)
	assert.Equal(t, []model.MemoryID{"C", "A"}, ids(out))
	assert.Equal(t, model.TokenCount(1400), tokens(out))
}

func TestAllFit(t *testing.T) {
	out := NewTokenBudget().Optimize(scenario(), 1700, 0.5)
	assert.Equal(t, []model.MemoryID{"C", "A", "B"}, ids(out))
}

func TestThresholdExcludes(t *testing.T) {
	out := NewTokenBudget().Optimize(scenario(), 10000, 0.9)
	assert.Equal(t, []model.MemoryID{"C", "A"}, ids(out))

	// Strictly below is skipped, equal is kept.
	out = NewTokenBudget().Optimize(scenario(), 10000, 0.95)
	assert.Equal(t, []model.MemoryID{"C"}, ids(out))

	out = NewTokenBudget().Optimize(scenario(), 10000, 0.96)
	assert.Empty(t, out)
}

func TestSkippedMemoriesDoNotCountAsAccepted(t *testing.T) {
	in := []relevance.ScoredMemory{
		scored("low", 0.1, 10),
		scored("big", 0.8, 900),
		scored("small", 0.7, 50),
	}
	out := NewTokenBudget().Optimize(in, 100, 0.5)
	assert.Equal(t, []model.MemoryID{"big"}, ids(out))
}

func TestZeroTokenMemoriesAlwaysFit(t *testing.T) {
	in := []relevance.ScoredMemory{
		scored("a", 0.9, 0),
		scored("b", 0.8, 0),
	}
	out := NewTokenBudget().Optimize(in, 0, 0)
	assert.Equal(t, []model.MemoryID{"a", "b"}, ids(out))
}

func TestEmptyInput(t *testing.T) {
	assert.Empty(t, NewTokenBudget().Optimize(nil, 100, 0))
}

func TestBudgetAndDeterminism(t *testing.T) {
	in := []relevance.ScoredMemory{
		scored("a", 0.99, 120),
		scored("b", 0.97, 40),
		scored("c", 0.90, 300),
		scored("d", 0.85, 10),
		scored("e", 0.40, 5),
		scored("f", 0.30, 1000),
	}
	for _, budget := range []model.TokenCount{0, 10, 100, 160, 170, 460, 470, 2000} {
		for _, threshold := range []relevance.Score{0, 0.35, 0.5, 0.95, 1} {
			first := NewTokenBudget().Optimize(in, budget, threshold)
			second := NewTokenBudget().Optimize(in, budget, threshold)
			assert.Equal(t, first, second)

			for _, sm := range first {
				assert.GreaterOrEqual(t, sm.Score, threshold)
			}
			if total := tokens(first); total > budget {
				assert.Len(t, first, 1, "budget %d threshold %v", budget, threshold)
				assert.Greater(t, first[0].Memory.TokenCount, budget)
			}
		}
	}
}
