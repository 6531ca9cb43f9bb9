// Package optimizer selects which scored memories fit into a context window.
package optimizer

import (
	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/relevance"
)

// Optimizer picks an ordered subset of scored memories.
type Optimizer interface {
	Optimize(scored []relevance.ScoredMemory, maxTokens model.TokenCount, threshold relevance.Score) []relevance.ScoredMemory
}

// TokenBudget greedily accepts memories in the given order until the next one
// would overflow maxTokens. Memories scoring below threshold are skipped.
//
// The budget is advisory in one case: while nothing has been accepted yet, an
// eligible memory larger than the whole budget is still accepted, untruncated,
// so the best memory is never dropped for being big. Evaluation then continues
// under the normal rule.
type TokenBudget struct{}

// NewTokenBudget returns a TokenBudget optimizer.
func NewTokenBudget() TokenBudget { return TokenBudget{} }

func (TokenBudget) Optimize(scored []relevance.ScoredMemory, maxTokens model.TokenCount, threshold relevance.Score) []relevance.ScoredMemory {
	var (
		out   []relevance.ScoredMemory
		total model.TokenCount
	)
	for _, sm := range scored {
		if sm.Score < threshold {
			continue
		}
		if total+sm.Memory.TokenCount > maxTokens && len(out) > 0 {
			break
		}
		out = append(out, sm)
		total += sm.Memory.TokenCount
	}
	return out
}
