// Package tokenizer counts tokens in memory content.
package tokenizer

import (
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/smart-memory/internal/model"
)

// Tokenizer converts text to a token count. Implementations never fail; they
// degrade to an estimate instead.
type Tokenizer interface {
	CountTokens(text string) model.TokenCount
}

// Kind names a tokenization strategy.
type Kind string

const (
	KindSimple Kind = "simple"
	KindCL100k Kind = "cl100k"
	KindGPT2   Kind = "gpt2"
)

// ValidKinds are the accepted tokenizer kinds.
var ValidKinds = map[Kind]bool{
	KindSimple: true,
	KindCL100k: true,
	KindGPT2:   true,
}

// New returns the tokenizer for kind. Model-backed kinds read their BPE ranks
// from modelsDir. Unknown kinds get the simple tokenizer.
func New(kind Kind, modelsDir string, logger *slog.Logger) Tokenizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch kind {
	case KindCL100k:
		return NewModel("cl100k_base", modelsDir, logger)
	case KindGPT2:
		return NewModel("r50k_base", modelsDir, logger)
	case KindSimple, "":
		return Simple{}
	default:
		logger.Warn("unknown tokenizer, using simple", "tokenizer", string(kind))
		return Simple{}
	}
}

// Simple counts whitespace-delimited segments. It is exact and identical across
// environments, which makes it the choice for tests.
type Simple struct{}

func (Simple) CountTokens(text string) model.TokenCount {
	return model.NewTokenCount(len(strings.Fields(text)))
}

// Heuristic approximates a subword tokenizer at four characters per token,
// never returning less than one.
func Heuristic(text string) model.TokenCount {
	n := int(math.Round(float64(utf8.RuneCountInString(text)) * 0.25))
	return model.NewTokenCount(max(1, n))
}
