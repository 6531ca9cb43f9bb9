// Package relevance ranks memories against an assistant mode and an optional
// query.
package relevance

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/rcliao/smart-memory/internal/model"
)

// Score is a relevance value in [0, 1].
type Score float64

// NewScore clamps v into [0, 1]. NaN becomes 0.
func NewScore(v float64) Score {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return Score(v)
}

// Float64 returns the score as a float64.
func (s Score) Float64() float64 { return float64(s) }

// ScoredMemory pairs a memory with its relevance.
type ScoredMemory struct {
	Memory model.Memory `json:"memory"`
	Score  Score        `json:"score"`
}

// Scorer ranks memories. The result is sorted by score, highest first; equal
// scores keep their input order.
type Scorer interface {
	ScoreMemories(memories []model.Memory, mode, query string) []ScoredMemory
}

// ModeWeights maps a mode to the weight of each metadata key in that mode.
type ModeWeights map[string]map[string]float64

// FallbackMode is used for modes missing from the weight table.
const FallbackMode = "code"

// DefaultModeWeights returns the built-in weight tables.
func DefaultModeWeights() ModeWeights {
	return ModeWeights{
		"code": {
			"language": 0.8,
			"file":     0.6,
			"project":  0.5,
			"source":   0.3,
		},
		"architect": {
			"project":      0.8,
			"design":       0.7,
			"architecture": 0.7,
			"source":       0.3,
		},
		"debug": {
			"error":    0.9,
			"language": 0.7,
			"file":     0.6,
			"project":  0.5,
		},
	}
}

const (
	contentWeight  = 0.7
	metadataWeight = 0.3
	// unknownKeyWeight applies to metadata keys absent from the mode's table.
	unknownKeyWeight = 0.1
	recencyHalfLife  = 24 * time.Hour
)

// TFIDFScorer combines a TF-IDF query match (or, without a query, a 24 hour
// recency decay) with a mode-specific metadata weight.
type TFIDFScorer struct {
	weights ModeWeights
	now     func() time.Time
}

// Option configures a TFIDFScorer.
type Option func(*TFIDFScorer)

// WithModeWeights replaces the weight tables.
func WithModeWeights(w ModeWeights) Option {
	return func(s *TFIDFScorer) { s.weights = w }
}

// WithClock overrides time.Now for the recency signal.
func WithClock(now func() time.Time) Option {
	return func(s *TFIDFScorer) { s.now = now }
}

// NewTFIDFScorer returns a scorer using DefaultModeWeights.
func NewTFIDFScorer(opts ...Option) *TFIDFScorer {
	s := &TFIDFScorer{weights: DefaultModeWeights(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	w := make(ModeWeights, len(s.weights))
	for mode, table := range s.weights {
		w[mode] = maps.Clone(table)
	}
	s.weights = w
	return s
}

// ScoreMemories scores every memory. An empty query selects the recency signal.
func (s *TFIDFScorer) ScoreMemories(memories []model.Memory, mode, query string) []ScoredMemory {
	docs := make([][]string, len(memories))
	for i, m := range memories {
		docs[i] = terms(m.Content)
	}
	df := documentFrequencies(docs)
	table := s.table(mode)
	now := s.now()

	var queryTerms []string
	if query != "" {
		queryTerms = distinct(terms(query))
	}

	scored := make([]ScoredMemory, len(memories))
	for i, m := range memories {
		var content float64
		if query != "" {
			content = tfidf(queryTerms, docs[i], df, len(memories))
		} else {
			content = recency(now, m.LastAccessed)
		}
		meta := metadataScore(m.Metadata, table)
		scored[i] = ScoredMemory{
			Memory: m,
			Score:  NewScore(contentWeight*content + metadataWeight*meta),
		}
	}

	slices.SortStableFunc(scored, func(a, b ScoredMemory) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return scored
}

func (s *TFIDFScorer) table(mode string) map[string]float64 {
	if t, ok := s.weights[mode]; ok {
		return t
	}
	return s.weights[FallbackMode]
}

// metadataScore sums the weights of present keys over the table size, so a
// memory scores higher the more of the mode's vocabulary it carries.
func metadataScore(md map[string]string, table map[string]float64) float64 {
	var sum float64
	for key := range md {
		w, ok := table[key]
		if !ok {
			w = unknownKeyWeight
		}
		sum += w
	}
	return sum / float64(max(len(table), 1))
}

// tfidf averages tf*idf over the distinct query terms. Terms never seen in the
// corpus get a document frequency of one.
func tfidf(queryTerms, doc []string, df map[string]int, totalDocs int) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	tf := make(map[string]int, len(doc))
	for _, t := range doc {
		tf[t]++
	}
	docLen := float64(max(len(doc), 1))

	var sum float64
	for _, q := range queryTerms {
		freq := df[q]
		if freq == 0 {
			freq = 1
		}
		idf := math.Log(float64(totalDocs) / float64(freq))
		sum += float64(tf[q]) / docLen * idf
	}
	return sum / float64(len(queryTerms))
}

// recency decays from 1 toward 0 with the time since the last access.
func recency(now, lastAccessed time.Time) float64 {
	age := max(now.Sub(lastAccessed), 0)
	return 1 / (1 + age.Seconds()/recencyHalfLife.Seconds())
}

// documentFrequencies counts, for each term, the documents containing it.
func documentFrequencies(docs [][]string) map[string]int {
	df := make(map[string]int)
	for _, doc := range docs {
		for _, t := range distinct(doc) {
			df[t]++
		}
	}
	return df
}

func terms(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func distinct(ts []string) []string {
	seen := make(map[string]bool, len(ts))
	out := ts[:0:0]
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
