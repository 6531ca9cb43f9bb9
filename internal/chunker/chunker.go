// Package chunker splits markdown documents into sections that fit a token size.
package chunker

import (
	"strings"

	"github.com/rcliao/smart-memory/internal/model"
	"github.com/rcliao/smart-memory/internal/tokenizer"
)

const (
	DefaultTargetTokens = 400
	DefaultMaxTokens    = 600
)

// Options configures section sizes.
type Options struct {
	// TargetTokens is the size adjacent sections are merged up to.
	TargetTokens model.TokenCount
	// MaxTokens is the size above which a section is split on line boundaries.
	MaxTokens model.TokenCount
}

// DefaultOptions returns default section sizes.
func DefaultOptions() Options {
	return Options{TargetTokens: DefaultTargetTokens, MaxTokens: DefaultMaxTokens}
}

// Sized returns options for sections of at most maxTokens, merging up to two
// thirds of that. The target is never below one token.
func Sized(maxTokens model.TokenCount) Options {
	return Options{TargetTokens: max(maxTokens*2/3, 1), MaxTokens: maxTokens}
}

// Section is a piece of a document with its 1-based, inclusive line span.
type Section struct {
	Text      string
	StartLine int
	EndLine   int
	Tokens    model.TokenCount
}

// span is a 1-based, inclusive line range.
type span struct{ start, end int }

type splitter struct {
	tok   tokenizer.Tokenizer
	opts  Options
	lines []string
	// prefix[i] is the token count of lines[:i], counted line by line.
	prefix []model.TokenCount
}

// Split breaks text before markdown headings, merges adjacent small sections
// up to TargetTokens and splits sections above MaxTokens on line boundaries.
// A document within MaxTokens comes back as a single section. Zero options
// mean DefaultOptions; a missing target is derived from MaxTokens as in Sized.
func Split(text string, tok tokenizer.Tokenizer, opts Options) []Section {
	switch {
	case opts.MaxTokens <= 0:
		opts = DefaultOptions()
	case opts.TargetTokens <= 0:
		opts = Sized(opts.MaxTokens)
	}
	opts.TargetTokens = min(opts.TargetTokens, opts.MaxTokens)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	sp := splitter{tok: tok, opts: opts, lines: lines, prefix: make([]model.TokenCount, len(lines)+1)}
	for i, line := range lines {
		sp.prefix[i+1] = sp.prefix[i] + tok.CountTokens(line)
	}

	whole := sp.section(span{1, len(sp.lines)})
	if whole.Tokens <= opts.MaxTokens {
		return []Section{whole}
	}

	var out []Section
	var acc *span
	for _, b := range sp.headingSpans() {
		if acc != nil && sp.tokens(span{acc.start, b.end}) <= opts.TargetTokens {
			acc.end = b.end
			continue
		}
		out = sp.flush(out, acc)
		acc = &span{b.start, b.end}
	}
	return sp.flush(out, acc)
}

func (sp splitter) text(s span) string {
	return strings.Join(sp.lines[s.start-1:s.end], "\n")
}

// tokens sizes a span from the per-line counts.
func (sp splitter) tokens(s span) model.TokenCount {
	return sp.prefix[s.end] - sp.prefix[s.start-1]
}

func (sp splitter) section(s span) Section {
	t := sp.text(s)
	return Section{Text: t, StartLine: s.start, EndLine: s.end, Tokens: sp.tok.CountTokens(t)}
}

// trim narrows s to its first and last non-blank lines.
func (sp splitter) trim(s span) (span, bool) {
	for s.start <= s.end && strings.TrimSpace(sp.lines[s.start-1]) == "" {
		s.start++
	}
	for s.end >= s.start && strings.TrimSpace(sp.lines[s.end-1]) == "" {
		s.end--
	}
	return s, s.start <= s.end
}

// headingSpans cuts the document before every heading line.
func (sp splitter) headingSpans() []span {
	var out []span
	start := 1
	for i, line := range sp.lines {
		n := i + 1
		if n > start && strings.HasPrefix(strings.TrimSpace(line), "#") {
			if s, ok := sp.trim(span{start, n - 1}); ok {
				out = append(out, s)
			}
			start = n
		}
	}
	if s, ok := sp.trim(span{start, len(sp.lines)}); ok {
		out = append(out, s)
	}
	return out
}

func (sp splitter) flush(out []Section, acc *span) []Section {
	if acc == nil {
		return out
	}
	sec := sp.section(*acc)
	if sec.Tokens > sp.opts.MaxTokens {
		return append(out, sp.hardSplit(*acc)...)
	}
	return append(out, sec)
}

// hardSplit breaks s on line boundaries, keeping each piece within
// TargetTokens (summed per line) unless a single line is larger.
func (sp splitter) hardSplit(s span) []Section {
	var out []Section
	emit := func(p span) {
		if p, ok := sp.trim(p); ok {
			out = append(out, sp.section(p))
		}
	}

	cur := s.start
	for n := s.start + 1; n <= s.end; n++ {
		if sp.tokens(span{cur, n}) > sp.opts.TargetTokens {
			emit(span{cur, n - 1})
			cur = n
		}
	}
	emit(span{cur, s.end})
	return out
}
