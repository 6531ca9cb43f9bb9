// Package config holds the memory bank configuration: per-category token
// budgets and priorities, the global budget, relevance settings and update
// triggers.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/smart-memory/internal/model"
)

// Fallbacks for categories missing from the config.
const (
	DefaultCategoryMaxTokens = 1000
	DefaultCategoryPriority  = PriorityMedium
)

// Priority ranks a category.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ValidPriorities are the allowed priority levels.
var ValidPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

func (p *Priority) UnmarshalText(b []byte) error {
	v := Priority(strings.ToLower(string(b)))
	if !ValidPriorities[v] {
		return fmt.Errorf("invalid priority %q", string(b))
	}
	*p = v
	return nil
}

// CategoryConfig is the budget and priority of one category.
type CategoryConfig struct {
	MaxTokens int      `json:"max_tokens" yaml:"max_tokens"`
	Priority  Priority `json:"priority" yaml:"priority"`
}

// UpdateTriggers controls when the memory bank is written to.
type UpdateTriggers struct {
	AutoUpdate bool `json:"auto_update" yaml:"auto_update"`
	UMBCommand bool `json:"umb_command" yaml:"umb_command"`
}

// TokenBudget is the overall context budget.
type TokenBudget struct {
	Total       int  `json:"total" yaml:"total"`
	PerCategory bool `json:"per_category" yaml:"per_category"`
}

// Relevance holds context selection settings.
type Relevance struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	BoostRecent bool    `json:"boost_recent" yaml:"boost_recent"`
}

// MemoryBankConfig is the memory bank configuration file.
type MemoryBankConfig struct {
	Categories     map[string]CategoryConfig `json:"categories" yaml:"categories"`
	UpdateTriggers UpdateTriggers            `json:"update_triggers" yaml:"update_triggers"`
	TokenBudget    TokenBudget               `json:"token_budget" yaml:"token_budget"`
	Relevance      Relevance                 `json:"relevance" yaml:"relevance"`
}

// Default returns the built-in configuration.
func Default() *MemoryBankConfig {
	return &MemoryBankConfig{
		Categories: map[string]CategoryConfig{
			"context":  {MaxTokens: 10000, Priority: PriorityHigh},
			"decision": {MaxTokens: 5000, Priority: PriorityMedium},
			"progress": {MaxTokens: 8000, Priority: PriorityHigh},
			"product":  {MaxTokens: 10000, Priority: PriorityMedium},
			"pattern":  {MaxTokens: 5000, Priority: PriorityLow},
		},
		UpdateTriggers: UpdateTriggers{AutoUpdate: true, UMBCommand: true},
		TokenBudget:    TokenBudget{Total: 50000, PerCategory: true},
		Relevance:      Relevance{Threshold: 0.7, BoostRecent: true},
	}
}

// FromFile reads a configuration file. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON. Sections missing from the file keep their
// defaults; a categories section, when present, replaces the default set.
func FromFile(path string) (*MemoryBankConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	cfg.Categories = nil
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Categories == nil {
		cfg.Categories = Default().Categories
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// ToFile writes the configuration, creating parent directories as needed.
func (c *MemoryBankConfig) ToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadOrDefault loads path, substituting the default configuration when the
// file is missing or unusable. The default is then written back to path.
// It never fails.
func LoadOrDefault(path string, logger *slog.Logger) *MemoryBankConfig {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg, err := FromFile(path)
	if err == nil {
		logger.Debug("loaded memory bank config", "path", path)
		return cfg
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Info("memory bank config not found, using default", "path", path)
	} else {
		logger.Warn("memory bank config unusable, using default", "path", path, "err", err)
	}

	cfg = Default()
	if err := cfg.ToFile(path); err != nil {
		logger.Warn("save default memory bank config", "path", path, "err", err)
	} else {
		logger.Info("saved default memory bank config", "path", path)
	}
	return cfg
}

// Validate checks numeric ranges.
func (c *MemoryBankConfig) Validate() error {
	for name, cat := range c.Categories {
		if cat.MaxTokens < 0 {
			return fmt.Errorf("category %q: negative max_tokens", name)
		}
		if !ValidPriorities[cat.Priority] {
			return fmt.Errorf("category %q: invalid priority %q", name, cat.Priority)
		}
	}
	if c.TokenBudget.Total < 0 {
		return fmt.Errorf("negative token_budget.total")
	}
	if c.Relevance.Threshold < 0 || c.Relevance.Threshold > 1 {
		return fmt.Errorf("relevance.threshold %v outside [0, 1]", c.Relevance.Threshold)
	}
	return nil
}

// MaxTokens returns the budget for category, or DefaultCategoryMaxTokens.
func (c *MemoryBankConfig) MaxTokens(category string) model.TokenCount {
	if cat, ok := c.Categories[category]; ok {
		return model.NewTokenCount(cat.MaxTokens)
	}
	return DefaultCategoryMaxTokens
}

// Priority returns the priority of category, or DefaultCategoryPriority.
func (c *MemoryBankConfig) Priority(category string) Priority {
	if cat, ok := c.Categories[category]; ok {
		return cat.Priority
	}
	return DefaultCategoryPriority
}

// CategoryNames returns the configured categories in sorted order.
func (c *MemoryBankConfig) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
