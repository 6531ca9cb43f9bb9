// Package cli implements the smart-memory CLI commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rcliao/smart-memory/internal/bank"
	"github.com/rcliao/smart-memory/internal/config"
	"github.com/rcliao/smart-memory/internal/logging"
	"github.com/rcliao/smart-memory/internal/store"
	"github.com/rcliao/smart-memory/internal/tokenizer"
)

var (
	dbPath         string
	configPath     string
	tokenizerKind  string
	modelsDir      string
	cacheMaxTokens int64
	formatFlag     string

	logger = slog.New(slog.DiscardHandler)
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "smart-memory",
	Short: "Local context memory for coding assistants",
	Long:  "Stores memories in SQLite and assembles the most relevant ones into a token-bounded context.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := godotenv.Load()
		logger = logging.FromEnv()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("load .env", "err", err)
		}
	},
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVarP(&dbPath, "db", "d", "", "Database path (default: $SMART_MEMORY_DB or ~/.smart-memory/memory.db)")
	pf.StringVarP(&configPath, "config", "c", "", "Memory bank config, JSON or YAML (default: $SMART_MEMORY_CONFIG or ~/.smart-memory/memory-bank.json)")
	pf.StringVar(&tokenizerKind, "tokenizer", "", "Tokenizer: simple, cl100k or gpt2 (default: $SMART_MEMORY_TOKENIZER or simple)")
	pf.StringVar(&modelsDir, "models-dir", "", "Directory holding .tiktoken files (default: $SMART_MEMORY_MODELS or models)")
	pf.Int64Var(&cacheMaxTokens, "cache-max-tokens", 0, "Bound the memory cache to this many tokens, 0 for unbounded (default: $SMART_MEMORY_CACHE_MAX_TOKENS)")
	pf.StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func homePath(name string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".smart-memory", name)
}

func resolve(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func getDBPath() string {
	return resolve(dbPath, "SMART_MEMORY_DB", homePath("memory.db"))
}

func getConfigPath() string {
	return resolve(configPath, "SMART_MEMORY_CONFIG", homePath("memory-bank.json"))
}

func getCacheMaxTokens() (int64, error) {
	if cacheMaxTokens != 0 {
		return cacheMaxTokens, nil
	}
	v := os.Getenv("SMART_MEMORY_CACHE_MAX_TOKENS")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse SMART_MEMORY_CACHE_MAX_TOKENS: %w", err)
	}
	return n, nil
}

func newTokenizer() tokenizer.Tokenizer {
	kind := tokenizer.Kind(resolve(tokenizerKind, "SMART_MEMORY_TOKENIZER", string(tokenizer.KindSimple)))
	return tokenizer.New(kind, resolve(modelsDir, "SMART_MEMORY_MODELS", "models"), logger)
}

func openStore() (*store.MemoryStore, error) {
	opts := []store.Option{store.WithLogger(logger)}

	maxTokens, err := getCacheMaxTokens()
	if err != nil {
		return nil, err
	}
	if maxTokens > 0 {
		c, err := store.NewRistrettoCache(maxTokens)
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		opts = append(opts, store.WithCache(c))
	}

	return store.NewSQLite(getDBPath(), newTokenizer(), opts...)
}

func openService() (*bank.Service, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}
	cfg := config.LoadOrDefault(getConfigPath(), logger)
	return bank.NewService(s, cfg, bank.WithLogger(logger)), nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
