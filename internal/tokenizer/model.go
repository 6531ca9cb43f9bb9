package tokenizer

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/rcliao/smart-memory/internal/model"
)

// tiktoken keeps its BPE loader in a package variable and caches encodings by
// name for the life of the process. loadedFrom records which directory each
// cached encoding was read from.
var (
	loaderMu   sync.Mutex
	loadedFrom = make(map[string]string)
)

// Model counts tokens with a tiktoken BPE encoding whose rank file lives in a
// local directory. If the file is missing or unreadable it falls back to
// Heuristic. Loading is attempted once per Model.
type Model struct {
	encoding string
	dir      string
	logger   *slog.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewModel creates a model-backed tokenizer for the named tiktoken encoding
// (e.g. "cl100k_base"). Nothing is read until the first count. Ranks are
// cached per encoding name for the whole process: once an encoding has been
// loaded from one directory, later Models for it share those ranks whatever
// dir they are given.
func NewModel(encoding, dir string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model{encoding: encoding, dir: dir, logger: logger}
}

// Loaded reports whether the BPE encoding is available.
func (m *Model) Loaded() bool {
	m.once.Do(m.load)
	return m.enc != nil
}

func (m *Model) CountTokens(text string) (n model.TokenCount) {
	if !m.Loaded() {
		return Heuristic(text)
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("tokenizer encode failed, using estimate", "encoding", m.encoding, "panic", r)
			n = Heuristic(text)
		}
	}()
	return model.NewTokenCount(len(m.enc.Encode(text, nil, nil)))
}

func (m *Model) load() {
	loaderMu.Lock()
	defer loaderMu.Unlock()

	if prev, ok := loadedFrom[m.encoding]; ok && prev != m.dir {
		m.logger.Warn("tokenizer encoding already loaded from another directory, sharing its ranks",
			"encoding", m.encoding, "dir", m.dir, "loaded_from", prev)
	}

	tiktoken.SetBpeLoader(fileLoader{dir: m.dir})
	enc, err := tiktoken.GetEncoding(m.encoding)
	if err != nil {
		m.logger.Warn("tokenizer model unavailable, using length estimate",
			"encoding", m.encoding, "dir", m.dir, "err", err)
		return
	}
	if _, ok := loadedFrom[m.encoding]; !ok {
		loadedFrom[m.encoding] = m.dir
	}
	m.enc = enc
	m.logger.Debug("tokenizer model loaded", "encoding", m.encoding, "dir", m.dir)
}

// fileLoader resolves tiktoken's rank-file URLs to files of the same base name
// in dir. It never touches the network.
type fileLoader struct {
	dir string
}

func (l fileLoader) LoadTiktokenBpe(file string) (map[string]int, error) {
	p := filepath.Join(l.dir, path.Base(file))
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open bpe file: %w", err)
	}
	defer f.Close()
	return parseBpe(f, p)
}

// parseBpe reads "<base64 token> <rank>" lines.
func parseBpe(r io.Reader, name string) (map[string]int, error) {
	ranks := make(map[string]int)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: malformed bpe line", name, line)
		}
		token, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: decode token: %w", name, line, err)
		}
		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: parse rank: %w", name, line, err)
		}
		ranks[string(token)] = rank
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read bpe file: %w", err)
	}
	if len(ranks) == 0 {
		return nil, fmt.Errorf("%s: empty bpe file", name)
	}
	return ranks, nil
}
