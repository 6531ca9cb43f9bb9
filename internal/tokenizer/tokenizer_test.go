package tokenizer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/smart-memory/internal/model"
)

func TestSimpleCountsWhitespaceSegments(t *testing.T) {
	tok := Simple{}
	assert.Equal(t, model.TokenCount(0), tok.CountTokens(""))
	assert.Equal(t, model.TokenCount(0), tok.CountTokens("   \n\t "))
	assert.Equal(t, model.TokenCount(3), tok.CountTokens("hello brave world"))
	assert.Equal(t, model.TokenCount(4), tok.CountTokens("  tabs\tand\nnew lines "))
}

func TestHeuristic(t *testing.T) {
	assert.Equal(t, model.TokenCount(1), Heuristic(""))
	assert.Equal(t, model.TokenCount(1), Heuristic("abc"))
	assert.Equal(t, model.TokenCount(2), Heuristic("abcdefg"))   // 1.75 rounds up
	assert.Equal(t, model.TokenCount(25), Heuristic(strings.Repeat("x", 100)))
	// Counted in characters, not bytes.
	assert.Equal(t, model.TokenCount(1), Heuristic("ééééé"))
}

func TestModelFallsBackWhenFilesMissing(t *testing.T) {
	m := NewModel("cl100k_base", t.TempDir(), nil)
	assert.False(t, m.Loaded())

	text := strings.Repeat("word ", 40)
	assert.Equal(t, Heuristic(text), m.CountTokens(text))
	// Second call must not retry the load and must stay deterministic.
	assert.Equal(t, Heuristic(text), m.CountTokens(text))
}

// writeRankFile writes every single byte as its own token plus one merge, "he".
func writeRankFile(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	for b := range 256 {
		fmt.Fprintf(&buf, "%s %d\n", base64.StdEncoding.EncodeToString([]byte{byte(b)}), b)
	}
	fmt.Fprintf(&buf, "%s %d\n", base64.StdEncoding.EncodeToString([]byte("he")), 256)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// Uses p50k_base so the missing-file case above keeps cl100k_base uncached.
func TestModelLoadsLocalRankFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "p50k_base.tiktoken")
	writeRankFile(t, file)

	m := NewModel("p50k_base", dir, nil)
	require.True(t, m.Loaded())
	// "hello" -> he l l o, " world" -> six single bytes.
	assert.Equal(t, model.TokenCount(10), m.CountTokens("hello world"))
	assert.Equal(t, model.TokenCount(1), m.CountTokens("he"))

	// Loaded once: the file is not read again.
	require.NoError(t, os.Remove(file))
	assert.True(t, m.Loaded())
	assert.Equal(t, model.TokenCount(10), m.CountTokens("hello world"))

	var logs bytes.Buffer
	other := NewModel("p50k_base", t.TempDir(), slog.New(slog.NewTextHandler(&logs, nil)))
	assert.True(t, other.Loaded())
	assert.Equal(t, model.TokenCount(10), other.CountTokens("hello world"))
	assert.Contains(t, logs.String(), "already loaded from another directory")
}

func TestNewKinds(t *testing.T) {
	dir := t.TempDir()
	assert.IsType(t, Simple{}, New(KindSimple, dir, nil))
	assert.IsType(t, Simple{}, New("", dir, nil))
	assert.IsType(t, Simple{}, New("bogus", dir, nil))
	assert.IsType(t, &Model{}, New(KindCL100k, dir, nil))
	assert.IsType(t, &Model{}, New(KindGPT2, dir, nil))
}

func TestFileLoaderResolvesBaseName(t *testing.T) {
	dir := t.TempDir()
	// "a", "b", "ab" base64 encoded.
	data := "YQ== 0\nYg== 1\n\nYWI= 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tiny.tiktoken"), []byte(data), 0o644))

	ranks, err := fileLoader{dir: dir}.LoadTiktokenBpe("https://example.invalid/encodings/tiny.tiktoken")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 0, "b": 1, "ab": 2}, ranks)
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := fileLoader{dir: dir}.LoadTiktokenBpe("missing.tiktoken")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.tiktoken"), []byte("YQ==\n"), 0o644))
	_, err = fileLoader{dir: dir}.LoadTiktokenBpe("bad.tiktoken")
	assert.ErrorContains(t, err, "malformed")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.tiktoken"), nil, 0o644))
	_, err = fileLoader{dir: dir}.LoadTiktokenBpe("empty.tiktoken")
	assert.ErrorContains(t, err, "empty")
}
