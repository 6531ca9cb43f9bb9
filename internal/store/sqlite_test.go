package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/smart-memory/internal/model"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func sampleMemory(content string, tokens int) model.Memory {
	now := time.Date(2024, 3, 1, 10, 30, 0, 123456789, time.UTC)
	return model.New(model.NewParams{
		Content:     content,
		ContentType: "text/markdown",
		Category:    "decision",
		Mode:        "architect",
		Metadata:    map[string]string{"project": "smart-memory", "design": "yes"},
	}, model.TokenCount(tokens), now)
}

// repoSuite runs the Repository contract against an implementation.
func repoSuite(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("StoreAndRetrieve", func(t *testing.T) {
		r := newRepo(t)
		m := sampleMemory("use sqlite for persistence", 4)
		require.NoError(t, r.Store(ctx, m))

		got, ok, err := r.Retrieve(ctx, m.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.ID, got.ID)
		assert.Equal(t, m.Content, got.Content)
		assert.Equal(t, m.ContentType, got.ContentType)
		assert.Equal(t, "decision", got.Category)
		assert.Equal(t, "architect", got.Mode)
		assert.Equal(t, m.Metadata, got.Metadata)
		assert.Equal(t, model.TokenCount(4), got.TokenCount)
		assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, m.LastAccessed.Equal(got.LastAccessed))
	})

	t.Run("RetrieveMissing", func(t *testing.T) {
		r := newRepo(t)
		_, ok, err := r.Retrieve(ctx, "mem_missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("OptionalFields", func(t *testing.T) {
		r := newRepo(t)
		m := model.New(model.NewParams{Content: "bare", ContentType: "text/plain"}, 1, time.Now())
		require.NoError(t, r.Store(ctx, m))

		got, ok, err := r.Retrieve(ctx, m.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Empty(t, got.Category)
		assert.Empty(t, got.Mode)
		assert.Nil(t, got.Metadata)
	})

	t.Run("StoreIsUpsert", func(t *testing.T) {
		r := newRepo(t)
		m := sampleMemory("first", 1)
		require.NoError(t, r.Store(ctx, m))
		m.Content = "second"
		require.NoError(t, r.Store(ctx, m))

		got, _, err := r.Retrieve(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Content)

		ids, err := r.AllIDs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("TouchUpdatesOnlyLastAccessed", func(t *testing.T) {
		r := newRepo(t)
		m := sampleMemory("touch me", 2)
		require.NoError(t, r.Store(ctx, m))

		later := m.LastAccessed.Add(90 * time.Minute)
		require.NoError(t, r.Touch(ctx, m.ID, later))

		got, _, err := r.Retrieve(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, later.Equal(got.LastAccessed))
		assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, m.Content, got.Content)

		// Unknown ids are not an error.
		assert.NoError(t, r.Touch(ctx, "mem_unknown", later))
	})

	t.Run("TouchNeverMovesBackwards", func(t *testing.T) {
		r := newRepo(t)
		m := sampleMemory("touch me twice", 3)
		require.NoError(t, r.Store(ctx, m))

		// Writes arriving out of order: the later access lands first.
		later := m.LastAccessed.Add(2 * time.Second)
		earlier := m.LastAccessed.Add(1500 * time.Millisecond)
		require.NoError(t, r.Touch(ctx, m.ID, later))
		require.NoError(t, r.Touch(ctx, m.ID, earlier))

		got, _, err := r.Retrieve(ctx, m.ID)
		require.NoError(t, err)
		assert.True(t, later.Equal(got.LastAccessed), "got %s", got.LastAccessed)
	})

	t.Run("TotalTokens", func(t *testing.T) {
		r := newRepo(t)
		total, err := r.TotalTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.TokenCount(0), total)

		for i, n := range []int{3, 5, 11} {
			m := sampleMemory("memory", n)
			m.ID = model.MemoryID("mem_" + string(rune('a'+i)))
			require.NoError(t, r.Store(ctx, m))
		}
		total, err = r.TotalTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.TokenCount(19), total)

		ids, err := r.AllIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.MemoryID{"mem_a", "mem_b", "mem_c"}, ids)
	})
}

func TestMemRepository(t *testing.T) {
	repoSuite(t, func(t *testing.T) Repository { return NewMemRepository() })
}

func TestSQLiteRepository(t *testing.T) {
	repoSuite(t, func(t *testing.T) Repository { return newTestRepo(t) })
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "persist.db")

	r, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	a := sampleMemory("alpha beta gamma", 3)
	b := sampleMemory("delta", 1)
	require.NoError(t, r.Store(ctx, a))
	require.NoError(t, r.Store(ctx, b))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer r.Close()

	for _, want := range []model.Memory{a, b} {
		got, ok, err := r.Retrieve(ctx, want.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want.Content, got.Content)
		assert.Equal(t, want.TokenCount, got.TokenCount)
	}
	total, err := r.TotalTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TokenCount(4), total)
}

func TestSQLiteMetadataColumnShape(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	m := sampleMemory("shape", 1)
	require.NoError(t, r.Store(ctx, m))

	var meta, created string
	err := r.db.QueryRowContext(ctx, `SELECT metadata_json, created_at FROM memories WHERE id = ?`, string(m.ID)).Scan(&meta, &created)
	require.NoError(t, err)
	assert.JSONEq(t, `{"values": {"project": "smart-memory", "design": "yes"}}`, meta)
	assert.Equal(t, "2024-03-01T10:30:00.123456789Z", created)
}

func TestSQLiteInfo(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	require.NoError(t, r.Store(ctx, sampleMemory("one", 1)))

	info, err := r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Memories)
	assert.Equal(t, r.path, info.DBPath)
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	r, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	r.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "expected db file to be created")
}
