package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/smart-memory/internal/model"
)

// SQLiteRepository implements Repository on a single SQLite connection.
// Every statement runs under mu, so callers serialize at the connection.
type SQLiteRepository struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewSQLiteRepository opens or creates a SQLite database at the given path.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &SQLiteRepository{db: db, path: dbPath}

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id            TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		content_type  TEXT NOT NULL,
		category      TEXT,
		mode          TEXT,
		metadata_json TEXT NOT NULL,
		token_count   INTEGER NOT NULL,
		created_at    TEXT NOT NULL,
		last_accessed TEXT NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// metadataJSON is the on-disk shape of the metadata column.
type metadataJSON struct {
	Values map[string]string `json:"values"`
}

func (r *SQLiteRepository) Store(ctx context.Context, m model.Memory) error {
	values := m.Metadata
	if values == nil {
		values = map[string]string{}
	}
	meta, err := json.Marshal(metadataJSON{Values: values})
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO memories (id, content, content_type, category, mode, metadata_json, token_count, created_at, last_accessed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID), m.Content, m.ContentType, nullString(m.Category), nullString(m.Mode),
		string(meta), m.TokenCount.Int(),
		formatTime(m.CreatedAt), formatTime(m.LastAccessed))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Retrieve(ctx context.Context, id model.MemoryID) (model.Memory, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx,
		`SELECT id, content, content_type, category, mode, metadata_json, token_count, created_at, last_accessed
		 FROM memories WHERE id = ?`, string(id))
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Memory{}, false, nil
	}
	if err != nil {
		return model.Memory{}, false, fmt.Errorf("select memory: %w", err)
	}
	return m, true, nil
}

// Touch moves last_accessed forward only. Stored values are RFC3339Nano, which
// does not sort as text, so the comparison is done on parsed times under mu.
func (r *SQLiteRepository) Touch(ctx context.Context, id model.MemoryID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current string
	err := r.db.QueryRowContext(ctx,
		`SELECT last_accessed FROM memories WHERE id = ?`, string(id)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select last_accessed: %w", err)
	}
	prev, err := time.Parse(time.RFC3339Nano, current)
	if err != nil {
		return fmt.Errorf("parse last_accessed of %s: %w", id, err)
	}
	if !at.After(prev) {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE memories SET last_accessed = ? WHERE id = ?`, formatTime(at), string(id))
	if err != nil {
		return fmt.Errorf("update last_accessed: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AllIDs(ctx context.Context) ([]model.MemoryID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM memories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select ids: %w", err)
	}
	defer rows.Close()

	var ids []model.MemoryID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, model.MemoryID(id))
	}
	return ids, rows.Err()
}

func (r *SQLiteRepository) TotalTokens(ctx context.Context) (model.TokenCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(token_count), 0) FROM memories`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum tokens: %w", err)
	}
	return model.NewTokenCount(int(total)), nil
}

func (r *SQLiteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var id, meta, createdAt, lastAccessed string
	var category, mode sql.NullString
	var tokens int64

	err := row.Scan(&id, &m.Content, &m.ContentType, &category, &mode, &meta, &tokens, &createdAt, &lastAccessed)
	if err != nil {
		return m, err
	}

	m.ID = model.MemoryID(id)
	m.Category = category.String
	m.Mode = mode.String
	m.TokenCount = model.NewTokenCount(int(tokens))

	var md metadataJSON
	if err := json.Unmarshal([]byte(meta), &md); err != nil {
		return m, fmt.Errorf("decode metadata of %s: %w", id, err)
	}
	if len(md.Values) > 0 {
		m.Metadata = md.Values
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return m, fmt.Errorf("parse created_at of %s: %w", id, err)
	}
	if m.LastAccessed, err = time.Parse(time.RFC3339Nano, lastAccessed); err != nil {
		return m, fmt.Errorf("parse last_accessed of %s: %w", id, err)
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
