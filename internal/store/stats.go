package store

import (
	"context"
	"fmt"
	"os"
)

// Info describes the database file behind a SQLiteRepository.
type Info struct {
	DBPath      string `json:"db_path"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Memories    int    `json:"memories"`
}

// Info returns database statistics.
func (r *SQLiteRepository) Info(ctx context.Context) (*Info, error) {
	info := &Info{DBPath: r.path}

	if st, err := os.Stat(r.path); err == nil {
		info.DBSizeBytes = st.Size()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&info.Memories); err != nil {
		return info, fmt.Errorf("count memories: %w", err)
	}
	return info, nil
}
