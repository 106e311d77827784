package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bigbluebutton/bbb-frame-monitor/internal/config"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLite)(nil)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite keeps snapshots in a single key/value table.
type SQLite struct {
	db    *sql.DB
	table string
}

func NewSQLite(cfg config.SQLiteStore) (*SQLite, error) {
	table := cfg.Table
	if table == "" {
		table = "frameratemonitor"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}

	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases shared and serializes writes
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, table: table}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLite) ensureSchema() error {
	_, err := s.db.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL,
  stored_at TEXT NOT NULL
);`, s.table))
	if err != nil {
		return fmt.Errorf("failed to create sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (key, value, stored_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`, s.table),
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table), key).Scan(&value)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
