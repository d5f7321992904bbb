package persist

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// SQLiteStore persists values in a single kv table.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
}

// NewSQLiteStore opens (or creates) the database at path. When the database
// cannot be opened the store falls back to a FileStore in the same directory.
func NewSQLiteStore(path string) *SQLiteStore {
	dir := filepath.Dir(path)
	fallback := &SQLiteStore{path: path, fallback: NewFileStore(dir)}
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return fallback
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fallback
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return fallback
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

// Get implements ports.KVStore.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.db == nil {
		return s.fallback.Get(ctx, key)
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set upserts the value.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if s.db == nil {
		return s.fallback.Set(ctx, key, value)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Delete removes the key.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if s.db == nil {
		return s.fallback.Delete(ctx, key)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Degraded reports whether the store is running on the file fallback.
func (s *SQLiteStore) Degraded() bool {
	return s.db == nil
}

var _ ports.KVStore = (*SQLiteStore)(nil)
