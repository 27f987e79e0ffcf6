package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite persistent tier. Documents survive process restarts;
// access tracking (last_accessed, access_count) mirrors the in-memory entry
// bookkeeping and feeds Prune.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore initializes the SQLite database at path, creating parent
// directories and the schema as needed.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS syntheses (
		key           TEXT PRIMARY KEY,
		value         TEXT NOT NULL,
		created_at    INTEGER NOT NULL,
		last_accessed INTEGER NOT NULL,
		access_count  INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get fetches a document and bumps its access tracking.
func (s *Store) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM syntheses WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store get: %w", err)
	}

	if _, err := s.db.Exec(
		"UPDATE syntheses SET last_accessed = ?, access_count = access_count + 1 WHERE key = ?",
		time.Now().Unix(), key,
	); err != nil {
		return "", false, fmt.Errorf("store touch: %w", err)
	}
	return value, true, nil
}

// Put upserts a document.
func (s *Store) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	_, err := s.db.Exec(`INSERT INTO syntheses (key, value, created_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, last_accessed = excluded.last_accessed`,
		key, value, now, now)
	if err != nil {
		return fmt.Errorf("store put: %w", err)
	}
	return nil
}

// Count reports the number of persisted documents.
func (s *Store) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM syntheses").Scan(&n); err != nil {
		return 0, fmt.Errorf("store count: %w", err)
	}
	return n, nil
}

// Prune removes documents not accessed within the retention window and
// reports how many were dropped.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.Exec("DELETE FROM syntheses WHERE last_accessed < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("store prune: %w", err)
	}
	return res.RowsAffected()
}

// Clear drops every persisted document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM syntheses"); err != nil {
		return fmt.Errorf("store clear: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
