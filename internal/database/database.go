// Package database stores statistics runs and their result documents in
// SQLite.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/hackthis02/statistics-for-emby-server-CORE/internal/aggregate"
)

// ErrNoResults is returned by LatestResults before the first successful run.
var ErrNoResults = aggregate.ErrNoResults

// StatsDB is the result store.
type StatsDB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
	// keep bounds the stored result documents. Zero keeps all.
	keep int
}

var _ aggregate.Store = (*StatsDB)(nil)

// OpenPath opens or creates the database at a specific path
func OpenPath(path string) (*StatsDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(db, path)
}

// OpenInMemory opens an in-memory database for testing
func OpenInMemory() (*StatsDB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// every connection would get its own empty in-memory database
	db.SetMaxOpenConns(1)
	return open(db, ":memory:")
}

func open(db *sql.DB, path string) (*StatsDB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sdb := &StatsDB{db: db, path: path}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return sdb, nil
}

// SetRetention keeps only the newest n result documents after each save.
func (s *StatsDB) SetRetention(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keep = max(n, 0)
}

func (s *StatsDB) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path to the database file
func (s *StatsDB) Path() string {
	return s.path
}

// SchemaVersion returns the applied migration version.
func (s *StatsDB) SchemaVersion() (int, error) {
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&v)
	return v, err
}
