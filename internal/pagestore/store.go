// Package pagestore keeps the page index: which pages exist, where their
// source lives, and the content hash of the last build. It also records
// indexing and build runs.
//
// A Store satisfies site.Lookup, so it can decide red links directly.
package pagestore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/wikidom/pkg/site"
)

// ErrNotOpen is returned when the store has no database connection.
var ErrNotOpen = errors.New("database not opened")

// ErrRunNotFound is returned when completing an unknown run.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed page index.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ site.Lookup = (*Store)(nil)

// Open opens (creating if needed) the page index at path and applies
// pending migrations. Use ":memory:" for an in-memory index.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open page index: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping page index: %w", err)
	}

	s := New(db, logger)
	s.path = path
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("opened page index", "path", path)
	return s, nil
}

// New wraps an existing connection. The schema is assumed to be current.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// Path returns the database path given to Open.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HashContent returns the content hash stored for page sources.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// generateID creates a new run id.
func generateID() string {
	return uuid.New().String()
}
