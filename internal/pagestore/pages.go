package pagestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Page is an indexed page.
type Page struct {
	Name        string // expanded page name, e.g. "Help:Contents"
	Path        string // source file
	ContentHash string
	UpdatedAt   time.Time
}

// UpsertPage inserts or replaces the index entry for p.Name.
func (s *Store) UpsertPage(ctx context.Context, p Page) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (name, path, content_hash, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET path = excluded.path,
		   content_hash = excluded.content_hash, updated_at = excluded.updated_at`,
		p.Name, p.Path, p.ContentHash, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert page %q: %w", p.Name, err)
	}
	return nil
}

// DeletePage removes a page from the index.
func (s *Store) DeletePage(ctx context.Context, name string) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete page %q: %w", name, err)
	}
	return nil
}

// GetPage returns the index entry for name, or nil when it is unknown.
func (s *Store) GetPage(ctx context.Context, name string) (*Page, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	p := &Page{}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, path, content_hash, updated_at FROM pages WHERE name = ?`, name,
	).Scan(&p.Name, &p.Path, &p.ContentHash, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %q: %w", name, err)
	}
	return p, nil
}

// ListPages returns all indexed pages ordered by name.
func (s *Store) ListPages(ctx context.Context) ([]Page, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, path, content_hash, updated_at FROM pages ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.Name, &p.Path, &p.ContentHash, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// ContentHash returns the stored content hash for name. Unknown pages
// return an empty hash.
func (s *Store) ContentHash(ctx context.Context, name string) (string, error) {
	if s.db == nil {
		return "", ErrNotOpen
	}

	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT content_hash FROM pages WHERE name = ?`, name).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get content hash: %w", err)
	}
	return hash, nil
}

// PageExists implements site.Lookup. Lookup failures are logged and
// reported as missing pages.
func (s *Store) PageExists(name string) bool {
	if s.db == nil {
		return false
	}

	var one int
	err := s.db.QueryRow(`SELECT 1 FROM pages WHERE name = ?`, name).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false
	case err != nil:
		s.logger.Warn("page lookup failed", "page", name, "error", err)
		return false
	}
	return true
}
