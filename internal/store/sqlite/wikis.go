package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/offcache/wikicache/internal/domain"
)

// DefaultWiki is inserted by Seed when the wikis table is empty, so a
// fresh install always has a usable site.
var DefaultWiki = domain.Wiki{
	ID:     1,
	Name:   "Wikipedia",
	APIURL: "https://en.wikipedia.org/w/api.php",
}

// Seed inserts the default wiki when no wikis exist yet.
func (s *Store) Seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wikis`).Scan(&count); err != nil {
		return fmt.Errorf("count wikis: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wikis (id, name, api_url, auth_username, auth_password) VALUES (?, ?, ?, '', '')`,
		DefaultWiki.ID, DefaultWiki.Name, DefaultWiki.APIURL,
	)
	if err != nil {
		return fmt.Errorf("seed default wiki: %w", err)
	}
	return nil
}

// UpsertWiki inserts a new wiki (ID zero) or replaces the configuration
// of an existing one. On insert the assigned id is written back.
func (s *Store) UpsertWiki(ctx context.Context, w *domain.Wiki) error {
	if w.Name == "" || w.APIURL == "" {
		return errors.New("wiki requires name and api url")
	}

	if w.ID == 0 {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO wikis (name, api_url, auth_username, auth_password) VALUES (?, ?, ?, ?)`,
			w.Name, w.APIURL, w.AuthUsername, w.AuthPassword,
		)
		if err != nil {
			return fmt.Errorf("insert wiki: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert wiki id: %w", err)
		}
		w.ID = id
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wikis (id, name, api_url, auth_username, auth_password) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     name = excluded.name,
		     api_url = excluded.api_url,
		     auth_username = excluded.auth_username,
		     auth_password = excluded.auth_password`,
		w.ID, w.Name, w.APIURL, w.AuthUsername, w.AuthPassword,
	)
	if err != nil {
		return fmt.Errorf("upsert wiki %d: %w", w.ID, err)
	}
	return nil
}

// GetWiki returns the wiki by id, or ErrWikiNotFound.
func (s *Store) GetWiki(ctx context.Context, id int64) (*domain.Wiki, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, api_url, auth_username, auth_password FROM wikis WHERE id = ?`, id)

	var w domain.Wiki
	err := row.Scan(&w.ID, &w.Name, &w.APIURL, &w.AuthUsername, &w.AuthPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWikiNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get wiki %d: %w", id, err)
	}
	return &w, nil
}

// Wikis returns every configured wiki ordered by id.
func (s *Store) Wikis(ctx context.Context) ([]*domain.Wiki, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, api_url, auth_username, auth_password FROM wikis ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list wikis: %w", err)
	}
	defer rows.Close()

	var wikis []*domain.Wiki
	for rows.Next() {
		var w domain.Wiki
		if err := rows.Scan(&w.ID, &w.Name, &w.APIURL, &w.AuthUsername, &w.AuthPassword); err != nil {
			return nil, fmt.Errorf("scan wiki: %w", err)
		}
		wikis = append(wikis, &w)
	}
	return wikis, rows.Err()
}

// DeleteWiki removes a wiki and, through the foreign key cascade, every
// article cached for it. Protected ids are refused with
// ErrProtectedWiki; a missing id returns ErrWikiNotFound.
func (s *Store) DeleteWiki(ctx context.Context, id int64) error {
	if s.protected(id) {
		return fmt.Errorf("delete wiki %d: %w", id, ErrProtectedWiki)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM wikis WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wiki %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wiki %d: %w", id, err)
	}
	if n == 0 {
		return ErrWikiNotFound
	}

	// articles vanished via cascade; observers must recompute
	s.broker.Publish(domain.Change{Op: domain.ChangeClear, WikiID: id})
	return nil
}
