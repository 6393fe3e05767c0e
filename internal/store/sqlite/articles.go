package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/offcache/wikicache/internal/domain"
)

const articleColumns = `wiki_id, page_id, starred, title, snippet, content, thumbnail, page_url, revision_id, checked_at`

// UpsertArticle atomically replaces the snapshot stored under the
// article's (wiki_id, page_id) key and publishes the change.
func (s *Store) UpsertArticle(ctx context.Context, a *domain.Article) error {
	if a.WikiID == 0 || a.PageID == 0 {
		return errors.New("article requires wiki id and page id")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(wiki_id, page_id) DO UPDATE SET
		     starred = excluded.starred,
		     title = excluded.title,
		     snippet = excluded.snippet,
		     content = excluded.content,
		     thumbnail = excluded.thumbnail,
		     page_url = excluded.page_url,
		     revision_id = excluded.revision_id,
		     checked_at = excluded.checked_at`,
		a.WikiID, a.PageID, a.Starred, a.Title, a.Snippet, a.Content,
		a.Thumbnail, a.PageURL, a.RevisionID, a.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert article %d/%d: %w", a.WikiID, a.PageID, err)
	}

	s.broker.Publish(domain.Change{Op: domain.ChangeUpsert, WikiID: a.WikiID, PageID: a.PageID})
	return nil
}

// GetArticle returns the cached snapshot for the key, or nil when none
// is cached. Store I/O failures are returned as errors.
func (s *Store) GetArticle(ctx context.Context, wikiID, pageID int64) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE wiki_id = ? AND page_id = ?`,
		wikiID, pageID)

	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d/%d: %w", wikiID, pageID, err)
	}
	return a, nil
}

// ArticlesByWiki returns every snapshot cached for a wiki.
func (s *Store) ArticlesByWiki(ctx context.Context, wikiID int64) ([]*domain.Article, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE wiki_id = ?`, wikiID)
}

// StarredByWiki returns the wiki's starred snapshots.
func (s *Store) StarredByWiki(ctx context.Context, wikiID int64) ([]*domain.Article, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE wiki_id = ? AND starred = 1`, wikiID)
}

// SearchByTitle matches cached titles by case-insensitive substring, in
// store order. A non-positive limit means unlimited.
func (s *Store) SearchByTitle(ctx context.Context, wikiID int64, query string, limit int) ([]*domain.Article, error) {
	if limit <= 0 {
		limit = -1 // sqlite: LIMIT -1 disables the cap
	}
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE wiki_id = ? AND title LIKE '%' || ? || '%'
		 LIMIT ?`,
		wikiID, query, limit)
}

// SetStarred flips the starred flag. It reports false when no snapshot
// exists under the key.
func (s *Store) SetStarred(ctx context.Context, wikiID, pageID int64, starred bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET starred = ? WHERE wiki_id = ? AND page_id = ?`,
		starred, wikiID, pageID)
	if err != nil {
		return false, fmt.Errorf("star article %d/%d: %w", wikiID, pageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("star article %d/%d: %w", wikiID, pageID, err)
	}
	if n == 0 {
		return false, nil
	}

	s.broker.Publish(domain.Change{Op: domain.ChangeUpsert, WikiID: wikiID, PageID: pageID})
	return true, nil
}

// DeleteArticle removes one snapshot and reports how many rows went away.
func (s *Store) DeleteArticle(ctx context.Context, wikiID, pageID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM articles WHERE wiki_id = ? AND page_id = ?`, wikiID, pageID)
	if err != nil {
		return 0, fmt.Errorf("delete article %d/%d: %w", wikiID, pageID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete article %d/%d: %w", wikiID, pageID, err)
	}
	if n > 0 {
		s.broker.Publish(domain.Change{Op: domain.ChangeDelete, WikiID: wikiID, PageID: pageID})
	}
	return n, nil
}

// DeleteArticlesByWiki clears a wiki's cache.
func (s *Store) DeleteArticlesByWiki(ctx context.Context, wikiID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE wiki_id = ?`, wikiID)
	if err != nil {
		return 0, fmt.Errorf("clear wiki %d: %w", wikiID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear wiki %d: %w", wikiID, err)
	}
	if n > 0 {
		s.broker.Publish(domain.Change{Op: domain.ChangeClear, WikiID: wikiID})
	}
	return n, nil
}

// DeleteAllArticles clears the whole cache across wikis.
func (s *Store) DeleteAllArticles(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	if n > 0 {
		s.broker.Publish(domain.Change{Op: domain.ChangeClear})
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.WikiID, &a.PageID, &a.Starred, &a.Title, &a.Snippet, &a.Content,
		&a.Thumbnail, &a.PageURL, &a.RevisionID, &a.CheckedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]*domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []*domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
