// Package cache implements the decision logic in front of the store:
// when a cached snapshot is served as-is, when the remote is probed for
// a newer revision, and when the full content is refetched. It also
// routes keyword search between the local cache and the remote, and
// derives per-wiki storage usage.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
)

// DefaultTTL is how long a revision check is trusted before the remote
// is probed again.
const DefaultTTL = 5 * time.Minute

// snippetLength is the preview length cut from a freshly fetched body.
const snippetLength = 100

// Store is the persistence surface the resolver needs.
type Store interface {
	GetArticle(ctx context.Context, wikiID, pageID int64) (*domain.Article, error)
	UpsertArticle(ctx context.Context, a *domain.Article) error
}

// Fetcher is the remote surface the resolver needs: a cheap revision
// probe, the expensive content fetch and raw byte downloads for
// thumbnails.
type Fetcher interface {
	LatestRevision(ctx context.Context, wiki *domain.Wiki, pageID int64) (*mediawiki.Revision, error)
	PageContent(ctx context.Context, wiki *domain.Wiki, pageID int64) (*mediawiki.PageContent, error)
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// Resolver answers "give me this article" with the freshest snapshot it
// can, degrading gracefully when the remote is unreachable. Concurrent
// requests for the same article are collapsed into one.
type Resolver struct {
	store   Store
	fetcher Fetcher
	ttl     time.Duration
	logger  logger.Logger
	now     func() time.Time

	group singleflight.Group
}

// NewResolver builds a resolver. A non-positive ttl falls back to
// DefaultTTL.
func NewResolver(store Store, fetcher Fetcher, ttl time.Duration, log logger.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		logger:  log,
		now:     time.Now,
	}
}

// Resolve returns the article snapshot to serve for (wiki, pageID).
//
// The cached snapshot is served without touching the network while its
// last revision check is younger than the TTL. Past that, a cheap
// revision probe decides whether the expensive content fetch runs.
// skipCache forces the probe regardless of age; it never skips the
// revision comparison, so an unchanged page still avoids the full
// fetch.
//
// Remote failures degrade instead of erroring: with a cached snapshot
// the snapshot is served stale, without one a placeholder is returned
// (and not persisted). Errors are reserved for caller misuse and store
// I/O failures.
func (r *Resolver) Resolve(ctx context.Context, wiki *domain.Wiki, pageID int64, skipCache bool) (*domain.Article, error) {
	if wiki == nil || wiki.ID <= 0 {
		return nil, errors.New("cache: resolve requires a wiki")
	}
	if pageID <= 0 {
		return nil, fmt.Errorf("cache: invalid page id %d", pageID)
	}

	key := fmt.Sprintf("%d:%d:%t", wiki.ID, pageID, skipCache)
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.resolve(ctx, wiki, pageID, skipCache)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Article), nil
}

func (r *Resolver) resolve(ctx context.Context, wiki *domain.Wiki, pageID int64, skipCache bool) (*domain.Article, error) {
	cached, err := r.store.GetArticle(ctx, wiki.ID, pageID)
	if err != nil {
		return nil, err
	}

	nowMs := r.now().UnixMilli()
	if !skipCache && cached != nil && cached.CheckedAt != 0 &&
		nowMs-cached.CheckedAt < r.ttl.Milliseconds() {
		return cached, nil
	}

	rev, err := r.fetcher.LatestRevision(ctx, wiki, pageID)
	if err != nil {
		r.logger.Warn("revision probe failed, serving degraded",
			logger.Int64("wiki", wiki.ID),
			logger.Int64("page", pageID),
			logger.Error(err))
		if cached != nil {
			return cached, nil
		}
		// Never seen and unreachable: synthesize, do not persist.
		return &domain.Article{
			WikiID: wiki.ID,
			PageID: pageID,
			Title:  placeholderTitle(pageID),
		}, nil
	}

	if cached != nil && cached.RevisionID == rev.ID {
		// Content is still current; record the check and pick up any
		// title rename without paying for the body.
		fresh := *cached
		fresh.Title = rev.Title
		fresh.CheckedAt = nowMs
		if err := r.store.UpsertArticle(ctx, &fresh); err != nil {
			return nil, err
		}
		return &fresh, nil
	}

	return r.refetch(ctx, wiki, pageID, cached, rev, nowMs)
}

// refetch downloads the full content and replaces the stored snapshot.
// cached may be nil.
func (r *Resolver) refetch(ctx context.Context, wiki *domain.Wiki, pageID int64, cached *domain.Article, rev *mediawiki.Revision, nowMs int64) (*domain.Article, error) {
	fresh := &domain.Article{
		WikiID:     wiki.ID,
		PageID:     pageID,
		Title:      rev.Title,
		RevisionID: rev.ID,
		CheckedAt:  nowMs,
	}
	if cached != nil {
		fresh.Starred = cached.Starred
		fresh.Thumbnail = cached.Thumbnail
	}

	content, err := r.fetcher.PageContent(ctx, wiki, pageID)
	if err != nil {
		r.logger.Warn("content fetch failed",
			logger.Int64("wiki", wiki.ID),
			logger.Int64("page", pageID),
			logger.Error(err))
		if cached != nil {
			// Keep the old body and the revision it reflects rather
			// than storing a newer revision id over stale content.
			fresh.Snippet = cached.Snippet
			fresh.Content = cached.Content
			fresh.PageURL = cached.PageURL
			fresh.RevisionID = cached.RevisionID
		}
		if err := r.store.UpsertArticle(ctx, fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	}

	fresh.Content = content.Extract
	fresh.Snippet = snippet(content.Extract)
	fresh.PageURL = content.FullURL

	// Thumbnails are fetched once and then kept for the article's
	// lifetime; a changed remote image does not invalidate them.
	if fresh.Thumbnail == nil && content.ThumbURL != "" {
		thumb, err := r.fetcher.FetchBytes(ctx, content.ThumbURL)
		if err != nil {
			r.logger.Warn("thumbnail fetch failed",
				logger.Int64("wiki", wiki.ID),
				logger.Int64("page", pageID),
				logger.Error(err))
		} else {
			fresh.Thumbnail = thumb
		}
	}

	if err := r.store.UpsertArticle(ctx, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// snippet cuts the preview from a full body.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength])
}

func placeholderTitle(pageID int64) string {
	return fmt.Sprintf("Article %d", pageID)
}
