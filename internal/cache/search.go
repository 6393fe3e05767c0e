package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/offcache/wikicache/internal/connectivity"
	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
)

// SearchStore is the local side of search: substring matching over
// cached titles.
type SearchStore interface {
	SearchByTitle(ctx context.Context, wikiID int64, query string, limit int) ([]*domain.Article, error)
}

// RemoteSearcher is the online side of search.
type RemoteSearcher interface {
	SearchTitles(ctx context.Context, wiki *domain.Wiki, query string, limit int) ([]mediawiki.SearchResult, error)
}

// ResultCache short-circuits repeated online searches. Optional; a nil
// cache disables it.
type ResultCache interface {
	Get(ctx context.Context, wikiID int64, query string, limit int) ([]*domain.Article, error)
	Put(ctx context.Context, wikiID int64, query string, limit int, results []*domain.Article) error
}

// Searcher routes a keyword query to the local cache or the remote
// wiki depending on the requested source and current connectivity.
type Searcher struct {
	store   SearchStore
	remote  RemoteSearcher
	oracle  connectivity.Oracle
	results ResultCache
	logger  logger.Logger
}

// NewSearcher builds a searcher. results may be nil.
func NewSearcher(store SearchStore, remote RemoteSearcher, oracle connectivity.Oracle, results ResultCache, log logger.Logger) *Searcher {
	return &Searcher{
		store:   store,
		remote:  remote,
		oracle:  oracle,
		results: results,
		logger:  log,
	}
}

// Search runs a keyword query against one wiki.
//
// SearchAuto consults connectivity once per call and routes the whole
// query to one side; results are never merged across sides. Online
// results are search previews (title and snippet only), not cached
// snapshots, and are not written to the article store. A remote failure
// returns an empty list rather than an error, matching the offline
// experience.
func (s *Searcher) Search(ctx context.Context, wiki *domain.Wiki, query string, source domain.SearchSource, limit int) ([]*domain.Article, error) {
	if wiki == nil || wiki.ID <= 0 {
		return nil, errors.New("cache: search requires a wiki")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Article{}, nil
	}

	online := false
	switch source {
	case domain.SearchCacheOnly:
		online = false
	case domain.SearchOnlineOnly:
		online = true
	default:
		online = s.oracle.Online(ctx)
	}

	if !online {
		return s.store.SearchByTitle(ctx, wiki.ID, query, limit)
	}
	return s.searchOnline(ctx, wiki, query, limit), nil
}

func (s *Searcher) searchOnline(ctx context.Context, wiki *domain.Wiki, query string, limit int) []*domain.Article {
	if s.results != nil {
		cached, err := s.results.Get(ctx, wiki.ID, query, limit)
		if err != nil {
			s.logger.Warn("search result cache read failed", logger.Error(err))
		} else if cached != nil {
			return cached
		}
	}

	hits, err := s.remote.SearchTitles(ctx, wiki, query, limit)
	if err != nil {
		s.logger.Warn("remote search failed",
			logger.Int64("wiki", wiki.ID),
			logger.String("query", query),
			logger.Error(err))
		return []*domain.Article{}
	}

	articles := make([]*domain.Article, 0, len(hits))
	for _, hit := range hits {
		articles = append(articles, &domain.Article{
			WikiID:  wiki.ID,
			PageID:  hit.PageID,
			Title:   hit.Title,
			Snippet: hit.Snippet,
		})
	}

	if s.results != nil {
		if err := s.results.Put(ctx, wiki.ID, query, limit, articles); err != nil {
			s.logger.Warn("search result cache write failed", logger.Error(err))
		}
	}
	return articles
}
