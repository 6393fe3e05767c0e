package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/offcache/wikicache/internal/connectivity"
	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
)

type fakeSearchStore struct {
	results []*domain.Article
	queries int
}

func (f *fakeSearchStore) SearchByTitle(_ context.Context, _ int64, _ string, _ int) ([]*domain.Article, error) {
	f.queries++
	return f.results, nil
}

type fakeRemote struct {
	hits    []mediawiki.SearchResult
	err     error
	queries int
}

func (f *fakeRemote) SearchTitles(_ context.Context, _ *domain.Wiki, _ string, _ int) ([]mediawiki.SearchResult, error) {
	f.queries++
	return f.hits, f.err
}

type fakeResultCache struct {
	entries map[string][]*domain.Article
	puts    int
}

func newFakeResultCache() *fakeResultCache {
	return &fakeResultCache{entries: make(map[string][]*domain.Article)}
}

func cacheKey(wikiID int64, query string, limit int) string {
	return fmt.Sprintf("%d:%d:%s", wikiID, limit, query)
}

func (f *fakeResultCache) Get(_ context.Context, wikiID int64, query string, limit int) ([]*domain.Article, error) {
	return f.entries[cacheKey(wikiID, query, limit)], nil
}

func (f *fakeResultCache) Put(_ context.Context, wikiID int64, query string, limit int, results []*domain.Article) error {
	f.entries[cacheKey(wikiID, query, limit)] = results
	f.puts++
	return nil
}

func newTestSearcher(store SearchStore, remote RemoteSearcher, online bool, results ResultCache) *Searcher {
	return NewSearcher(store, remote, connectivity.Static(online), results, logger.New("error", false))
}

func TestSearchRequiresWiki(t *testing.T) {
	s := newTestSearcher(&fakeSearchStore{}, &fakeRemote{}, true, nil)

	if _, err := s.Search(context.Background(), nil, "go", domain.SearchAuto, 10); err == nil {
		t.Error("Search() accepted a nil wiki")
	}
	if _, err := s.Search(context.Background(), &domain.Wiki{}, "go", domain.SearchAuto, 10); err == nil {
		t.Error("Search() accepted a wiki without an id")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	store := &fakeSearchStore{}
	remote := &fakeRemote{}

	got, err := newTestSearcher(store, remote, true, nil).Search(context.Background(), testWiki, "   ", domain.SearchAuto, 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() = %d results for a blank query, want 0", len(got))
	}
	if store.queries != 0 || remote.queries != 0 {
		t.Error("a blank query reached a backend")
	}
}

func TestSearchCacheOnlyIgnoresConnectivity(t *testing.T) {
	store := &fakeSearchStore{results: []*domain.Article{{WikiID: 1, PageID: 5, Title: "Go"}}}
	remote := &fakeRemote{hits: []mediawiki.SearchResult{{PageID: 9, Title: "Remote"}}}

	got, err := newTestSearcher(store, remote, true, nil).Search(context.Background(), testWiki, "go", domain.SearchCacheOnly, 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != 1 || got[0].PageID != 5 {
		t.Errorf("Search() = %+v, want the local hit", got)
	}
	if remote.queries != 0 {
		t.Error("cache-only search hit the remote")
	}
}

func TestSearchOnlineMapsHits(t *testing.T) {
	store := &fakeSearchStore{}
	remote := &fakeRemote{hits: []mediawiki.SearchResult{
		{PageID: 9, Title: "Go", Snippet: "a language"},
	}}

	got, err := newTestSearcher(store, remote, false, nil).Search(context.Background(), testWiki, "go", domain.SearchOnlineOnly, 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Search() = %d results, want 1", len(got))
	}
	hit := got[0]
	if hit.WikiID != testWiki.ID || hit.PageID != 9 || hit.Title != "Go" || hit.Snippet != "a language" {
		t.Errorf("mapped hit = %+v", hit)
	}
	if hit.Validated() || hit.Content != "" {
		t.Errorf("search preview carries snapshot state: %+v", hit)
	}
}

func TestSearchAutoRoutesByConnectivity(t *testing.T) {
	tests := []struct {
		name       string
		online     bool
		wantLocal  int
		wantRemote int
	}{
		{"online goes remote", true, 0, 1},
		{"offline goes local", false, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeSearchStore{}
			remote := &fakeRemote{}

			if _, err := newTestSearcher(store, remote, tt.online, nil).Search(context.Background(), testWiki, "go", domain.SearchAuto, 10); err != nil {
				t.Fatalf("Search() failed: %v", err)
			}
			if store.queries != tt.wantLocal || remote.queries != tt.wantRemote {
				t.Errorf("local=%d remote=%d, want local=%d remote=%d",
					store.queries, remote.queries, tt.wantLocal, tt.wantRemote)
			}
		})
	}
}

func TestSearchRemoteFailureReturnsEmpty(t *testing.T) {
	remote := &fakeRemote{err: errors.New("boom")}

	got, err := newTestSearcher(&fakeSearchStore{}, remote, true, nil).Search(context.Background(), testWiki, "go", domain.SearchOnlineOnly, 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Search() = %d results after a remote failure, want 0", len(got))
	}
}

func TestSearchUsesResultCache(t *testing.T) {
	remote := &fakeRemote{hits: []mediawiki.SearchResult{{PageID: 9, Title: "Go"}}}
	results := newFakeResultCache()
	s := newTestSearcher(&fakeSearchStore{}, remote, true, results)

	if _, err := s.Search(context.Background(), testWiki, "go", domain.SearchOnlineOnly, 10); err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if results.puts != 1 {
		t.Fatalf("result cache puts = %d, want 1", results.puts)
	}

	if _, err := s.Search(context.Background(), testWiki, "go", domain.SearchOnlineOnly, 10); err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if remote.queries != 1 {
		t.Errorf("remote queries = %d, want 1: second call should hit the result cache", remote.queries)
	}
}
