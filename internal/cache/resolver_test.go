package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/mediawiki"
)

// fakeStore keeps articles in a map and counts writes.
type fakeStore struct {
	mu       sync.Mutex
	articles map[string]*domain.Article
	upserts  int
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{articles: make(map[string]*domain.Article)}
}

func articleKey(wikiID, pageID int64) string {
	return fmt.Sprintf("%d/%d", wikiID, pageID)
}

func (f *fakeStore) GetArticle(_ context.Context, wikiID, pageID int64) (*domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.articles[articleKey(wikiID, pageID)]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) UpsertArticle(_ context.Context, a *domain.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *a
	f.articles[articleKey(a.WikiID, a.PageID)] = &copied
	f.upserts++
	return nil
}

func (f *fakeStore) stored(wikiID, pageID int64) *domain.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.articles[articleKey(wikiID, pageID)]
}

// fakeFetcher answers remote calls from canned values and counts them.
type fakeFetcher struct {
	revision    *mediawiki.Revision
	revisionErr error
	content     *mediawiki.PageContent
	contentErr  error
	thumb       []byte
	thumbErr    error

	probes     atomic.Int64
	fetches    atomic.Int64
	thumbCalls atomic.Int64

	block chan struct{} // when non-nil, LatestRevision waits on it
}

func (f *fakeFetcher) LatestRevision(context.Context, *domain.Wiki, int64) (*mediawiki.Revision, error) {
	f.probes.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.revisionErr != nil {
		return nil, f.revisionErr
	}
	return f.revision, nil
}

func (f *fakeFetcher) PageContent(context.Context, *domain.Wiki, int64) (*mediawiki.PageContent, error) {
	f.fetches.Add(1)
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.content, nil
}

func (f *fakeFetcher) FetchBytes(context.Context, string) ([]byte, error) {
	f.thumbCalls.Add(1)
	return f.thumb, f.thumbErr
}

var testWiki = &domain.Wiki{ID: 1, Name: "Test", APIURL: "https://test.example/w/api.php"}

func newTestResolver(store Store, fetcher Fetcher, at time.Time) *Resolver {
	r := NewResolver(store, fetcher, 5*time.Minute, logger.New("error", false))
	r.now = func() time.Time { return at }
	return r
}

func TestResolveServesFreshCacheWithoutProbing(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "body",
		RevisionID: 7, CheckedAt: now.Add(-time.Minute).UnixMilli(),
	}
	fetcher := &fakeFetcher{}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Content != "body" {
		t.Errorf("content = %q, want cached body", got.Content)
	}
	if fetcher.probes.Load() != 0 {
		t.Errorf("probes = %d, want 0 while the check is fresh", fetcher.probes.Load())
	}
}

func TestResolveNeverCheckedAlwaysProbes(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "body", RevisionID: 7,
		// CheckedAt zero: the snapshot was written without a revision check.
	}
	fetcher := &fakeFetcher{revision: &mediawiki.Revision{ID: 7, Title: "Go"}}

	if _, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if fetcher.probes.Load() != 1 {
		t.Errorf("probes = %d, want 1 for an unchecked snapshot", fetcher.probes.Load())
	}
}

func TestResolveRevisionMatchRefreshesMetadata(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Old title", Content: "body", Starred: true,
		RevisionID: 7, CheckedAt: now.Add(-time.Hour).UnixMilli(),
	}
	fetcher := &fakeFetcher{revision: &mediawiki.Revision{ID: 7, Title: "New title"}}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Title != "New title" {
		t.Errorf("title = %q, want the probe's title", got.Title)
	}
	if got.Content != "body" || got.RevisionID != 7 {
		t.Errorf("content/revision changed on a matching revision: %+v", got)
	}
	if got.CheckedAt != now.UnixMilli() {
		t.Errorf("CheckedAt = %d, want bumped to now", got.CheckedAt)
	}
	if fetcher.fetches.Load() != 0 {
		t.Errorf("content fetches = %d, want 0 on a matching revision", fetcher.fetches.Load())
	}
	if stored := store.stored(1, 42); stored == nil || stored.CheckedAt != now.UnixMilli() {
		t.Error("refreshed check time was not persisted")
	}
}

func TestResolveRevisionChangedRefetches(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "old body", Starred: true,
		RevisionID: 7, CheckedAt: now.Add(-time.Hour).UnixMilli(),
	}
	fetcher := &fakeFetcher{
		revision: &mediawiki.Revision{ID: 8, Title: "Go"},
		content:  &mediawiki.PageContent{Extract: "new body", FullURL: "https://x/Go", ThumbURL: "https://x/t.jpg"},
		thumb:    []byte{1, 2, 3},
	}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Content != "new body" || got.RevisionID != 8 {
		t.Errorf("got %+v, want refetched body at revision 8", got)
	}
	if !got.Starred {
		t.Error("starred flag lost across the refetch")
	}
	if got.PageURL != "https://x/Go" {
		t.Errorf("page url = %q", got.PageURL)
	}
	if len(got.Thumbnail) != 3 {
		t.Errorf("thumbnail = %v, want fetched bytes", got.Thumbnail)
	}
}

func TestResolveSnippetIsTruncated(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	long := strings.Repeat("é", 150)
	fetcher := &fakeFetcher{
		revision: &mediawiki.Revision{ID: 1, Title: "Long"},
		content:  &mediawiki.PageContent{Extract: long},
	}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if want := strings.Repeat("é", snippetLength); got.Snippet != want {
		t.Errorf("snippet has %d runes, want %d (rune-safe cut)", len([]rune(got.Snippet)), snippetLength)
	}
}

func TestResolveThumbnailFetchedOnlyOnce(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "old", Thumbnail: []byte{9},
		RevisionID: 7, CheckedAt: now.Add(-time.Hour).UnixMilli(),
	}
	fetcher := &fakeFetcher{
		revision: &mediawiki.Revision{ID: 8, Title: "Go"},
		content:  &mediawiki.PageContent{Extract: "new", ThumbURL: "https://x/t2.jpg"},
	}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if fetcher.thumbCalls.Load() != 0 {
		t.Errorf("thumbnail downloads = %d, want 0 when bytes are cached", fetcher.thumbCalls.Load())
	}
	if len(got.Thumbnail) != 1 || got.Thumbnail[0] != 9 {
		t.Errorf("thumbnail = %v, want the cached bytes kept", got.Thumbnail)
	}
}

func TestResolveProbeFailureServesStale(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "body",
		RevisionID: 7, CheckedAt: now.Add(-time.Hour).UnixMilli(),
	}
	fetcher := &fakeFetcher{revisionErr: errors.New("network down")}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Content != "body" || got.RevisionID != 7 {
		t.Errorf("got %+v, want the stale snapshot untouched", got)
	}
	if store.upserts != 0 {
		t.Errorf("upserts = %d, want 0 when serving stale", store.upserts)
	}
}

func TestResolveProbeFailureWithoutCacheReturnsPlaceholder(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	fetcher := &fakeFetcher{revisionErr: errors.New("network down")}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Title != "Article 42" {
		t.Errorf("title = %q, want the synthesized placeholder", got.Title)
	}
	if got.Validated() {
		t.Error("placeholder claims to have been validated")
	}
	if store.upserts != 0 {
		t.Errorf("upserts = %d, placeholders must not be persisted", store.upserts)
	}
}

func TestResolveContentFailurePreservesCachedBody(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Snippet: "old sn", Content: "old body",
		PageURL: "https://x/Go", RevisionID: 7, CheckedAt: now.Add(-time.Hour).UnixMilli(),
	}
	fetcher := &fakeFetcher{
		revision:   &mediawiki.Revision{ID: 8, Title: "Go"},
		contentErr: errors.New("timeout"),
	}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Content != "old body" || got.Snippet != "old sn" {
		t.Errorf("got %+v, want the cached body preserved", got)
	}
	if got.RevisionID != 7 {
		t.Errorf("revision = %d, want 7: the body still reflects the old revision", got.RevisionID)
	}
	if got.CheckedAt != now.UnixMilli() {
		t.Errorf("CheckedAt = %d, want bumped to now", got.CheckedAt)
	}
}

func TestResolveContentFailureWithoutCache(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	fetcher := &fakeFetcher{
		revision:   &mediawiki.Revision{ID: 8, Title: "Go"},
		contentErr: errors.New("timeout"),
	}

	got, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, false)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if got.Content != "" || got.RevisionID != 8 || got.Title != "Go" {
		t.Errorf("got %+v, want an empty body tagged with the probed revision", got)
	}
	if store.stored(1, 42) == nil {
		t.Error("metadata-only snapshot was not persisted")
	}
}

func TestResolveSkipCacheForcesProbe(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	store.articles[articleKey(1, 42)] = &domain.Article{
		WikiID: 1, PageID: 42, Title: "Go", Content: "body",
		RevisionID: 7, CheckedAt: now.UnixMilli(), // perfectly fresh
	}
	fetcher := &fakeFetcher{revision: &mediawiki.Revision{ID: 7, Title: "Go"}}

	if _, err := newTestResolver(store, fetcher, now).Resolve(context.Background(), testWiki, 42, true); err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if fetcher.probes.Load() != 1 {
		t.Errorf("probes = %d, want 1 with skipCache", fetcher.probes.Load())
	}
	if fetcher.fetches.Load() != 0 {
		t.Errorf("fetches = %d, skipCache must not force a refetch of an unchanged page", fetcher.fetches.Load())
	}
}

func TestResolveRejectsBadArguments(t *testing.T) {
	r := newTestResolver(newFakeStore(), &fakeFetcher{}, time.Now())

	if _, err := r.Resolve(context.Background(), nil, 42, false); err == nil {
		t.Error("Resolve() accepted a nil wiki")
	}
	if _, err := r.Resolve(context.Background(), testWiki, 0, false); err == nil {
		t.Error("Resolve() accepted page id 0")
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("disk on fire")

	if _, err := newTestResolver(store, &fakeFetcher{}, time.Now()).Resolve(context.Background(), testWiki, 42, false); err == nil {
		t.Error("Resolve() swallowed a store read error")
	}
}

func TestResolveCollapsesConcurrentRequests(t *testing.T) {
	now := time.Now()
	store := newFakeStore()
	fetcher := &fakeFetcher{
		revision: &mediawiki.Revision{ID: 1, Title: "Go"},
		content:  &mediawiki.PageContent{Extract: "body"},
		block:    make(chan struct{}),
	}
	r := newTestResolver(store, fetcher, now)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(context.Background(), testWiki, 42, false); err != nil {
				t.Errorf("Resolve() failed: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond) // let all callers join the in-flight probe
	close(fetcher.block)
	wg.Wait()

	if got := fetcher.probes.Load(); got != 1 {
		t.Errorf("probes = %d, want 1 for collapsed concurrent requests", got)
	}
}
