package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/store/notify"
)

type fakeUsageStore struct {
	mu       sync.Mutex
	articles []*domain.Article
}

func (f *fakeUsageStore) ArticlesByWiki(_ context.Context, wikiID int64) ([]*domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Article
	for _, a := range f.articles {
		if a.WikiID == wikiID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeUsageStore) set(articles []*domain.Article) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articles = articles
}

func receiveEstimate(t *testing.T, ch <-chan domain.StorageEstimate) domain.StorageEstimate {
	t.Helper()
	select {
	case est, ok := <-ch:
		if !ok {
			t.Fatal("estimate channel closed unexpectedly")
		}
		return est
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an estimate")
		return domain.StorageEstimate{}
	}
}

func TestEstimate(t *testing.T) {
	store := &fakeUsageStore{articles: []*domain.Article{
		{WikiID: 1, PageID: 10, Title: "Go", Content: "body"},
		{WikiID: 1, PageID: 11, Title: "Gopher"},
		{WikiID: 2, PageID: 10, Title: "Other wiki"},
	}}
	a := NewAccountant(store, notify.NewBroker(), logger.New("error", false))

	est, err := a.Estimate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Estimate() failed: %v", err)
	}
	if est.ArticleCount != 2 {
		t.Errorf("count = %d, want 2 (other wikis excluded)", est.ArticleCount)
	}
	want := int64(2*domain.ArticleSizeOverhead + len("Go") + len("body") + len("Gopher"))
	if est.TotalBytes != want {
		t.Errorf("total = %d, want %d", est.TotalBytes, want)
	}
}

func TestWatchEmitsInitialEstimate(t *testing.T) {
	store := &fakeUsageStore{articles: []*domain.Article{{WikiID: 1, PageID: 10, Title: "Go"}}}
	a := NewAccountant(store, notify.NewBroker(), logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx, 1)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if est := receiveEstimate(t, ch); est.ArticleCount != 1 {
		t.Errorf("initial count = %d, want 1", est.ArticleCount)
	}
}

func TestWatchRecomputesOnChange(t *testing.T) {
	store := &fakeUsageStore{}
	broker := notify.NewBroker()
	a := NewAccountant(store, broker, logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx, 1)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	if est := receiveEstimate(t, ch); est.ArticleCount != 0 {
		t.Fatalf("initial count = %d, want 0", est.ArticleCount)
	}

	store.set([]*domain.Article{{WikiID: 1, PageID: 10, Title: "Go"}})
	broker.Publish(domain.Change{Op: domain.ChangeUpsert, WikiID: 1, PageID: 10})

	if est := receiveEstimate(t, ch); est.ArticleCount != 1 {
		t.Errorf("count after upsert = %d, want 1", est.ArticleCount)
	}
}

func TestWatchGlobalClearTriggersRecompute(t *testing.T) {
	store := &fakeUsageStore{articles: []*domain.Article{{WikiID: 1, PageID: 10, Title: "Go"}}}
	broker := notify.NewBroker()
	a := NewAccountant(store, broker, logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx, 1)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	receiveEstimate(t, ch)

	store.set(nil)
	broker.Publish(domain.Change{Op: domain.ChangeClear}) // wiki id 0: everything

	if est := receiveEstimate(t, ch); est.ArticleCount != 0 {
		t.Errorf("count after global clear = %d, want 0", est.ArticleCount)
	}
}

func TestWatchIgnoresOtherWikis(t *testing.T) {
	store := &fakeUsageStore{}
	broker := notify.NewBroker()
	a := NewAccountant(store, broker, logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Watch(ctx, 1)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	receiveEstimate(t, ch)

	// A change on wiki 2 must not produce an estimate for wiki 1; the
	// following wiki 1 change must.
	store.set([]*domain.Article{{WikiID: 1, PageID: 10, Title: "Go"}})
	broker.Publish(domain.Change{Op: domain.ChangeUpsert, WikiID: 2, PageID: 99})
	broker.Publish(domain.Change{Op: domain.ChangeUpsert, WikiID: 1, PageID: 10})

	if est := receiveEstimate(t, ch); est.ArticleCount != 1 {
		t.Errorf("count = %d, want 1 from the wiki 1 change", est.ArticleCount)
	}
	select {
	case est, ok := <-ch:
		if ok {
			t.Errorf("unexpected extra estimate %+v from a foreign wiki change", est)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	broker := notify.NewBroker()
	a := NewAccountant(&fakeUsageStore{}, broker, logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := a.Watch(ctx, 1)
	if err != nil {
		t.Fatalf("Watch() failed: %v", err)
	}
	receiveEstimate(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received an estimate after cancel, want a closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Error("channel not closed after cancel")
	}

	deadline := time.Now().Add(2 * time.Second)
	for broker.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("broker subscription leaked after cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
