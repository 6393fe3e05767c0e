// Package scheduler runs the background jobs of the daemon. Currently
// that is one job: keeping starred articles fresh while the network is
// reachable, so they are readable later without it.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/offcache/wikicache/internal/connectivity"
	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
)

// RefreshStore lists the wikis and their starred articles.
type RefreshStore interface {
	Wikis(ctx context.Context) ([]*domain.Wiki, error)
	StarredByWiki(ctx context.Context, wikiID int64) ([]*domain.Article, error)
}

// ArticleResolver re-validates one article against its remote.
type ArticleResolver interface {
	Resolve(ctx context.Context, wiki *domain.Wiki, pageID int64, skipCache bool) (*domain.Article, error)
}

// StarredRefresher handles periodic refresh of starred articles
type StarredRefresher struct {
	store         RefreshStore
	resolver      ArticleResolver
	oracle        connectivity.Oracle
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewStarredRefresher creates a new starred refresher. An interval of 0
// disables the periodic run; manual triggers still work.
func NewStarredRefresher(
	store RefreshStore,
	resolver ArticleResolver,
	oracle connectivity.Oracle,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *StarredRefresher {
	return &StarredRefresher{
		store:         store,
		resolver:      resolver,
		oracle:        oracle,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic refresh process
func (sr *StarredRefresher) Start(ctx context.Context) error {
	var tick <-chan time.Time
	if sr.interval > 0 {
		ticker := time.NewTicker(sr.interval)
		tick = ticker.C
		go func() {
			<-sr.stopCh
			ticker.Stop()
		}()
	}

	go func() {
		for {
			select {
			case <-tick:
				if err := sr.Refresh(ctx); err != nil {
					sr.logger.Error("starred refresh failed",
						logger.Error(err))
				}
			case <-sr.manualTrigger:
				sr.logger.Info("manual starred refresh triggered")
				if err := sr.Refresh(ctx); err != nil {
					sr.logger.Error("starred refresh failed",
						logger.Error(err))
				}
			case <-sr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the refresher. Safe to call more than once.
func (sr *StarredRefresher) Stop() {
	sr.stopOnce.Do(func() { close(sr.stopCh) })
}

// Refresh re-validates every starred article across all wikis. A run
// while offline is skipped entirely; resolving offline would only burn
// the probe timeout per article.
func (sr *StarredRefresher) Refresh(ctx context.Context) error {
	if !sr.oracle.Online(ctx) {
		sr.logger.Debug("skipping starred refresh while offline")
		return nil
	}

	wikis, err := sr.store.Wikis(ctx)
	if err != nil {
		return err
	}

	refreshed := 0
	for _, wiki := range wikis {
		starred, err := sr.store.StarredByWiki(ctx, wiki.ID)
		if err != nil {
			sr.logger.Error("failed to list starred articles",
				logger.Int64("wiki", wiki.ID),
				logger.Error(err))
			continue
		}

		for _, article := range starred {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := sr.resolver.Resolve(ctx, wiki, article.PageID, false); err != nil {
				sr.logger.Warn("failed to refresh starred article",
					logger.Int64("wiki", wiki.ID),
					logger.Int64("page", article.PageID),
					logger.Error(err))
				continue
			}
			refreshed++
		}
	}

	sr.logger.Info("starred refresh completed",
		logger.Int("refreshed", refreshed))
	return nil
}
