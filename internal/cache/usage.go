package cache

import (
	"context"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/store/notify"
)

// UsageStore is the read surface the accountant folds over.
type UsageStore interface {
	ArticlesByWiki(ctx context.Context, wikiID int64) ([]*domain.Article, error)
}

// Accountant derives per-wiki storage usage from the article store.
// Estimates are always recomputed from current rows, never maintained
// incrementally, so a missed change event only delays an update.
type Accountant struct {
	store  UsageStore
	broker *notify.Broker
	logger logger.Logger
}

// NewAccountant builds an accountant over store, watching broker for
// changes.
func NewAccountant(store UsageStore, broker *notify.Broker, log logger.Logger) *Accountant {
	return &Accountant{store: store, broker: broker, logger: log}
}

// Estimate computes the wiki's current storage usage.
func (a *Accountant) Estimate(ctx context.Context, wikiID int64) (domain.StorageEstimate, error) {
	articles, err := a.store.ArticlesByWiki(ctx, wikiID)
	if err != nil {
		return domain.StorageEstimate{}, err
	}
	return domain.EstimateStorage(articles), nil
}

// Watch emits the current estimate immediately, then a fresh one after
// every relevant store change, until ctx is cancelled. The returned
// channel holds at most the latest estimate; a slow reader sees
// intermediate values replaced, not queued.
func (a *Accountant) Watch(ctx context.Context, wikiID int64) (<-chan domain.StorageEstimate, error) {
	initial, err := a.Estimate(ctx, wikiID)
	if err != nil {
		return nil, err
	}

	changes, cancel := a.broker.Subscribe(0)
	out := make(chan domain.StorageEstimate, 1)
	out <- initial

	go func() {
		defer cancel()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if !concernsWiki(c, wikiID) {
					continue
				}
				est, err := a.Estimate(ctx, wikiID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					a.logger.Error("storage estimate recompute failed",
						logger.Int64("wiki", wikiID),
						logger.Error(err))
					continue
				}
				emit(out, est)
			}
		}
	}()

	return out, nil
}

// concernsWiki reports whether a change can move the wiki's estimate.
// A clear with wiki id zero wipes every wiki.
func concernsWiki(c domain.Change, wikiID int64) bool {
	if c.WikiID == wikiID {
		return true
	}
	return c.Op == domain.ChangeClear && c.WikiID == 0
}

// emit replaces a pending unread estimate with the newer one. The
// single producer guarantees the drain-then-send cannot block.
func emit(out chan domain.StorageEstimate, est domain.StorageEstimate) {
	select {
	case out <- est:
	default:
		select {
		case <-out:
		default:
		}
		out <- est
	}
}
