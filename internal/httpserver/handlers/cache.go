package handlers

import (
	"net/http"

	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
)

// ClearCache handles DELETE /api/cache: every cached article across
// every wiki, plus any cached search responses. Wiki registrations and
// credentials survive.
func ClearCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		n, err := d.Store.DeleteAllArticles(ctx)
		if err != nil {
			d.Logger.Error("clear cache", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to clear cache")
			return
		}

		if d.SearchCache != nil {
			if err := d.SearchCache.Flush(ctx); err != nil {
				d.Logger.Warn("search cache flush failed", logger.Error(err))
			}
		}

		d.Logger.Info("cache cleared", logger.Int64("articles_deleted", n))
		respondJSON(w, http.StatusOK, clearResponse{Deleted: n})
	}
}

// Refresh handles POST /api/refresh: queue a starred refresh run.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.RefreshTrigger == nil {
			respondError(w, http.StatusServiceUnavailable, "refresh is disabled")
			return
		}

		select {
		case d.RefreshTrigger <- struct{}{}:
			w.WriteHeader(http.StatusAccepted)
		default:
			// a refresh is already queued
			w.WriteHeader(http.StatusAccepted)
		}
	}
}
