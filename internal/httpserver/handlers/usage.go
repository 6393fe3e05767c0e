package handlers

import (
	"net/http"

	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
)

// Usage handles GET /api/wikis/{wikiID}/usage
func Usage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}

		est, err := d.Accountant.Estimate(r.Context(), wiki.ID)
		if err != nil {
			d.Logger.Error("storage estimate", logger.Int64("wiki", wiki.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to estimate storage")
			return
		}
		respondJSON(w, http.StatusOK, est)
	}
}
