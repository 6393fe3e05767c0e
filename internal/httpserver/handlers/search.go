package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
)

// Search handles GET /api/wikis/{wikiID}/search?q=...&source=...&limit=...
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}

		query := strings.TrimSpace(r.URL.Query().Get("q"))
		source, err := domain.ParseSearchSource(r.URL.Query().Get("source"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil || limit < 0 {
				respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
		}

		results, err := d.Searcher.Search(r.Context(), wiki, query, source, limit)
		if err != nil {
			d.Logger.Error("search",
				logger.Int64("wiki", wiki.ID),
				logger.String("query", query),
				logger.Error(err))
			respondError(w, http.StatusInternalServerError, "search failed")
			return
		}
		if results == nil {
			results = []*domain.Article{}
		}
		respondJSON(w, http.StatusOK, results)
	}
}
