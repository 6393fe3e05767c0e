package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/store/sqlite"
)

func pageIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "pageID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// loadWiki resolves the {wikiID} route parameter to a wiki, writing the
// error response itself when it cannot.
func loadWiki(w http.ResponseWriter, r *http.Request, d deps.Deps) (*domain.Wiki, bool) {
	id, ok := wikiIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid wiki id")
		return nil, false
	}

	wiki, err := d.Store.GetWiki(r.Context(), id)
	if errors.Is(err, sqlite.ErrWikiNotFound) {
		respondError(w, http.StatusNotFound, "wiki not found")
		return nil, false
	}
	if err != nil {
		d.Logger.Error("load wiki", logger.Int64("wiki", id), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to load wiki")
		return nil, false
	}
	return wiki, true
}

func ListArticles(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}

		articles, err := d.Store.ArticlesByWiki(r.Context(), wiki.ID)
		if err != nil {
			d.Logger.Error("list articles", logger.Int64("wiki", wiki.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to list articles")
			return
		}
		if articles == nil {
			articles = []*domain.Article{}
		}
		respondJSON(w, http.StatusOK, articles)
	}
}

func ListStarred(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}

		articles, err := d.Store.StarredByWiki(r.Context(), wiki.ID)
		if err != nil {
			d.Logger.Error("list starred", logger.Int64("wiki", wiki.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to list starred articles")
			return
		}
		if articles == nil {
			articles = []*domain.Article{}
		}
		respondJSON(w, http.StatusOK, articles)
	}
}

// ResolveArticle serves one article, refreshing it from the remote when
// the freshness policy calls for it. ?skipCache=1 forces a revision
// check regardless of age.
func ResolveArticle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}
		pageID, ok := pageIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid page id")
			return
		}

		skipCache := false
		if v := r.URL.Query().Get("skipCache"); v != "" {
			skipCache, _ = strconv.ParseBool(v)
		}

		article, err := d.Resolver.Resolve(r.Context(), wiki, pageID, skipCache)
		if err != nil {
			d.Logger.Error("resolve article",
				logger.Int64("wiki", wiki.ID),
				logger.Int64("page", pageID),
				logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to resolve article")
			return
		}
		respondJSON(w, http.StatusOK, article)
	}
}

func DeleteArticle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}
		pageID, ok := pageIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid page id")
			return
		}

		n, err := d.Store.DeleteArticle(r.Context(), wiki.ID, pageID)
		if err != nil {
			d.Logger.Error("delete article",
				logger.Int64("wiki", wiki.ID),
				logger.Int64("page", pageID),
				logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to delete article")
			return
		}
		if n == 0 {
			respondError(w, http.StatusNotFound, "article not cached")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type clearResponse struct {
	Deleted int64 `json:"deleted"`
}

func ClearArticles(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}

		n, err := d.Store.DeleteArticlesByWiki(r.Context(), wiki.ID)
		if err != nil {
			d.Logger.Error("clear articles", logger.Int64("wiki", wiki.ID), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to clear articles")
			return
		}
		respondJSON(w, http.StatusOK, clearResponse{Deleted: n})
	}
}

type starRequest struct {
	Starred bool `json:"starred"`
}

func StarArticle(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiki, ok := loadWiki(w, r, d)
		if !ok {
			return
		}
		pageID, ok := pageIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid page id")
			return
		}

		var req starRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		found, err := d.Store.SetStarred(r.Context(), wiki.ID, pageID, req.Starred)
		if err != nil {
			d.Logger.Error("star article",
				logger.Int64("wiki", wiki.ID),
				logger.Int64("page", pageID),
				logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to update star")
			return
		}
		if !found {
			respondError(w, http.StatusNotFound, "article not cached")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
