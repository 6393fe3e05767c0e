package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/offcache/wikicache/internal/domain"
	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/logger"
	"github.com/offcache/wikicache/internal/store/sqlite"
)

// textExtractsExtension must be installed on a remote wiki for plain
// text extraction to work.
const textExtractsExtension = "TextExtracts"

type wikiRequest struct {
	Name     string `json:"name"`
	APIURL   string `json:"api_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *wikiRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	u, err := url.Parse(req.APIURL)
	if err != nil {
		return errors.New("api_url is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("api_url must be an absolute http(s) URL")
	}
	return nil
}

// wikiIDParam parses the {wikiID} route parameter.
func wikiIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "wikiID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func ListWikis(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wikis, err := d.Store.Wikis(r.Context())
		if err != nil {
			d.Logger.Error("list wikis", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to list wikis")
			return
		}
		respondJSON(w, http.StatusOK, wikis)
	}
}

func GetWiki(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := wikiIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid wiki id")
			return
		}

		wiki, err := d.Store.GetWiki(r.Context(), id)
		if errors.Is(err, sqlite.ErrWikiNotFound) {
			respondError(w, http.StatusNotFound, "wiki not found")
			return
		}
		if err != nil {
			d.Logger.Error("get wiki", logger.Int64("wiki", id), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to load wiki")
			return
		}
		respondJSON(w, http.StatusOK, wiki)
	}
}

func CreateWiki(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req wikiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		wiki := &domain.Wiki{
			Name:         strings.TrimSpace(req.Name),
			APIURL:       req.APIURL,
			AuthUsername: req.Username,
			AuthPassword: req.Password,
		}

		// Best-effort capability check: reject a wiki that answers but
		// cannot serve plain text extracts. An unreachable wiki is still
		// accepted so instances can be registered while offline.
		if d.Oracle.Online(ctx) {
			site, err := d.MediaWiki.SiteInfo(ctx, wiki)
			switch {
			case err != nil:
				d.Logger.Warn("wiki capability check skipped",
					logger.String("wiki", wiki.Name),
					logger.Error(err))
			case !site.HasExtension(textExtractsExtension):
				respondError(w, http.StatusUnprocessableEntity,
					"wiki does not have the TextExtracts extension")
				return
			case wiki.RequiresAuth():
				// A reachable private wiki must accept the supplied
				// credentials before it is registered.
				if err := d.MediaWiki.LogIn(ctx, wiki); err != nil {
					d.Logger.Warn("wiki login failed",
						logger.String("wiki", wiki.Name),
						logger.Error(err))
					respondError(w, http.StatusUnprocessableEntity,
						"could not log in with the supplied credentials")
					return
				}
			}
		}

		if err := d.Store.UpsertWiki(ctx, wiki); err != nil {
			d.Logger.Error("create wiki", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to save wiki")
			return
		}
		respondJSON(w, http.StatusCreated, wiki)
	}
}

func UpdateWiki(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := wikiIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid wiki id")
			return
		}

		wiki, err := d.Store.GetWiki(ctx, id)
		if errors.Is(err, sqlite.ErrWikiNotFound) {
			respondError(w, http.StatusNotFound, "wiki not found")
			return
		}
		if err != nil {
			d.Logger.Error("update wiki", logger.Int64("wiki", id), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to load wiki")
			return
		}

		var req wikiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		wiki.Name = strings.TrimSpace(req.Name)
		wiki.APIURL = req.APIURL
		wiki.AuthUsername = req.Username
		wiki.AuthPassword = req.Password

		// Re-establish the session for changed credentials while the
		// remote is reachable.
		if wiki.RequiresAuth() && d.Oracle.Online(ctx) {
			if err := d.MediaWiki.LogIn(ctx, wiki); err != nil {
				d.Logger.Warn("wiki login failed",
					logger.String("wiki", wiki.Name),
					logger.Error(err))
				respondError(w, http.StatusUnprocessableEntity,
					"could not log in with the supplied credentials")
				return
			}
		}

		if err := d.Store.UpsertWiki(ctx, wiki); err != nil {
			d.Logger.Error("update wiki", logger.Int64("wiki", id), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to save wiki")
			return
		}

		// The endpoint changed; cached remote search responses for the
		// old endpoint are no longer meaningful.
		if d.SearchCache != nil {
			if err := d.SearchCache.InvalidateWiki(ctx, id); err != nil {
				d.Logger.Warn("search cache invalidation failed",
					logger.Int64("wiki", id), logger.Error(err))
			}
		}
		respondJSON(w, http.StatusOK, wiki)
	}
}

func DeleteWiki(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := wikiIDParam(r)
		if !ok {
			respondError(w, http.StatusBadRequest, "invalid wiki id")
			return
		}

		err := d.Store.DeleteWiki(ctx, id)
		switch {
		case errors.Is(err, sqlite.ErrProtectedWiki):
			respondError(w, http.StatusForbidden, "the default wiki cannot be deleted")
			return
		case errors.Is(err, sqlite.ErrWikiNotFound):
			respondError(w, http.StatusNotFound, "wiki not found")
			return
		case err != nil:
			d.Logger.Error("delete wiki", logger.Int64("wiki", id), logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to delete wiki")
			return
		}

		if d.SearchCache != nil {
			if err := d.SearchCache.InvalidateWiki(ctx, id); err != nil {
				d.Logger.Warn("search cache invalidation failed",
					logger.Int64("wiki", id), logger.Error(err))
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
