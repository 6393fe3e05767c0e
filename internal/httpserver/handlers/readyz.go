package handlers

import (
	"net/http"

	"github.com/offcache/wikicache/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool `json:"ready"`
	Online bool `json:"online"`
}

// Readyz reports readiness (the store answers) and the current
// connectivity verdict. The daemon is ready even while offline; serving
// from the cache is the whole point.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := d.Store.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false})
			return
		}

		respondJSON(w, http.StatusOK, readyzResponse{
			Ready:  true,
			Online: d.Oracle.Online(ctx),
		})
	}
}
