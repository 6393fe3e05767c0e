package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/httpserver/handlers"
	"github.com/offcache/wikicache/internal/httpserver/mw"
)

func init() { Register(registerCache) }

func registerCache(r chi.Router, d deps.Deps) {
	protected := r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	)
	protected.Delete("/api/cache", handlers.ClearCache(d))
	protected.Post("/api/refresh", handlers.Refresh(d))
}
