package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/offcache/wikicache/internal/httpserver/deps"
	"github.com/offcache/wikicache/internal/httpserver/handlers"
	"github.com/offcache/wikicache/internal/httpserver/mw"
)

func init() { Register(registerWikis) }

func registerWikis(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.EnforceHost(d.AllowedHosts, d.Logger),
	).Route("/api/wikis", func(r chi.Router) {
		r.Get("/", handlers.ListWikis(d))
		r.Post("/", handlers.CreateWiki(d))

		r.Route("/{wikiID}", func(r chi.Router) {
			r.Get("/", handlers.GetWiki(d))
			r.Put("/", handlers.UpdateWiki(d))
			r.Delete("/", handlers.DeleteWiki(d))
			r.Get("/usage", handlers.Usage(d))
			r.Get("/search", handlers.Search(d))

			r.Route("/articles", func(r chi.Router) {
				r.Get("/", handlers.ListArticles(d))
				r.Delete("/", handlers.ClearArticles(d))
				r.Get("/starred", handlers.ListStarred(d))

				r.Route("/{pageID}", func(r chi.Router) {
					r.Get("/", handlers.ResolveArticle(d))
					r.Delete("/", handlers.DeleteArticle(d))
					r.Put("/star", handlers.StarArticle(d))
				})
			})
		})
	})
}
