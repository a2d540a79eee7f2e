// Package server is a local implementation of the notes REST API, backed by
// SQLite. It exists for development and end-to-end tests of the client.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"pocket-notes/internal/auth"
)

func NewRouter(h *Handlers, a *auth.Auth, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(loggerMiddleware(log))
	r.Use(chimid.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health/", h.Health)

		r.Post("/auth/register/", h.Register)
		r.Post("/auth/login/", h.Login)
		r.Post("/auth/refresh/", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(a.Middleware(h.unauthorized))

			r.Get("/auth/me/", h.Me)

			r.Get("/categories/", h.GetCategories)
			r.Post("/categories/", h.CreateCategory)
			r.Post("/categories/seed_defaults/", h.SeedDefaultCategories)

			r.Get("/notes/", h.GetNotes)
			r.Post("/notes/", h.CreateNote)
			r.Get("/notes/{id}/", h.GetNote)
			r.Patch("/notes/{id}/", h.UpdateNote)
			r.Delete("/notes/{id}/", h.DeleteNote)
		})
	})

	return r
}

func loggerMiddleware(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimid.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("request_id", chimid.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
