// Package server assembles the HTTP router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/atinyakov/shorturl/internal/app/handler"
	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/middleware"
)

// Options are the router settings that come from configuration.
type Options struct {
	ViewsDir      string
	PublicDir     string
	TrustedSubnet string
}

func Init(opts Options, logger *zap.Logger, s service.URLServiceIface) *chi.Mux {
	get := handler.NewGet(s, logger)
	post := handler.NewPost(s, logger)

	r := chi.NewRouter()
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(middleware.WithGZIP)

	r.Get("/", handler.Landing(opts.ViewsDir))
	r.Handle("/public/*", http.StripPrefix("/public/", http.FileServer(http.Dir(opts.PublicDir))))
	r.Get("/ping", get.PingDB)

	r.Route("/api", func(r chi.Router) {
		r.Post("/shorturl", post.Create)
		r.Post("/shorturl/", post.Create)
		r.Get("/shorturl/{id}", get.ByShortID)

		r.With(middleware.WithSubnet(opts.TrustedSubnet, logger)).Get("/internal/stats", get.Stats)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Route not found", http.StatusNotFound)
	})

	return r
}
