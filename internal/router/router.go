package router

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-form-editor/internal/config"
	"go-form-editor/internal/handler"
	"go-form-editor/internal/middleware"
	"go-form-editor/internal/model"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Form    *handler.FormHandler
	Entry   *handler.EntryHandler
	Content *handler.ContentHandler
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func New(cfg *config.Config, logger *slog.Logger, authMiddleware *middleware.AuthMiddleware, h Handlers, store Pinger) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(authMiddleware.Identify)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := store.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", files(cfg.UploadRoot)))
	r.Handle("/uploads-thumb/*", http.StripPrefix("/uploads-thumb/", files(cfg.ThumbnailRoot)))

	r.Group(func(pages chi.Router) {
		pages.Use(middleware.Timeout(cfg.RequestTimeout, true))

		pages.Get("/forms/{form_id}", h.Form.Render)
		pages.Post("/forms/{form_id}", h.Form.Submit)
		pages.Get("/blocks/editable-form", h.Form.Block)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout, false))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
		})

		api.Group(func(authors chi.Router) {
			authors.Use(authMiddleware.RequireAuth, authMiddleware.RequireRoles(model.AuthorRoles...))

			authors.Post("/content/render", h.Content.Render)
			authors.Get("/forms/choices", h.Entry.FormChoices)
		})
		api.With(authMiddleware.RequireAuth).Get("/forms/{form_id}/entries/latest", h.Entry.Latest)
		api.With(authMiddleware.RequireAuth).Get("/entries/{entry_id}/notes", h.Entry.Notes)
	})

	return r
}

// files serves stored files without directory listings.
func files(root string) http.Handler {
	fileServer := http.FileServer(http.Dir(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(w, r)
	})
}
