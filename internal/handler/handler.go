// Package handler serves the JSON API over chi.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/solvefy/solvefy/internal/auth"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/store"
)

// Config holds the HTTP-facing settings.
type Config struct {
	// BasePath is the URL prefix for sub-path deployments, e.g. "/api".
	BasePath string
	// BaseURL is the public origin used in sitemap entries.
	BaseURL string
	// TrustClientIdentity lets requests without a token act as the userId
	// they send.
	TrustClientIdentity bool
	// Checks are extra dependencies reported by /healthz.
	Checks map[string]func(context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	auth   *auth.Authenticator
	config Config
}

// New creates a new Handler.
func New(s *store.Store, a *auth.Authenticator, cfg Config) (*Handler, error) {
	cfg.BasePath = NormalizeBasePath(cfg.BasePath)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Handler{store: s, auth: a, config: cfg}, nil
}

// NormalizeBasePath returns p with one leading slash and no trailing slash.
func NormalizeBasePath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.identify)

	r.Get("/healthz", h.handleHealthz)
	r.Get("/sitemap.xml", h.handleSitemap)

	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.With(h.requireAuth).Get("/auth/me", h.handleMe)

	r.Get("/subjects", h.handleListSubjects)
	r.Get("/subjects/{subjectID}/hierarchy", h.handleHierarchy)
	r.Get("/grades", h.handleListGrades)
	r.Get("/books", h.handleListBooks)
	r.Get("/lessons", h.handleListLessons)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth, h.requireRole(model.UserRoleAdmin, model.UserRoleTeacher))
		r.Post("/subjects", h.handleCreateSubject)
		r.Post("/grades", h.handleCreateGrade)
		r.Post("/books", h.handleCreateBook)
		r.Post("/lessons", h.handleCreateLesson)
	})

	r.Get("/questions", h.handleListQuestions)
	r.Post("/questions", h.handleCreateQuestion)
	r.Put("/questions/{questionID}", h.handleUpdateQuestion)
	r.Delete("/questions/{questionID}", h.handleDeleteQuestion)

	r.Get("/answers", h.handleListAnswers)
	r.Post("/answers", h.handleCreateAnswer)
	r.Put("/answers/{answerID}", h.handleUpdateAnswer)
	r.Delete("/answers/{answerID}", h.handleDeleteAnswer)

	r.Get("/bookmarks", h.handleListBookmarks)
	r.Post("/bookmarks", h.handleAddBookmark)
	r.Delete("/bookmarks", h.handleRemoveBookmark)

	r.Get("/progress", h.handleListProgress)
	r.Post("/progress", h.handleMarkProgress)

	r.Get("/users", h.handleUsers)
	r.Post("/users", h.handleUserAction)

	r.Get("/context", h.handleContext)
	r.Get("/solve", h.handleSolve)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAuth, h.requireRole(model.UserRoleAdmin))
		r.Get("/users", h.handleAdminListUsers)
		r.Post("/users", h.handleAdminCreateUser)
	})

	r.NotFound(h.handleNotFound)
}

// BasePathMiddleware records the configured base path in the request context.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Mount registers the routes on r, under the base path when one is set.
func (h *Handler) Mount(r chi.Router) {
	if h.config.BasePath == "" {
		r.Group(func(r chi.Router) {
			r.Use(h.BasePathMiddleware)
			h.Routes(r)
		})
		return
	}
	r.Route(h.config.BasePath, func(sub chi.Router) {
		sub.Use(h.BasePathMiddleware)
		h.Routes(sub)
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"store": "ok"}
	healthy := true
	if _, err := h.store.UserCount(r.Context()); err != nil {
		slog.Error("health check failed", "check", "store", "error", err)
		status["store"] = "unavailable"
		healthy = false
	}
	for name, check := range h.config.Checks {
		if err := check(r.Context()); err != nil {
			slog.Error("health check failed", "check", name, "error", err)
			status[name] = "unavailable"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, successBody{Success: healthy, Data: status})
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: h.message(r, "RouteNotFound")})
}
