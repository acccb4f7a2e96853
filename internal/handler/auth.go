package handler

import (
	"net/http"
	"strings"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/auth"
	"github.com/solvefy/solvefy/internal/model"
)

// identify resolves an Authorization bearer token to a principal. Requests
// without the header pass through anonymously; a bad token is rejected.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, err := auth.ExtractBearerToken(header)
		if err != nil {
			h.fail(w, r, apperr.Unauthorized("Unauthorized"))
			return
		}
		user, sessionID, err := h.auth.Resolve(r.Context(), token)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ctx := model.ContextWithUser(r.Context(), user)
		ctx = model.ContextWithSessionID(ctx, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests without a principal.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if model.UserFromContext(r.Context()) == nil {
			h.fail(w, r, apperr.Unauthorized("Unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func (h *Handler) requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				h.fail(w, r, apperr.Unauthorized("Unauthorized"))
				return
			}
			if !user.HasRole(allowed...) {
				h.fail(w, r, apperr.Forbidden("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// actor returns the id a mutating request acts as. A claimed userId must
// match the principal. Without a principal the claim is only honoured in
// trust-client-identity mode, where it is then required.
func (h *Handler) actor(r *http.Request, claimed string) (string, error) {
	claimed = strings.TrimSpace(claimed)
	if u := model.UserFromContext(r.Context()); u != nil {
		if claimed != "" && claimed != u.ID {
			return "", apperr.Forbidden("IdentityMismatch")
		}
		return u.ID, nil
	}
	if h.config.TrustClientIdentity {
		if claimed == "" {
			return "", apperr.Validation("userId")
		}
		return claimed, nil
	}
	return "", apperr.Unauthorized("Unauthorized")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.auth.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), model.SessionIDFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, nil, "LoggedOut")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ok(w, model.UserFromContext(r.Context()).Profile())
}
