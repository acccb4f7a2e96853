package handler

import (
	"log/slog"
	"net/http"

	"github.com/solvefy/solvefy/internal/auth"
	"github.com/solvefy/solvefy/internal/store"
)

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.ListProfiles(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list(w, profiles, nil)
}

func (h *Handler) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in store.UserInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			h.fail(w, r, err)
			return
		}
		in.PasswordHash = hash
	}
	u, err := h.store.CreateUser(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, u.Profile(), "UserCreated")
}
