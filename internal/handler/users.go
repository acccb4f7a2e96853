package handler

import (
	"net/http"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/store"
)

const actionSubmitAnswer = "submit_answer"

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("id") != "":
		overview, err := h.store.UserOverview(r.Context(), q.Get("id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, overview)
	case q.Get("username") != "":
		u, err := h.store.GetUserByUsername(r.Context(), q.Get("username"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, u.Profile())
	default:
		profiles, err := h.store.ListProfiles(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		list(w, profiles, nil)
	}
}

type userActionRequest struct {
	Action string `json:"action"`
	store.SubmissionInput
}

// handleUserAction serves the deprecated submit_answer shortcut. The result
// is computed but not stored; clients should record progress via /progress.
func (h *Handler) handleUserAction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Deprecation", "true")

	var req userActionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Action != actionSubmitAnswer {
		h.fail(w, r, apperr.Invalid("UnknownAction"))
		return
	}
	uid, err := h.actor(r, req.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req.UserID = uid
	res, err := h.store.GradeSubmission(r.Context(), req.SubmissionInput)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, res, "SubmitAnswerDeprecated")
}

// handleSolve is the legacy aggregate endpoint. It answers with the bare
// payload, without the success envelope, as older clients expect.
func (h *Handler) handleSolve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Deprecation", "true")

	if qid := r.URL.Query().Get("questionId"); qid != "" {
		qa, err := h.store.QuestionWithAnswer(r.Context(), qid)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, qa)
		return
	}
	snap, err := h.store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
