package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/solvefy/solvefy/internal/i18n"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/store"
)

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		question *model.Question
		err      error
	)
	switch {
	case q.Get("id") != "":
		question, err = h.store.GetQuestion(r.Context(), q.Get("id"))
	case q.Get("slug") != "":
		question, err = h.store.GetQuestionBySlug(r.Context(), q.Get("slug"))
	default:
		p, err := h.store.ListQuestions(r.Context(), store.QuestionFilter{
			LessonID: q.Get("lessonId"),
			Page:     queryInt(r, "page"),
			Limit:    queryInt(r, "limit"),
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		page(w, p)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, question)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var in store.QuestionInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	uid, err := h.actor(r, in.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.UserID = uid
	created, err := h.store.CreateQuestion(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, created, "QuestionCreated")
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var in store.QuestionUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	uid, err := h.actor(r, in.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.UserID = uid
	updated, err := h.store.UpdateQuestion(r.Context(), chi.URLParam(r, "questionID"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, updated, "QuestionUpdated")
}

// deleteRequest carries the acting user of a DELETE, from the query or the body.
type deleteRequest struct {
	UserID string `json:"userId"`
}

func (h *Handler) deleteActor(r *http.Request) (string, error) {
	req := deleteRequest{UserID: r.URL.Query().Get("userId")}
	if req.UserID == "" && r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			return "", err
		}
	}
	return h.actor(r, req.UserID)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	uid, err := h.deleteActor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "questionID")
	n, err := h.store.DeleteQuestion(r.Context(), id, uid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{
		Success: true,
		Data:    map[string]any{"id": id, "deletedAnswers": n},
		Message: appI18n.Tp(r.Context(), "QuestionDeleted", n),
	})
}

func (h *Handler) handleListAnswers(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		a, err := h.store.GetAnswer(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, a)
		return
	}
	f := filters(r, "questionId", "userId")
	answers, err := h.store.ListAnswers(r.Context(), store.AnswerFilter{
		QuestionID: f["questionId"],
		UserID:     f["userId"],
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list(w, answers, f)
}

func (h *Handler) handleCreateAnswer(w http.ResponseWriter, r *http.Request) {
	var in store.AnswerInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	uid, err := h.actor(r, in.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.UserID = uid
	created, err := h.store.CreateAnswer(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, created, "AnswerCreated")
}

func (h *Handler) handleUpdateAnswer(w http.ResponseWriter, r *http.Request) {
	var in store.AnswerUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	uid, err := h.actor(r, in.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.UserID = uid
	updated, err := h.store.UpdateAnswer(r.Context(), chi.URLParam(r, "answerID"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, updated, "AnswerUpdated")
}

func (h *Handler) handleDeleteAnswer(w http.ResponseWriter, r *http.Request) {
	uid, err := h.deleteActor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "answerID")
	if err := h.store.DeleteAnswer(r.Context(), id, uid); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, map[string]string{"id": id}, "AnswerDeleted")
}
