package handler

import (
	"net/http"

	"github.com/solvefy/solvefy/internal/store"
)

func (h *Handler) handleListBookmarks(w http.ResponseWriter, r *http.Request) {
	f := filters(r, "userId", "bookId")
	bookmarks, err := h.store.ListBookmarks(r.Context(), store.BookmarkFilter{
		UserID: f["userId"],
		BookID: f["bookId"],
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body := successBody{Success: true, Data: bookmarks, Meta: listMeta{Total: len(bookmarks), Filters: f}}
	if f["userId"] != "" && f["bookId"] != "" {
		marked := len(bookmarks) > 0
		body.IsBookmarked = &marked
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) handleAddBookmark(w http.ResponseWriter, r *http.Request) {
	var in store.BookmarkInput
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
	b, err := h.store.AddBookmark(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, b, "BookmarkAdded")
}

func (h *Handler) handleRemoveBookmark(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uid, err := h.actor(r, q.Get("userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in := store.BookmarkInput{UserID: uid, BookID: q.Get("bookId")}
	if err := h.store.RemoveBookmark(r.Context(), in); err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusOK, nil, "BookmarkRemoved")
}

func (h *Handler) handleListProgress(w http.ResponseWriter, r *http.Request) {
	f := filters(r, "userId", "lessonId")
	if f["userId"] != "" && f["lessonId"] != "" {
		p, err := h.store.GetProgress(r.Context(), f["userId"], f["lessonId"])
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, p)
		return
	}
	rows, err := h.store.ListProgress(r.Context(), store.ProgressFilter{
		UserID:   f["userId"],
		LessonID: f["lessonId"],
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list(w, rows, f)
}

func (h *Handler) handleMarkProgress(w http.ResponseWriter, r *http.Request) {
	var in store.ProgressInput
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
	p, created, err := h.store.MarkLessonComplete(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if created {
		h.done(w, r, http.StatusCreated, p, "LessonCompleted")
		return
	}
	h.done(w, r, http.StatusOK, p, "LessonAlreadyCompleted")
}
