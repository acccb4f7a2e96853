package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/store"
)

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		s, err := h.store.GetSubject(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, s)
		return
	}
	subjects, err := h.store.ListSubjects(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list(w, subjects, nil)
}

func (h *Handler) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := h.store.SubjectHierarchy(r.Context(), chi.URLParam(r, "subjectID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, tree)
}

func (h *Handler) handleListGrades(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		g, err := h.store.GetGrade(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		ok(w, g)
		return
	}
	f := filters(r, "subjectId")
	grades, err := h.store.ListGrades(r.Context(), store.GradeFilter{SubjectID: f["subjectId"]})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list(w, grades, f)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		book *model.Book
		err  error
	)
	switch {
	case q.Get("id") != "":
		book, err = h.store.GetBook(r.Context(), q.Get("id"))
	case q.Get("slug") != "":
		book, err = h.store.GetBookBySlug(r.Context(), q.Get("slug"))
	default:
		p, err := h.store.ListBooks(r.Context(), store.BookFilter{
			SubjectID: q.Get("subjectId"),
			GradeID:   q.Get("gradeId"),
			Publisher: q.Get("publisher"),
			Page:      queryInt(r, "page"),
			Limit:     queryInt(r, "limit"),
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
	ok(w, book)
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		lesson *model.Lesson
		err    error
	)
	switch {
	case q.Get("id") != "":
		lesson, err = h.store.GetLesson(r.Context(), q.Get("id"))
	case q.Get("slug") != "":
		lesson, err = h.store.GetLessonBySlug(r.Context(), q.Get("slug"))
	default:
		f := filters(r, "bookId", "subjectId", "gradeId")
		lessons, err := h.store.ListLessons(r.Context(), store.LessonFilter{
			BookID:    f["bookId"],
			SubjectID: f["subjectId"],
			GradeID:   f["gradeId"],
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		list(w, lessons, f)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, lesson)
}

func (h *Handler) createdBy(r *http.Request) string {
	if u := model.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var in store.SubjectInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.store.CreateSubject(r.Context(), in, h.createdBy(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, s, "SubjectCreated")
}

func (h *Handler) handleCreateGrade(w http.ResponseWriter, r *http.Request) {
	var in store.GradeInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	g, err := h.store.CreateGrade(r.Context(), in, h.createdBy(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, g, "GradeCreated")
}

func (h *Handler) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in store.BookInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := h.store.CreateBook(r.Context(), in, h.createdBy(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, b, "BookCreated")
}

func (h *Handler) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var in store.LessonInput
	if err := decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	l, err := h.store.CreateLesson(r.Context(), in, h.createdBy(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.done(w, r, http.StatusCreated, l, "LessonCreated")
}

func (h *Handler) handleContext(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bc, err := h.store.ResolveContext(r.Context(), store.ContextQuery{
		BookID:     q.Get("bookId"),
		LessonID:   q.Get("lessonId"),
		QuestionID: q.Get("questionId"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, bc)
}
