package store

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

func newTestStore(t *testing.T, kind string, opts ...Option) *Store {
	t.Helper()
	var (
		b   Backend
		err error
	)
	switch kind {
	case "file":
		b, err = NewFileBackend(t.TempDir())
	case "sqlite":
		b, err = NewSQLiteBackend(filepath.Join(t.TempDir(), "solvefy.db"))
	default:
		t.Fatalf("unknown backend %q", kind)
	}
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	s, err := New(context.Background(), b, opts...)
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// eachBackend runs fn once per backend so both honour the same contract.
func eachBackend(t *testing.T, fn func(t *testing.T, s *Store)) {
	t.Helper()
	for _, kind := range []string{"file", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			fn(t, newTestStore(t, kind))
		})
	}
}

type fixture struct {
	subject model.Subject
	grade   model.Grade
	book    model.Book
	lesson  model.Lesson
}

func seedCatalog(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()
	sub, err := s.CreateSubject(ctx, SubjectInput{Name: "Toán"}, "u1")
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	g, err := s.CreateGrade(ctx, GradeInput{SubjectID: sub.ID, Name: "Lớp 1"}, "u1")
	if err != nil {
		t.Fatalf("CreateGrade: %v", err)
	}
	b, err := s.CreateBook(ctx, BookInput{GradeID: g.ID, Name: "Toán 1 Kết nối tri thức"}, "u1")
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	l, err := s.CreateLesson(ctx, LessonInput{BookID: b.ID, Name: "Bài 1: Các số 0, 1, 2"}, "u1")
	if err != nil {
		t.Fatalf("CreateLesson: %v", err)
	}
	return fixture{subject: sub, grade: g, book: b, lesson: l}
}

func createQuestion(t *testing.T, s *Store, lessonID, userID, title string) model.Question {
	t.Helper()
	q, err := s.CreateQuestion(context.Background(), QuestionInput{
		LessonID: lessonID,
		Title:    title,
		Content:  "content of " + title,
		UserID:   userID,
	})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	return q
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %v error, got %v (%v)", kind, got, err)
	}
}

func TestCatalogDerivedFields(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		f := seedCatalog(t, s)

		if f.subject.ID != "s1" || f.subject.Slug != "toan" || f.subject.Icon != "🔢" {
			t.Errorf("subject = %+v", f.subject)
		}
		if f.grade.Level != 1 || f.grade.Slug != "lop-1" {
			t.Errorf("grade = %+v", f.grade)
		}
		if f.book.SubjectID != f.grade.SubjectID {
			t.Errorf("book.subjectId = %q, want grade's %q", f.book.SubjectID, f.grade.SubjectID)
		}
		if f.book.Publisher != "Kết nối tri thức" {
			t.Errorf("publisher = %q", f.book.Publisher)
		}
		if f.book.Slug != "toan-1-ket-noi-tri-thuc-b1" {
			t.Errorf("book slug = %q", f.book.Slug)
		}
		if f.lesson.GradeID != f.book.GradeID || f.lesson.SubjectID != f.book.SubjectID {
			t.Errorf("lesson ancestry %+v does not match book %+v", f.lesson, f.book)
		}
	})
}

func TestCreateBookUnknownGrade(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		_, err := s.CreateBook(context.Background(), BookInput{GradeID: "g404", Name: "X"}, "u1")
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestSubjectSlugConflict(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		if _, err := s.CreateSubject(ctx, SubjectInput{Name: "Toán"}, "u1"); err != nil {
			t.Fatalf("CreateSubject: %v", err)
		}
		_, err := s.CreateSubject(ctx, SubjectInput{Name: "TOÁN"}, "u1")
		wantKind(t, err, apperr.KindConflict)

		inactive := false
		if _, err := s.CreateSubject(ctx, SubjectInput{Name: "Toán", IsActive: &inactive}, "u1"); err != nil {
			t.Errorf("inactive duplicate should be allowed: %v", err)
		}
	})
}

func TestCreateQuestion(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		f := seedCatalog(t, s)
		q1 := createQuestion(t, s, f.lesson.ID, "u1", "Tính 2 + 2 = ?")
		q2 := createQuestion(t, s, f.lesson.ID, "u1", "Đếm số")

		if q1.ID != "q1" || q2.ID != "q2" {
			t.Errorf("ids = %q, %q", q1.ID, q2.ID)
		}
		if q1.Slug != "tinh-2-2-q1" {
			t.Errorf("slug = %q", q1.Slug)
		}
		if q1.CreatedBy != "u1" || q1.CreatedAt.IsZero() {
			t.Errorf("question = %+v", q1)
		}

		got, err := s.GetQuestionBySlug(context.Background(), q2.Slug)
		if err != nil {
			t.Fatalf("GetQuestionBySlug: %v", err)
		}
		if got.ID != q2.ID {
			t.Errorf("GetQuestionBySlug = %q, want %q", got.ID, q2.ID)
		}
	})
}

func TestCreateQuestionValidation(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		_, err := s.CreateQuestion(context.Background(), QuestionInput{LessonID: "l1", Title: "   "})
		wantKind(t, err, apperr.KindValidation)

		e, _ := apperr.As(err)
		want := []string{"title", "content", "userId"}
		if strings.Join(e.Fields, ",") != strings.Join(want, ",") {
			t.Errorf("fields = %v, want %v", e.Fields, want)
		}
	})
}

func TestCreateQuestionUnknownLesson(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		_, err := s.CreateQuestion(context.Background(), QuestionInput{
			LessonID: "l404", Title: "t", Content: "c", UserID: "u1",
		})
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestOwnership(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Original")

		tests := []struct {
			name string
			run  func() error
			kind apperr.Kind
		}{
			{"update other owner", func() error {
				_, err := s.UpdateQuestion(ctx, q.ID, QuestionUpdate{Title: "Hacked", Content: "x", UserID: "u2"})
				return err
			}, apperr.KindForbidden},
			{"delete other owner", func() error {
				_, err := s.DeleteQuestion(ctx, q.ID, "u2")
				return err
			}, apperr.KindForbidden},
			{"missing before owner", func() error {
				_, err := s.UpdateQuestion(ctx, "q999", QuestionUpdate{Title: "t", Content: "c", UserID: "u2"})
				return err
			}, apperr.KindNotFound},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				wantKind(t, tt.run(), tt.kind)
			})
		}

		got, err := s.GetQuestion(ctx, q.ID)
		if err != nil {
			t.Fatalf("GetQuestion: %v", err)
		}
		if got.Title != q.Title || got.Content != q.Content || !got.UpdatedAt.Equal(q.UpdatedAt) {
			t.Errorf("question changed after forbidden mutation: %+v", got)
		}
	})
}

func TestUpdateQuestionRefreshesSlug(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Old title")
		got, err := s.UpdateQuestion(context.Background(), q.ID, QuestionUpdate{Title: "New title", Content: "c", UserID: "u1"})
		if err != nil {
			t.Fatalf("UpdateQuestion: %v", err)
		}
		if got.Slug != "new-title-"+q.ID {
			t.Errorf("slug = %q", got.Slug)
		}
	})
}

func TestDeleteQuestionCascades(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Cascade")
		other := createQuestion(t, s, f.lesson.ID, "u1", "Keep")

		for _, qid := range []string{q.ID, q.ID, other.ID} {
			if _, err := s.CreateAnswer(ctx, AnswerInput{QuestionID: qid, Answer: "4", UserID: "u2"}); err != nil {
				t.Fatalf("CreateAnswer: %v", err)
			}
		}

		removed, err := s.DeleteQuestion(ctx, q.ID, "u1")
		if err != nil {
			t.Fatalf("DeleteQuestion: %v", err)
		}
		if removed != 2 {
			t.Errorf("removed = %d, want 2", removed)
		}

		left, err := s.ListAnswers(ctx, AnswerFilter{QuestionID: q.ID})
		if err != nil {
			t.Fatalf("ListAnswers: %v", err)
		}
		if len(left) != 0 {
			t.Errorf("expected no answers, got %d", len(left))
		}
		kept, _ := s.ListAnswers(ctx, AnswerFilter{QuestionID: other.ID})
		if len(kept) != 1 {
			t.Errorf("expected 1 answer for the other question, got %d", len(kept))
		}
		_, err = s.GetQuestion(ctx, q.ID)
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestAnswerVideo(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Video")

		a, err := s.CreateAnswer(ctx, AnswerInput{
			QuestionID: q.ID, Answer: "4", UserID: "u1",
			VideoURL: "https://www.youtube.com/watch?v=abc123XYZ9",
		})
		if err != nil {
			t.Fatalf("CreateAnswer: %v", err)
		}
		want := "https://img.youtube.com/vi/abc123XYZ9/maxresdefault.jpg"
		if a.VideoThumbnail == nil || *a.VideoThumbnail != want {
			t.Errorf("thumbnail = %v, want %q", a.VideoThumbnail, want)
		}

		b, err := s.CreateAnswer(ctx, AnswerInput{
			QuestionID: q.ID, Answer: "4", UserID: "u1",
			VideoURL: "youtube garbage", VideoType: "youtube",
		})
		if err != nil {
			t.Fatalf("CreateAnswer with bad url: %v", err)
		}
		if b.VideoThumbnail != nil {
			t.Errorf("thumbnail = %q, want nil", *b.VideoThumbnail)
		}
		if b.ID != "a2" {
			t.Errorf("id = %q, want a2", b.ID)
		}

		_, err = s.CreateAnswer(ctx, AnswerInput{QuestionID: q.ID, Answer: "4", UserID: "u1", VideoURL: "x", VideoType: "flash"})
		wantKind(t, err, apperr.KindValidation)
	})
}

func TestUpdateAnswer(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Q")
		a, err := s.CreateAnswer(ctx, AnswerInput{
			QuestionID: q.ID, Answer: "4", UserID: "u2",
			VideoURL: "https://youtu.be/dQw4w9WgXcQ",
		})
		if err != nil {
			t.Fatalf("CreateAnswer: %v", err)
		}

		got, err := s.UpdateAnswer(ctx, a.ID, AnswerUpdate{Answer: "  five ", Explain: " because ", UserID: "u2"})
		if err != nil {
			t.Fatalf("UpdateAnswer: %v", err)
		}
		if got.Answer != "five" || got.Explain != "because" {
			t.Errorf("answer not trimmed: %+v", got)
		}
		if got.VideoThumbnail == nil {
			t.Error("video should be kept when videoUrl is absent")
		}

		empty := ""
		got, err = s.UpdateAnswer(ctx, a.ID, AnswerUpdate{Answer: "five", VideoURL: &empty, UserID: "u2"})
		if err != nil {
			t.Fatalf("UpdateAnswer: %v", err)
		}
		if got.VideoURL != nil || got.VideoThumbnail != nil {
			t.Errorf("video should be cleared: %+v", got)
		}

		err = s.DeleteAnswer(ctx, a.ID, "u1")
		wantKind(t, err, apperr.KindForbidden)
		if err := s.DeleteAnswer(ctx, a.ID, "u2"); err != nil {
			t.Fatalf("DeleteAnswer: %v", err)
		}
	})
}

func TestBookmarkUniqueness(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		in := BookmarkInput{UserID: "u1", BookID: f.book.ID}

		first, err := s.AddBookmark(ctx, in)
		if err != nil {
			t.Fatalf("AddBookmark: %v", err)
		}
		if !strings.HasPrefix(first.ID, "ub") {
			t.Errorf("id = %q, want ub prefix", first.ID)
		}

		_, err = s.AddBookmark(ctx, in)
		wantKind(t, err, apperr.KindConflict)

		if err := s.RemoveBookmark(ctx, in); err != nil {
			t.Fatalf("RemoveBookmark: %v", err)
		}
		wantKind(t, s.RemoveBookmark(ctx, in), apperr.KindNotFound)

		again, err := s.AddBookmark(ctx, in)
		if err != nil {
			t.Fatalf("re-add bookmark: %v", err)
		}
		if again.ID == first.ID {
			t.Errorf("re-added bookmark reused id %q", again.ID)
		}

		_, err = s.AddBookmark(ctx, BookmarkInput{UserID: "u1", BookID: "b404"})
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestProgressUpsert(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		in := ProgressInput{UserID: "u1", LessonID: f.lesson.ID}

		if p, _ := s.GetProgress(ctx, "u1", f.lesson.ID); p != nil {
			t.Fatalf("expected no progress, got %+v", p)
		}

		first, created, err := s.MarkLessonComplete(ctx, in)
		if err != nil {
			t.Fatalf("MarkLessonComplete: %v", err)
		}
		if !created || first.Status != model.ProgressCompleted || first.CompletedAt.IsZero() {
			t.Errorf("first = %+v, created = %v", first, created)
		}

		second, created, err := s.MarkLessonComplete(ctx, in)
		if err != nil {
			t.Fatalf("MarkLessonComplete: %v", err)
		}
		if created {
			t.Error("second call should update, not create")
		}
		if second.ID != first.ID {
			t.Errorf("id changed: %q -> %q", first.ID, second.ID)
		}
		if second.CompletedAt.Before(first.CompletedAt) {
			t.Errorf("completedAt went backwards")
		}

		rows, err := s.ListProgress(ctx, ProgressFilter{UserID: "u1", LessonID: f.lesson.ID})
		if err != nil {
			t.Fatalf("ListProgress: %v", err)
		}
		if len(rows) != 1 {
			t.Errorf("expected exactly 1 row, got %d", len(rows))
		}

		_, _, err = s.MarkLessonComplete(ctx, ProgressInput{UserID: "u1", LessonID: "l404"})
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestListBooksPagination(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		for _, name := range []string{"Toán 1 Cánh diều", "Toán 1 Chân trời sáng tạo", "Vở bài tập"} {
			if _, err := s.CreateBook(ctx, BookInput{GradeID: f.grade.ID, Name: name}, "u1"); err != nil {
				t.Fatalf("CreateBook: %v", err)
			}
		}

		tests := []struct {
			name      string
			filter    BookFilter
			wantLen   int
			wantTotal int
			wantPages int
		}{
			{"defaults", BookFilter{}, 4, 4, 1},
			{"second page", BookFilter{Page: 2, Limit: 3}, 1, 4, 2},
			{"past the end", BookFilter{Page: 9, Limit: 3}, 0, 4, 2},
			{"invalid values", BookFilter{Page: -1, Limit: 0}, 4, 4, 1},
			{"huge page", BookFilter{Page: math.MaxInt/2 + 2, Limit: 2}, 0, 4, 2},
			{"huge limit", BookFilter{Page: 2, Limit: math.MaxInt}, 0, 4, 1},
			{"huge limit first page", BookFilter{Page: 1, Limit: math.MaxInt}, 4, 4, 1},
			{"publisher substring", BookFilter{Publisher: "CÁNH"}, 1, 1, 1},
			{"no match", BookFilter{GradeID: "g404"}, 0, 0, 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				page, err := s.ListBooks(ctx, tt.filter)
				if err != nil {
					t.Fatalf("ListBooks: %v", err)
				}
				if page.Items == nil {
					t.Error("items should be an empty slice, not nil")
				}
				if len(page.Items) != tt.wantLen || page.Meta.Total != tt.wantTotal || page.Meta.TotalPages != tt.wantPages {
					t.Errorf("got len=%d total=%d pages=%d", len(page.Items), page.Meta.Total, page.Meta.TotalPages)
				}
			})
		}
	})
}

func TestListLessonsSorted(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		for _, order := range []int{5, 0, 5} {
			o := order
			if _, err := s.CreateLesson(ctx, LessonInput{BookID: f.book.ID, Name: "L", SortOrder: &o}, "u1"); err != nil {
				t.Fatalf("CreateLesson: %v", err)
			}
		}
		lessons, err := s.ListLessons(ctx, LessonFilter{BookID: f.book.ID})
		if err != nil {
			t.Fatalf("ListLessons: %v", err)
		}
		var ids []string
		for _, l := range lessons {
			ids = append(ids, l.ID)
		}
		// l1 was created with sortOrder 1; l2 and l4 tie on 5 and keep file order.
		if got := strings.Join(ids, ","); got != "l3,l1,l2,l4" {
			t.Errorf("order = %s", got)
		}
	})
}

func TestResolveContext(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "Q")

		bc, err := s.ResolveContext(ctx, ContextQuery{QuestionID: q.ID})
		if err != nil {
			t.Fatalf("ResolveContext: %v", err)
		}
		if bc.Subject == nil || bc.Grade == nil || bc.Book == nil || bc.Lesson == nil || bc.Question == nil {
			t.Fatalf("incomplete breadcrumb: %+v", bc)
		}
		if bc.Subject.ID != f.subject.ID {
			t.Errorf("subject = %q", bc.Subject.ID)
		}

		// A book pointing at a grade that does not exist.
		_, err = s.ImportCatalog(ctx, CatalogRows{Books: []model.Book{{ID: "b900", GradeID: "g900", SubjectID: f.subject.ID, Name: "Orphan"}}})
		if err != nil {
			t.Fatalf("ImportCatalog: %v", err)
		}
		bc, err = s.ResolveContext(ctx, ContextQuery{BookID: "b900"})
		if err != nil {
			t.Fatalf("dangling grade should not fail: %v", err)
		}
		if bc.Grade != nil || bc.Book == nil || bc.Subject == nil {
			t.Errorf("breadcrumb = %+v", bc)
		}

		_, err = s.ResolveContext(ctx, ContextQuery{LessonID: "l404"})
		wantKind(t, err, apperr.KindNotFound)
		_, err = s.ResolveContext(ctx, ContextQuery{})
		wantKind(t, err, apperr.KindValidation)
	})
}

func TestSubjectHierarchy(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		tree, err := s.SubjectHierarchy(ctx, f.subject.ID)
		if err != nil {
			t.Fatalf("SubjectHierarchy: %v", err)
		}
		if len(tree.Grades) != 1 || len(tree.Grades[0].Books) != 1 || len(tree.Grades[0].Books[0].Lessons) != 1 {
			t.Errorf("unexpected tree shape: %+v", tree)
		}
		_, err = s.SubjectHierarchy(ctx, "s404")
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestSnapshotStripsPasswords(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		seedCatalog(t, s)
		if _, err := s.CreateUser(ctx, UserInput{Username: "an", Password: "x", PasswordHash: "$2a$hash"}); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		snap, err := s.Snapshot(ctx)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if len(snap.Users) != 1 || len(snap.Subjects) != 1 || len(snap.Lessons) != 1 {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.Questions == nil {
			t.Error("questions should be an empty slice")
		}
	})
}

func TestConcurrentCreatesGetDistinctIDs(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.CreateQuestion(ctx, QuestionInput{LessonID: f.lesson.ID, Title: "T", Content: "C", UserID: "u1"})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("CreateQuestion: %v", err)
			}
		}

		page, err := s.ListQuestions(ctx, QuestionFilter{Limit: 100})
		if err != nil {
			t.Fatalf("ListQuestions: %v", err)
		}
		seen := map[string]bool{}
		for _, q := range page.Items {
			if seen[q.ID] {
				t.Errorf("duplicate id %s", q.ID)
			}
			seen[q.ID] = true
		}
		if len(seen) != n {
			t.Errorf("expected %d questions, got %d", n, len(seen))
		}
	})
}

func TestMillisIDsStrictlyIncrease(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(t, "file", WithClock(func() time.Time { return fixed }))
	a := s.nextMillisID("ub")
	b := s.nextMillisID("ub")
	if a == b {
		t.Errorf("ids collide: %s", a)
	}
}

func TestMissingCollectionIsStorageError(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	s, err := New(context.Background(), b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "books.json")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err = s.ListBooks(context.Background(), BookFilter{})
	wantKind(t, err, apperr.KindStorage)
	if !errors.Is(err, ErrCollectionMissing) {
		t.Errorf("expected ErrCollectionMissing in chain, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "lessons.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = s.ListLessons(context.Background(), LessonFilter{})
	wantKind(t, err, apperr.KindStorage)
}

var errDiskFull = errors.New("disk full")

// failingBackend reads through to a real backend but refuses every write.
type failingBackend struct {
	Backend
}

func (failingBackend) Commit(context.Context, map[string][]byte) error {
	return errDiskFull
}

func TestFailedCommitReturnsNothing(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	seeded, err := New(context.Background(), b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f := seedCatalog(t, seeded)

	s, err := New(context.Background(), failingBackend{Backend: b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q, err := s.CreateQuestion(context.Background(), QuestionInput{
		LessonID: f.lesson.ID, Title: "Tính 1 + 1", Content: "?", UserID: "u1",
	})
	wantKind(t, err, apperr.KindStorage)
	if !errors.Is(err, errDiskFull) {
		t.Errorf("expected the backend error in chain, got %v", err)
	}
	if q != (model.Question{}) {
		t.Errorf("failed create returned %+v", q)
	}

	page, err := s.ListQuestions(context.Background(), QuestionFilter{})
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if page.Meta.Total != 0 {
		t.Errorf("failed create left %d questions", page.Meta.Total)
	}
}

// ctxBackend fails loads whose context is done.
type ctxBackend struct {
	Backend
}

func (b ctxBackend) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Backend.Load(ctx, name)
}

func TestSnapshotIgnoresCallerCancellation(t *testing.T) {
	fb, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	s, err := New(context.Background(), ctxBackend{Backend: fb})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seedCatalog(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Lessons) != 1 {
		t.Errorf("snapshot lessons = %d", len(snap.Lessons))
	}
}

func TestImportCatalogSkipsExisting(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		rows := CatalogRows{
			Subjects: []model.Subject{{ID: "math", Name: "Toán", Slug: "toan", IsActive: true}},
			Grades:   []model.Grade{{ID: "math-1", SubjectID: "math", Name: "Lớp 1", Slug: "lop-1", IsActive: true}},
		}
		stats, err := s.ImportCatalog(ctx, rows)
		if err != nil {
			t.Fatalf("ImportCatalog: %v", err)
		}
		if stats.Added[Subjects] != 1 || stats.Added[Grades] != 1 {
			t.Errorf("stats = %+v", stats)
		}
		stats, err = s.ImportCatalog(ctx, rows)
		if err != nil {
			t.Fatalf("ImportCatalog: %v", err)
		}
		if stats.Skipped[Subjects] != 1 || stats.Added[Subjects] != 0 {
			t.Errorf("second import stats = %+v", stats)
		}
		subjects, _ := s.ListSubjects(ctx)
		if len(subjects) != 1 {
			t.Errorf("expected 1 subject, got %d", len(subjects))
		}
	})
}

func TestUsers(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		u, err := s.CreateUser(ctx, UserInput{Username: "hoa", Password: "pw", PasswordHash: "h1"})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if u.ID != "u1" || u.Role != model.UserRoleStudent || u.FullName != "hoa" {
			t.Errorf("user = %+v", u)
		}
		_, err = s.CreateUser(ctx, UserInput{Username: "hoa", Password: "pw"})
		wantKind(t, err, apperr.KindConflict)
		_, err = s.CreateUser(ctx, UserInput{Username: "x", Password: "pw", Role: "root"})
		wantKind(t, err, apperr.KindValidation)

		if err := s.UpdateUserPassword(ctx, u.ID, "h2"); err != nil {
			t.Fatalf("UpdateUserPassword: %v", err)
		}
		got, err := s.GetUserByUsername(ctx, "hoa")
		if err != nil {
			t.Fatalf("GetUserByUsername: %v", err)
		}
		if got.PasswordHash != "h2" {
			t.Errorf("hash = %q", got.PasswordHash)
		}
		_, err = s.GetUserByID(ctx, "u404")
		wantKind(t, err, apperr.KindNotFound)
	})
}

func TestUserOverviewAndExport(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		u, err := s.CreateUser(ctx, UserInput{Username: "minh", Password: "pw"})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if _, _, err := s.MarkLessonComplete(ctx, ProgressInput{UserID: u.ID, LessonID: f.lesson.ID}); err != nil {
			t.Fatalf("MarkLessonComplete: %v", err)
		}
		if _, err := s.AddBookmark(ctx, BookmarkInput{UserID: u.ID, BookID: f.book.ID}); err != nil {
			t.Fatalf("AddBookmark: %v", err)
		}

		ov, err := s.UserOverview(ctx, u.ID)
		if err != nil {
			t.Fatalf("UserOverview: %v", err)
		}
		if ov.Stats.TotalCompleted != 1 || ov.Stats.TotalBookmarks != 1 {
			t.Errorf("stats = %+v", ov.Stats)
		}

		exp, err := s.ExportProgress(ctx)
		if err != nil {
			t.Fatalf("ExportProgress: %v", err)
		}
		if exp.NumUsers != 1 || len(exp.Results) != 1 {
			t.Fatalf("export = %+v", exp)
		}
		c := exp.Results[0].Completed
		if len(c) != 1 || c[0].LessonName != f.lesson.Name || c[0].SubjectName != f.subject.Name {
			t.Errorf("completed = %+v", c)
		}
	})
}

func TestAuthSessions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, "file", WithClock(func() time.Time { return now }))
	ctx := context.Background()

	live := model.AuthSession{ID: "live", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)}
	dead := model.AuthSession{ID: "dead", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Minute)}
	for _, sess := range []model.AuthSession{dead, live} {
		if err := s.CreateAuthSession(ctx, sess); err != nil {
			t.Fatalf("CreateAuthSession: %v", err)
		}
	}

	got, err := s.GetAuthSession(ctx, "live")
	if err != nil || got == nil {
		t.Fatalf("GetAuthSession(live) = %v, %v", got, err)
	}
	if got, _ := s.GetAuthSession(ctx, "dead"); got != nil {
		t.Errorf("expired session returned: %+v", got)
	}

	if err := s.DeleteAuthSession(ctx, "live"); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	if got, _ := s.GetAuthSession(ctx, "live"); got != nil {
		t.Errorf("deleted session returned: %+v", got)
	}
}

func TestUpdateUserPasswordDropsLegacyPassword(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"id":"u1","username":"old","password":"123456","fullName":"Old","role":"student"},
{"id":"u2","username":"new","passwordHash":"$2a$10$x","fullName":"New","role":"student"}]`
	if err := os.WriteFile(filepath.Join(dir, "users.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := NewFileBackend(dir)
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	s, err := New(context.Background(), b)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := s.UpdateUserPassword(context.Background(), "u1", "$2a$10$y"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "users.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), `"password"`) {
		t.Errorf("clear-text password written back:\n%s", data)
	}
	u, err := s.GetUserByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.LegacyPassword != "" || u.PasswordHash != "$2a$10$y" {
		t.Errorf("user = %+v", u)
	}
}

func TestMetadata(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		if v, err := s.GetImportedFileHash(ctx, "/tmp/catalog.yaml"); err != nil || v != "" {
			t.Fatalf("GetImportedFileHash = %q, %v", v, err)
		}
		if err := s.SetImportedFileHash(ctx, "/tmp/catalog.yaml", "abc"); err != nil {
			t.Fatalf("SetImportedFileHash: %v", err)
		}
		if err := s.SetImportedFileHash(ctx, "/tmp/catalog.yaml", "def"); err != nil {
			t.Fatalf("SetImportedFileHash: %v", err)
		}
		if v, _ := s.GetImportedFileHash(ctx, "catalog.yaml"); v != "def" {
			t.Errorf("hash = %q, want def", v)
		}
	})
}

func TestGradeSubmission(t *testing.T) {
	eachBackend(t, func(t *testing.T, s *Store) {
		ctx := context.Background()
		f := seedCatalog(t, s)
		q := createQuestion(t, s, f.lesson.ID, "u1", "2+2")
		if _, err := s.CreateAnswer(ctx, AnswerInput{QuestionID: q.ID, Answer: "4", Explain: "two and two", UserID: "u1"}); err != nil {
			t.Fatalf("CreateAnswer: %v", err)
		}

		res, err := s.GradeSubmission(ctx, SubmissionInput{UserID: "u2", QuestionID: q.ID, UserAnswer: " 4 "})
		if err != nil {
			t.Fatalf("GradeSubmission: %v", err)
		}
		if !res.IsCorrect || res.CorrectAnswer == nil || *res.Explanation != "two and two" {
			t.Errorf("result = %+v", res)
		}
		if !strings.HasPrefix(res.Progress.ID, "up_") {
			t.Errorf("progress id = %q", res.Progress.ID)
		}

		rows, _ := s.ListProgress(ctx, ProgressFilter{UserID: "u2"})
		if len(rows) != 0 {
			t.Error("submission must not persist progress")
		}

		res, err = s.GradeSubmission(ctx, SubmissionInput{UserID: "u2", QuestionID: "q404", UserAnswer: "4"})
		if err != nil {
			t.Fatalf("GradeSubmission: %v", err)
		}
		if res.IsCorrect || res.CorrectAnswer != nil {
			t.Errorf("unknown question result = %+v", res)
		}
	})
}
