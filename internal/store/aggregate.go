package store

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

// ContextQuery names the leaf whose ancestry ResolveContext walks. The most
// specific id wins: question, then lesson, then book.
type ContextQuery struct {
	BookID     string
	LessonID   string
	QuestionID string
}

// catalog is every catalog collection loaded at once.
type catalog struct {
	subjects  []model.Subject
	grades    []model.Grade
	books     []model.Book
	lessons   []model.Lesson
	questions []model.Question
}

// loadCatalog reads the catalog collections concurrently. The caller must
// hold s.mu. Questions are only read when withQuestions is set.
func (s *Store) loadCatalog(ctx context.Context, withQuestions bool) (*catalog, error) {
	var c catalog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { c.subjects, err = load[model.Subject](gctx, s, Subjects); return })
	g.Go(func() (err error) { c.grades, err = load[model.Grade](gctx, s, Grades); return })
	g.Go(func() (err error) { c.books, err = load[model.Book](gctx, s, Books); return })
	g.Go(func() (err error) { c.lessons, err = load[model.Lesson](gctx, s, Lessons); return })
	if withQuestions {
		g.Go(func() (err error) { c.questions, err = load[model.Question](gctx, s, Questions); return })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &c, nil
}

func ptrTo[T any](items []T, match func(T) bool) *T {
	v, i := find(items, match)
	if i < 0 {
		return nil
	}
	return &v
}

// ResolveContext returns the ancestry of a book, lesson or question. Only the
// leaf has to exist; an ancestor that a dangling reference points past is
// left nil.
func (s *Store) ResolveContext(ctx context.Context, q ContextQuery) (model.Breadcrumb, error) {
	if q.BookID == "" && q.LessonID == "" && q.QuestionID == "" {
		return model.Breadcrumb{}, apperr.Invalid("ContextLeafRequired")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.loadCatalog(ctx, q.QuestionID != "")
	if err != nil {
		return model.Breadcrumb{}, err
	}

	var bc model.Breadcrumb
	lessonID, bookID := q.LessonID, q.BookID

	if q.QuestionID != "" {
		bc.Question = ptrTo(c.questions, func(v model.Question) bool { return v.ID == q.QuestionID })
		if bc.Question == nil {
			return model.Breadcrumb{}, apperr.NotFound("Question")
		}
		lessonID = bc.Question.LessonID
	}

	if lessonID != "" {
		bc.Lesson = ptrTo(c.lessons, func(v model.Lesson) bool { return v.ID == lessonID })
		if bc.Lesson == nil && q.QuestionID == "" {
			return model.Breadcrumb{}, apperr.NotFound("Lesson")
		}
		bookID = ""
		if bc.Lesson != nil {
			bookID = bc.Lesson.BookID
		}
	}

	gradeID, subjectID := "", ""
	if bookID != "" {
		bc.Book = ptrTo(c.books, func(v model.Book) bool { return v.ID == bookID })
		if bc.Book == nil && lessonID == "" {
			return model.Breadcrumb{}, apperr.NotFound("Book")
		}
	}

	// Fall back on the denormalized ids of the deepest row found so a missing
	// middle ancestor does not hide the ones above it.
	switch {
	case bc.Book != nil:
		gradeID, subjectID = bc.Book.GradeID, bc.Book.SubjectID
	case bc.Lesson != nil:
		gradeID, subjectID = bc.Lesson.GradeID, bc.Lesson.SubjectID
	}

	if gradeID != "" {
		bc.Grade = ptrTo(c.grades, func(v model.Grade) bool { return v.ID == gradeID })
		if bc.Grade != nil && subjectID == "" {
			subjectID = bc.Grade.SubjectID
		}
	}
	if subjectID != "" {
		bc.Subject = ptrTo(c.subjects, func(v model.Subject) bool { return v.ID == subjectID })
	}
	return bc, nil
}

// SubjectHierarchy returns a subject with its grades, books and lessons.
// Siblings keep file order except lessons, which are sorted by sortOrder.
func (s *Store) SubjectHierarchy(ctx context.Context, subjectID string) (model.SubjectTree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.loadCatalog(ctx, false)
	if err != nil {
		return model.SubjectTree{}, err
	}
	sub := ptrTo(c.subjects, func(v model.Subject) bool { return v.ID == subjectID })
	if sub == nil {
		return model.SubjectTree{}, apperr.NotFound("Subject")
	}

	lessonsByBook := make(map[string][]model.Lesson)
	for _, l := range c.lessons {
		lessonsByBook[l.BookID] = append(lessonsByBook[l.BookID], l)
	}
	booksByGrade := make(map[string][]model.BookNode)
	for _, b := range c.books {
		lessons := lessonsByBook[b.ID]
		if lessons == nil {
			lessons = []model.Lesson{}
		}
		sortLessons(lessons)
		booksByGrade[b.GradeID] = append(booksByGrade[b.GradeID], model.BookNode{Book: b, Lessons: lessons})
	}

	tree := model.SubjectTree{Subject: *sub, Grades: []model.GradeNode{}}
	for _, g := range c.grades {
		if g.SubjectID != subjectID {
			continue
		}
		books := booksByGrade[g.ID]
		if books == nil {
			books = []model.BookNode{}
		}
		tree.Grades = append(tree.Grades, model.GradeNode{Grade: g, Books: books})
	}
	return tree, nil
}

// Snapshot returns every collection the legacy aggregate endpoint serves.
// Concurrent callers share one load, which does not end with the caller
// that started it.
func (s *Store) Snapshot(ctx context.Context) (model.Snapshot, error) {
	v, err, _ := s.sf.Do("snapshot", func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		s.mu.RLock()
		defer s.mu.RUnlock()

		c, err := s.loadCatalog(ctx, true)
		if err != nil {
			return model.Snapshot{}, err
		}
		users, err := load[model.User](ctx, s, Users)
		if err != nil {
			return model.Snapshot{}, err
		}
		return model.Snapshot{
			Questions: c.questions,
			Subjects:  c.subjects,
			Grades:    c.grades,
			Books:     c.books,
			Lessons:   c.lessons,
			Users:     profiles(users),
		}, nil
	})
	if err != nil {
		return model.Snapshot{}, err
	}
	return v.(model.Snapshot), nil
}

// QuestionWithAnswer returns a question and its first answer. Either may be
// nil; the legacy endpoint never reports not found.
func (s *Store) QuestionWithAnswer(ctx context.Context, questionID string) (model.QuestionWithAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	questions, err := load[model.Question](ctx, s, Questions)
	if err != nil {
		return model.QuestionWithAnswer{}, err
	}
	answers, err := load[model.Answer](ctx, s, Answers)
	if err != nil {
		return model.QuestionWithAnswer{}, err
	}
	return model.QuestionWithAnswer{
		Question: ptrTo(questions, func(v model.Question) bool { return v.ID == questionID }),
		Answer:   ptrTo(answers, func(v model.Answer) bool { return v.QuestionID == questionID }),
	}, nil
}
