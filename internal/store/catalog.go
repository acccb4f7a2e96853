package store

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/slug"
)

// GradeFilter narrows ListGrades.
type GradeFilter struct {
	SubjectID string
}

// BookFilter narrows ListBooks. Publisher is a case-insensitive substring.
type BookFilter struct {
	SubjectID string
	GradeID   string
	Publisher string
	Page      int
	Limit     int
}

// LessonFilter narrows ListLessons.
type LessonFilter struct {
	BookID    string
	SubjectID string
	GradeID   string
}

// SubjectInput is the payload for CreateSubject.
type SubjectInput struct {
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

// GradeInput is the payload for CreateGrade.
type GradeInput struct {
	SubjectID   string `json:"subjectId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Level       int    `json:"level"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

// BookInput is the payload for CreateBook. The subject comes from the grade.
type BookInput struct {
	GradeID         string `json:"gradeId" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Publisher       string `json:"publisher"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	CoverImageURL   string `json:"coverImageUrl"`
	PublicationYear int    `json:"publicationYear"`
	SortOrder       *int   `json:"sortOrder"`
	IsActive        *bool  `json:"isActive"`
}

// LessonInput is the payload for CreateLesson. Grade and subject come from the book.
type LessonInput struct {
	BookID      string `json:"bookId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Slug        string `json:"slug"`
	Content     string `json:"content"`
	Description string `json:"description"`
	SortOrder   *int   `json:"sortOrder"`
	IsActive    *bool  `json:"isActive"`
}

// ListSubjects returns all subjects in file order.
func (s *Store) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return readAll[model.Subject](ctx, s, Subjects)
}

// GetSubject returns a subject by id.
func (s *Store) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	return getByID(ctx, s, Subjects, "Subject", id, func(v model.Subject) string { return v.ID })
}

// ListGrades returns grades, optionally of one subject.
func (s *Store) ListGrades(ctx context.Context, f GradeFilter) ([]model.Grade, error) {
	grades, err := readAll[model.Grade](ctx, s, Grades)
	if err != nil {
		return nil, err
	}
	if f.SubjectID == "" {
		return grades, nil
	}
	return filter(grades, func(g model.Grade) bool { return g.SubjectID == f.SubjectID }), nil
}

// GetGrade returns a grade by id.
func (s *Store) GetGrade(ctx context.Context, id string) (*model.Grade, error) {
	return getByID(ctx, s, Grades, "Grade", id, func(v model.Grade) string { return v.ID })
}

// ListBooks returns one page of the books matching every set filter.
func (s *Store) ListBooks(ctx context.Context, f BookFilter) (model.Page[model.Book], error) {
	books, err := readAll[model.Book](ctx, s, Books)
	if err != nil {
		return model.Page[model.Book]{}, err
	}

	applied := filterSet{}
	if applied.add("subjectId", f.SubjectID) {
		books = filter(books, func(b model.Book) bool { return b.SubjectID == f.SubjectID })
	}
	if applied.add("gradeId", f.GradeID) {
		books = filter(books, func(b model.Book) bool { return b.GradeID == f.GradeID })
	}
	if applied.add("publisher", f.Publisher) {
		needle := strings.ToLower(f.Publisher)
		books = filter(books, func(b model.Book) bool {
			return strings.Contains(strings.ToLower(b.Publisher), needle)
		})
	}
	return paginate(books, f.Page, f.Limit, DefaultBookLimit, applied), nil
}

// GetBook returns a book by id.
func (s *Store) GetBook(ctx context.Context, id string) (*model.Book, error) {
	return getByID(ctx, s, Books, "Book", id, func(v model.Book) string { return v.ID })
}

// GetBookBySlug returns a book by slug.
func (s *Store) GetBookBySlug(ctx context.Context, sl string) (*model.Book, error) {
	return getByID(ctx, s, Books, "Book", sl, func(v model.Book) string { return v.Slug })
}

// ListLessons returns the matching lessons sorted by sortOrder. Lessons with
// equal sortOrder keep their file order.
func (s *Store) ListLessons(ctx context.Context, f LessonFilter) ([]model.Lesson, error) {
	lessons, err := readAll[model.Lesson](ctx, s, Lessons)
	if err != nil {
		return nil, err
	}
	lessons = filter(lessons, func(l model.Lesson) bool {
		return (f.BookID == "" || l.BookID == f.BookID) &&
			(f.SubjectID == "" || l.SubjectID == f.SubjectID) &&
			(f.GradeID == "" || l.GradeID == f.GradeID)
	})
	sortLessons(lessons)
	return lessons, nil
}

func sortLessons(lessons []model.Lesson) {
	slices.SortStableFunc(lessons, func(a, b model.Lesson) int { return a.SortOrder - b.SortOrder })
}

// GetLesson returns a lesson by id.
func (s *Store) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	return getByID(ctx, s, Lessons, "Lesson", id, func(v model.Lesson) string { return v.ID })
}

// GetLessonBySlug returns a lesson by slug.
func (s *Store) GetLessonBySlug(ctx context.Context, sl string) (*model.Lesson, error) {
	return getByID(ctx, s, Lessons, "Lesson", sl, func(v model.Lesson) string { return v.Slug })
}

func getByID[T any](ctx context.Context, s *Store, collection, entity, key string, field func(T) string) (*T, error) {
	items, err := readAll[T](ctx, s, collection)
	if err != nil {
		return nil, err
	}
	v, i := find(items, func(it T) bool { return field(it) == key })
	if i < 0 {
		return nil, apperr.NotFound(entity)
	}
	return &v, nil
}

func orDefault[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// CreateSubject adds a subject with id s<n>.
func (s *Store) CreateSubject(ctx context.Context, in SubjectInput, createdBy string) (model.Subject, error) {
	trim(&in.Name, &in.Slug, &in.Icon, &in.Description)
	if err := checkInput(in); err != nil {
		return model.Subject{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subjects, err := load[model.Subject](ctx, s, Subjects)
	if err != nil {
		return model.Subject{}, err
	}

	sub := model.Subject{
		ID:          nextSeqID(subjects, "s", func(v model.Subject) string { return v.ID }),
		Name:        in.Name,
		Slug:        in.Slug,
		Icon:        in.Icon,
		Description: in.Description,
		SortOrder:   orDefault(in.SortOrder, len(subjects)+1),
		IsActive:    orDefault(in.IsActive, true),
		CreatedBy:   createdBy,
	}
	if sub.Slug == "" {
		sub.Slug = slug.Make(in.Name)
	}
	if sub.Icon == "" {
		sub.Icon = SubjectIcon(in.Name)
	}
	if sub.IsActive && slices.ContainsFunc(subjects, func(v model.Subject) bool {
		return v.IsActive && v.Slug == sub.Slug
	}) {
		return model.Subject{}, apperr.Conflict("SubjectSlugTaken")
	}
	sub.CreatedAt = s.timestamp()
	sub.UpdatedAt = sub.CreatedAt

	if err := save(ctx, s, Subjects, append(subjects, sub)); err != nil {
		return model.Subject{}, err
	}
	slog.Info("created subject", "id", sub.ID, "slug", sub.Slug)
	return sub, nil
}

// CreateGrade adds a grade with id g<n> under an existing subject.
func (s *Store) CreateGrade(ctx context.Context, in GradeInput, createdBy string) (model.Grade, error) {
	trim(&in.SubjectID, &in.Name, &in.Slug, &in.Description)
	if err := checkInput(in); err != nil {
		return model.Grade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	subjects, err := load[model.Subject](ctx, s, Subjects)
	if err != nil {
		return model.Grade{}, err
	}
	if _, i := find(subjects, func(v model.Subject) bool { return v.ID == in.SubjectID }); i < 0 {
		return model.Grade{}, apperr.NotFound("Subject")
	}
	grades, err := load[model.Grade](ctx, s, Grades)
	if err != nil {
		return model.Grade{}, err
	}

	g := model.Grade{
		ID:          nextSeqID(grades, "g", func(v model.Grade) string { return v.ID }),
		SubjectID:   in.SubjectID,
		Name:        in.Name,
		Slug:        in.Slug,
		Level:       in.Level,
		Description: in.Description,
		IsActive:    orDefault(in.IsActive, true),
		CreatedBy:   createdBy,
	}
	if g.Slug == "" {
		g.Slug = slug.Make(in.Name)
	}
	if g.Level == 0 {
		g.Level = GradeLevel(in.Name)
	}
	siblings := filter(grades, func(v model.Grade) bool { return v.SubjectID == in.SubjectID })
	g.SortOrder = orDefault(in.SortOrder, len(siblings)+1)
	if slices.ContainsFunc(siblings, func(v model.Grade) bool { return v.Slug == g.Slug }) {
		return model.Grade{}, apperr.Conflict("GradeSlugTaken")
	}
	g.CreatedAt = s.timestamp()
	g.UpdatedAt = g.CreatedAt

	if err := save(ctx, s, Grades, append(grades, g)); err != nil {
		return model.Grade{}, err
	}
	slog.Info("created grade", "id", g.ID, "subject_id", g.SubjectID)
	return g, nil
}

// CreateBook adds a book with id b<n>. Its subjectId is copied from the grade.
func (s *Store) CreateBook(ctx context.Context, in BookInput, createdBy string) (model.Book, error) {
	trim(&in.GradeID, &in.Name, &in.Publisher, &in.Slug, &in.Description, &in.CoverImageURL)
	if err := checkInput(in); err != nil {
		return model.Book{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	grades, err := load[model.Grade](ctx, s, Grades)
	if err != nil {
		return model.Book{}, err
	}
	grade, i := find(grades, func(v model.Grade) bool { return v.ID == in.GradeID })
	if i < 0 {
		return model.Book{}, apperr.NotFound("Grade")
	}
	books, err := load[model.Book](ctx, s, Books)
	if err != nil {
		return model.Book{}, err
	}

	b := model.Book{
		ID:              nextSeqID(books, "b", func(v model.Book) string { return v.ID }),
		GradeID:         grade.ID,
		SubjectID:       grade.SubjectID,
		Name:            in.Name,
		Publisher:       in.Publisher,
		Slug:            in.Slug,
		Description:     in.Description,
		CoverImageURL:   in.CoverImageURL,
		PublicationYear: in.PublicationYear,
		IsActive:        orDefault(in.IsActive, true),
		CreatedBy:       createdBy,
	}
	if b.Publisher == "" {
		b.Publisher = Publisher(in.Name)
	}
	if b.Slug == "" {
		b.Slug = slug.WithID(in.Name, b.ID, 0)
	}
	siblings := filter(books, func(v model.Book) bool { return v.GradeID == grade.ID })
	b.SortOrder = orDefault(in.SortOrder, len(siblings)+1)
	if slices.ContainsFunc(books, func(v model.Book) bool { return v.Slug == b.Slug }) {
		return model.Book{}, apperr.Conflict("BookSlugTaken")
	}
	b.CreatedAt = s.timestamp()
	b.UpdatedAt = b.CreatedAt

	if err := save(ctx, s, Books, append(books, b)); err != nil {
		return model.Book{}, err
	}
	slog.Info("created book", "id", b.ID, "grade_id", b.GradeID, "subject_id", b.SubjectID)
	return b, nil
}

// CreateLesson adds a lesson with id l<n>. Grade and subject are copied from the book.
func (s *Store) CreateLesson(ctx context.Context, in LessonInput, createdBy string) (model.Lesson, error) {
	trim(&in.BookID, &in.Name, &in.Slug, &in.Description)
	if err := checkInput(in); err != nil {
		return model.Lesson{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	books, err := load[model.Book](ctx, s, Books)
	if err != nil {
		return model.Lesson{}, err
	}
	book, i := find(books, func(v model.Book) bool { return v.ID == in.BookID })
	if i < 0 {
		return model.Lesson{}, apperr.NotFound("Book")
	}
	lessons, err := load[model.Lesson](ctx, s, Lessons)
	if err != nil {
		return model.Lesson{}, err
	}

	l := model.Lesson{
		ID:          nextSeqID(lessons, "l", func(v model.Lesson) string { return v.ID }),
		BookID:      book.ID,
		GradeID:     book.GradeID,
		SubjectID:   book.SubjectID,
		Name:        in.Name,
		Slug:        in.Slug,
		Content:     in.Content,
		Description: in.Description,
		IsActive:    orDefault(in.IsActive, true),
		CreatedBy:   createdBy,
	}
	if l.Slug == "" {
		l.Slug = slug.WithID(in.Name, l.ID, 0)
	}
	siblings := filter(lessons, func(v model.Lesson) bool { return v.BookID == book.ID })
	l.SortOrder = orDefault(in.SortOrder, len(siblings)+1)
	if slices.ContainsFunc(siblings, func(v model.Lesson) bool { return v.Slug == l.Slug }) {
		return model.Lesson{}, apperr.Conflict("LessonSlugTaken")
	}
	l.CreatedAt = s.timestamp()
	l.UpdatedAt = l.CreatedAt

	if err := save(ctx, s, Lessons, append(lessons, l)); err != nil {
		return model.Lesson{}, err
	}
	slog.Info("created lesson", "id", l.ID, "book_id", l.BookID)
	return l, nil
}
