package store

import (
	"context"
	"log/slog"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/slug"
)

// QuestionFilter narrows ListQuestions.
type QuestionFilter struct {
	LessonID string
	Page     int
	Limit    int
}

// QuestionInput is the payload for CreateQuestion.
type QuestionInput struct {
	LessonID string `json:"lessonId" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

// QuestionUpdate is the payload for UpdateQuestion.
type QuestionUpdate struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

// ListQuestions returns one page of questions, optionally of one lesson.
func (s *Store) ListQuestions(ctx context.Context, f QuestionFilter) (model.Page[model.Question], error) {
	questions, err := readAll[model.Question](ctx, s, Questions)
	if err != nil {
		return model.Page[model.Question]{}, err
	}
	applied := filterSet{}
	if applied.add("lessonId", f.LessonID) {
		questions = filter(questions, func(q model.Question) bool { return q.LessonID == f.LessonID })
	}
	return paginate(questions, f.Page, f.Limit, DefaultQuestionLimit, applied), nil
}

// GetQuestion returns a question by id.
func (s *Store) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	return getByID(ctx, s, Questions, "Question", id, func(v model.Question) string { return v.ID })
}

// GetQuestionBySlug returns a question by slug.
func (s *Store) GetQuestionBySlug(ctx context.Context, sl string) (*model.Question, error) {
	return getByID(ctx, s, Questions, "Question", sl, func(v model.Question) string { return v.Slug })
}

// CreateQuestion adds a question with id q<n> under an existing lesson.
func (s *Store) CreateQuestion(ctx context.Context, in QuestionInput) (model.Question, error) {
	trim(&in.LessonID, &in.Title, &in.Content, &in.UserID)
	if err := checkInput(in); err != nil {
		return model.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lessons, err := load[model.Lesson](ctx, s, Lessons)
	if err != nil {
		return model.Question{}, err
	}
	if _, i := find(lessons, func(l model.Lesson) bool { return l.ID == in.LessonID }); i < 0 {
		return model.Question{}, apperr.NotFound("Lesson")
	}

	questions, err := load[model.Question](ctx, s, Questions)
	if err != nil {
		return model.Question{}, err
	}
	id := nextSeqID(questions, "q", func(q model.Question) string { return q.ID })
	now := s.timestamp()
	q := model.Question{
		ID:        id,
		LessonID:  in.LessonID,
		Title:     in.Title,
		Content:   in.Content,
		Slug:      slug.Question(in.Title, id),
		CreatedBy: in.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := save(ctx, s, Questions, append(questions, q)); err != nil {
		return model.Question{}, err
	}
	slog.Info("created question", "id", q.ID, "lesson_id", q.LessonID, "created_by", q.CreatedBy)
	return q, nil
}

// UpdateQuestion changes the title and content of a question owned by in.UserID.
// The slug follows the new title.
func (s *Store) UpdateQuestion(ctx context.Context, id string, in QuestionUpdate) (model.Question, error) {
	trim(&in.Title, &in.Content, &in.UserID)
	if err := checkInput(in); err != nil {
		return model.Question{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := load[model.Question](ctx, s, Questions)
	if err != nil {
		return model.Question{}, err
	}
	q, i := find(questions, func(q model.Question) bool { return q.ID == id })
	if i < 0 {
		return model.Question{}, apperr.NotFound("Question")
	}
	if q.CreatedBy != in.UserID {
		return model.Question{}, apperr.Forbidden("NotQuestionOwner")
	}

	q.Title = in.Title
	q.Content = in.Content
	q.Slug = slug.Question(in.Title, q.ID)
	q.UpdatedAt = s.timestamp()
	questions[i] = q

	if err := save(ctx, s, Questions, questions); err != nil {
		return model.Question{}, err
	}
	return q, nil
}

// DeleteQuestion removes a question owned by userID together with all of its
// answers, in one commit. It returns how many answers were removed.
func (s *Store) DeleteQuestion(ctx context.Context, id, userID string) (int, error) {
	if userID == "" {
		return 0, apperr.Validation("userId")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := load[model.Question](ctx, s, Questions)
	if err != nil {
		return 0, err
	}
	q, i := find(questions, func(q model.Question) bool { return q.ID == id })
	if i < 0 {
		return 0, apperr.NotFound("Question")
	}
	if q.CreatedBy != userID {
		return 0, apperr.Forbidden("NotQuestionOwner")
	}
	answers, err := load[model.Answer](ctx, s, Answers)
	if err != nil {
		return 0, err
	}

	kept := filter(answers, func(a model.Answer) bool { return a.QuestionID != id })
	removed := len(answers) - len(kept)

	cs := changeset{}
	if err := stage(cs, Questions, append(questions[:i:i], questions[i+1:]...)); err != nil {
		return 0, err
	}
	if err := stage(cs, Answers, kept); err != nil {
		return 0, err
	}
	if err := s.commit(ctx, cs); err != nil {
		return 0, err
	}
	slog.Info("deleted question", "id", id, "answers_removed", removed)
	return removed, nil
}
