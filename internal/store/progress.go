package store

import (
	"context"
	"log/slog"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
)

// ProgressFilter narrows ListProgress.
type ProgressFilter struct {
	UserID   string
	LessonID string
}

// ProgressInput is the payload for MarkLessonComplete.
type ProgressInput struct {
	UserID   string `json:"userId" validate:"required"`
	LessonID string `json:"lessonId" validate:"required"`
}

// ListProgress returns the progress rows matching every set filter.
func (s *Store) ListProgress(ctx context.Context, f ProgressFilter) ([]model.Progress, error) {
	rows, err := readAll[model.Progress](ctx, s, Progress)
	if err != nil {
		return nil, err
	}
	return filter(rows, func(p model.Progress) bool {
		return (f.UserID == "" || p.UserID == f.UserID) &&
			(f.LessonID == "" || p.LessonID == f.LessonID)
	}), nil
}

// GetProgress returns the progress of a user on a lesson, or nil if there is none.
func (s *Store) GetProgress(ctx context.Context, userID, lessonID string) (*model.Progress, error) {
	rows, err := readAll[model.Progress](ctx, s, Progress)
	if err != nil {
		return nil, err
	}
	p, i := find(rows, func(p model.Progress) bool { return p.UserID == userID && p.LessonID == lessonID })
	if i < 0 {
		return nil, nil
	}
	return &p, nil
}

// MarkLessonComplete records that a user completed a lesson. A repeated call
// for the same pair refreshes completedAt on the existing row. created reports
// whether a new row was written.
func (s *Store) MarkLessonComplete(ctx context.Context, in ProgressInput) (p model.Progress, created bool, err error) {
	trim(&in.UserID, &in.LessonID)
	if err := checkInput(in); err != nil {
		return model.Progress{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lessons, err := load[model.Lesson](ctx, s, Lessons)
	if err != nil {
		return model.Progress{}, false, err
	}
	if _, i := find(lessons, func(l model.Lesson) bool { return l.ID == in.LessonID }); i < 0 {
		return model.Progress{}, false, apperr.NotFound("Lesson")
	}

	rows, err := load[model.Progress](ctx, s, Progress)
	if err != nil {
		return model.Progress{}, false, err
	}
	now := s.timestamp()
	p, i := find(rows, func(p model.Progress) bool { return p.UserID == in.UserID && p.LessonID == in.LessonID })
	if i >= 0 {
		p.Status = model.ProgressCompleted
		p.CompletedAt = now
		rows[i] = p
	} else {
		p = model.Progress{
			ID:          s.nextMillisID("up"),
			UserID:      in.UserID,
			LessonID:    in.LessonID,
			Status:      model.ProgressCompleted,
			CompletedAt: now,
		}
		rows = append(rows, p)
		created = true
	}

	if err := save(ctx, s, Progress, rows); err != nil {
		return model.Progress{}, false, err
	}
	slog.Info("lesson completed", "id", p.ID, "user_id", p.UserID, "lesson_id", p.LessonID, "created", created)
	return p, created, nil
}
