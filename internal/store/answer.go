package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/solvefy/solvefy/internal/apperr"
	"github.com/solvefy/solvefy/internal/model"
	"github.com/solvefy/solvefy/internal/video"
)

// AnswerFilter narrows ListAnswers. UserID matches the answer's author.
type AnswerFilter struct {
	QuestionID string
	UserID     string
}

// AnswerInput is the payload for CreateAnswer.
type AnswerInput struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
	Explain    string `json:"explain"`
	VideoURL   string `json:"videoUrl"`
	VideoType  string `json:"videoType"`
	UserID     string `json:"userId" validate:"required"`
}

// AnswerUpdate is the payload for UpdateAnswer. A nil VideoURL keeps the
// current video; an empty one removes it.
type AnswerUpdate struct {
	Answer    string  `json:"answer" validate:"required"`
	Explain   string  `json:"explain"`
	VideoURL  *string `json:"videoUrl"`
	VideoType string  `json:"videoType"`
	UserID    string  `json:"userId" validate:"required"`
}

// ListAnswers returns the answers matching every set filter, in file order.
func (s *Store) ListAnswers(ctx context.Context, f AnswerFilter) ([]model.Answer, error) {
	answers, err := readAll[model.Answer](ctx, s, Answers)
	if err != nil {
		return nil, err
	}
	return filter(answers, func(a model.Answer) bool {
		return (f.QuestionID == "" || a.QuestionID == f.QuestionID) &&
			(f.UserID == "" || a.CreatedBy == f.UserID)
	}), nil
}

// GetAnswer returns an answer by id.
func (s *Store) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	return getByID(ctx, s, Answers, "Answer", id, func(v model.Answer) string { return v.ID })
}

func resolveVideo(url, typ string) (video.Info, error) {
	info, err := video.Resolve(url, typ)
	if errors.Is(err, video.ErrUnknownType) {
		return video.Info{}, apperr.Invalid("InvalidVideoType")
	}
	return info, err
}

// CreateAnswer adds an answer with id a<n> to an existing question. A YouTube
// video link gets a derived thumbnail; a link that cannot be parsed leaves
// the thumbnail null.
func (s *Store) CreateAnswer(ctx context.Context, in AnswerInput) (model.Answer, error) {
	trim(&in.QuestionID, &in.Answer, &in.Explain, &in.UserID)
	if err := checkInput(in); err != nil {
		return model.Answer{}, err
	}
	vid, err := resolveVideo(in.VideoURL, in.VideoType)
	if err != nil {
		return model.Answer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := load[model.Question](ctx, s, Questions)
	if err != nil {
		return model.Answer{}, err
	}
	if _, i := find(questions, func(q model.Question) bool { return q.ID == in.QuestionID }); i < 0 {
		return model.Answer{}, apperr.NotFound("Question")
	}

	answers, err := load[model.Answer](ctx, s, Answers)
	if err != nil {
		return model.Answer{}, err
	}
	now := s.timestamp()
	a := model.Answer{
		ID:             nextSeqID(answers, "a", func(a model.Answer) string { return a.ID }),
		QuestionID:     in.QuestionID,
		Answer:         in.Answer,
		Explain:        in.Explain,
		VideoURL:       vid.URL,
		VideoType:      vid.Type,
		VideoThumbnail: vid.Thumbnail,
		CreatedBy:      in.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := save(ctx, s, Answers, append(answers, a)); err != nil {
		return model.Answer{}, err
	}
	slog.Info("created answer", "id", a.ID, "question_id", a.QuestionID, "created_by", a.CreatedBy)
	return a, nil
}

// UpdateAnswer edits an answer owned by in.UserID.
func (s *Store) UpdateAnswer(ctx context.Context, id string, in AnswerUpdate) (model.Answer, error) {
	trim(&in.Answer, &in.Explain, &in.UserID)
	if err := checkInput(in); err != nil {
		return model.Answer{}, err
	}
	var vid video.Info
	if in.VideoURL != nil {
		var err error
		if vid, err = resolveVideo(*in.VideoURL, in.VideoType); err != nil {
			return model.Answer{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	answers, err := load[model.Answer](ctx, s, Answers)
	if err != nil {
		return model.Answer{}, err
	}
	a, i := find(answers, func(a model.Answer) bool { return a.ID == id })
	if i < 0 {
		return model.Answer{}, apperr.NotFound("Answer")
	}
	if a.CreatedBy != in.UserID {
		return model.Answer{}, apperr.Forbidden("NotAnswerOwner")
	}

	a.Answer = in.Answer
	a.Explain = in.Explain
	if in.VideoURL != nil {
		a.VideoURL = vid.URL
		a.VideoType = vid.Type
		a.VideoThumbnail = vid.Thumbnail
	}
	a.UpdatedAt = s.timestamp()
	answers[i] = a

	if err := save(ctx, s, Answers, answers); err != nil {
		return model.Answer{}, err
	}
	return a, nil
}

// DeleteAnswer removes an answer owned by userID.
func (s *Store) DeleteAnswer(ctx context.Context, id, userID string) error {
	if userID == "" {
		return apperr.Validation("userId")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	answers, err := load[model.Answer](ctx, s, Answers)
	if err != nil {
		return err
	}
	a, i := find(answers, func(a model.Answer) bool { return a.ID == id })
	if i < 0 {
		return apperr.NotFound("Answer")
	}
	if a.CreatedBy != userID {
		return apperr.Forbidden("NotAnswerOwner")
	}

	if err := save(ctx, s, Answers, append(answers[:i:i], answers[i+1:]...)); err != nil {
		return err
	}
	slog.Info("deleted answer", "id", id)
	return nil
}
