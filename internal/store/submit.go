package store

import (
	"context"
	"strings"

	"github.com/solvefy/solvefy/internal/model"
)

// SubmissionInput is the body of the deprecated submit_answer action.
type SubmissionInput struct {
	UserID     string `json:"userId" validate:"required"`
	QuestionID string `json:"questionId" validate:"required"`
	UserAnswer string `json:"userAnswer" validate:"required"`
}

// GradeSubmission compares a submitted answer with the first stored answer of
// the question. Nothing is persisted: the returned progress entry is transient.
func (s *Store) GradeSubmission(ctx context.Context, in SubmissionInput) (model.SubmissionResult, error) {
	trim(&in.UserID, &in.QuestionID, &in.UserAnswer)
	if err := checkInput(in); err != nil {
		return model.SubmissionResult{}, err
	}

	answers, err := readAll[model.Answer](ctx, s, Answers)
	if err != nil {
		return model.SubmissionResult{}, err
	}

	var res model.SubmissionResult
	if a, i := find(answers, func(a model.Answer) bool { return a.QuestionID == in.QuestionID }); i >= 0 {
		res.IsCorrect = strings.TrimSpace(a.Answer) == in.UserAnswer
		res.CorrectAnswer = &a.Answer
		res.Explanation = &a.Explain
	}
	res.Progress = model.SubmissionEntry{
		ID:          s.nextMillisID("up_"),
		UserID:      in.UserID,
		QuestionID:  in.QuestionID,
		Status:      model.ProgressCompleted,
		UserAnswer:  in.UserAnswer,
		IsCorrect:   res.IsCorrect,
		Attempts:    1,
		CompletedAt: s.timestamp(),
	}
	return res, nil
}
