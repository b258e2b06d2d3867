package services

import (
	"studybuddy/apperrors"
	"studybuddy/models"
	"studybuddy/repository"
)

const (
	MinTimeSpentMs = 100
	MaxTimeSpentMs = 600000
)

type AttemptService struct {
	Repo repository.Repository
}

func NewAttemptService(repo repository.Repository) *AttemptService {
	return &AttemptService{Repo: repo}
}

// Submit records one practice answer. Out-of-range time_spent_ms is rejected
// before anything is written. A correct answer marks the question seen, so
// the selector stops re-serving it.
func (a *AttemptService) Submit(childID, questionID uint, selected string, timeSpentMs int) (*models.AttemptResult, error) {
	if timeSpentMs < MinTimeSpentMs || timeSpentMs > MaxTimeSpentMs {
		return nil, apperrors.Newf(apperrors.KindValidation,
			"time_spent_ms must be between %d and %d", MinTimeSpentMs, MaxTimeSpentMs)
	}

	question, err := a.Repo.GetQuestion(questionID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "question not found")
	}

	correct := ChoiceEqual(selected, question.CorrectAnswer)
	attempt := &models.Attempt{
		ChildID:     childID,
		QuestionID:  questionID,
		Subject:     question.Subject,
		Selected:    selected,
		Correct:     correct,
		TimeSpentMs: timeSpentMs,
	}
	if err := a.Repo.CreateAttempt(attempt); err != nil {
		return nil, err
	}

	if correct {
		if err := a.Repo.MarkSeen(childID, []string{question.Hash}); err != nil {
			return nil, err
		}
	}

	return &models.AttemptResult{
		AttemptID: attempt.ID,
		Correct:   correct,
		Expected:  question.CorrectAnswer,
	}, nil
}
