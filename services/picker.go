package services

import (
	"studybuddy/apperrors"
	"studybuddy/models"
	"studybuddy/repository"
)

// PracticeService serves open-ended practice batches: unseen questions,
// ordered by an adaptive difficulty preference derived from the child's
// recent accuracy.
type PracticeService struct {
	Repo repository.Repository
}

func NewPracticeService(repo repository.Repository) *PracticeService {
	return &PracticeService{Repo: repo}
}

// difficultySequence picks which tiers to draw from, easiest-first for a
// struggling learner, harder-first once accuracy is high.
func difficultySequence(attempts []models.Attempt) []string {
	if len(attempts) == 0 {
		return []string{"easy", "medium"}
	}
	correct := 0
	for _, attempt := range attempts {
		if attempt.Correct {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(attempts))
	if accuracy >= 0.85 && len(attempts) >= 5 {
		return []string{"medium", "hard", "easy"}
	}
	if accuracy >= 0.6 {
		return []string{"easy", "medium", "hard"}
	}
	return []string{"easy"}
}

// FetchBatch returns up to limit unseen questions for the child.
func (p *PracticeService) FetchBatch(childID uint, subject, topic string, limit int) ([]models.Question, error) {
	if limit < 1 || limit > 20 {
		return nil, apperrors.New(apperrors.KindValidation, "limit must be between 1 and 20")
	}
	subject = NormalizeTag(subject)
	topic = NormalizeTag(topic)
	if subject == "" {
		return nil, apperrors.New(apperrors.KindValidation, "subject is required")
	}

	child, err := p.Repo.GetChild(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "child not found")
	}

	attempts, err := p.Repo.ListAttempts(childID, "")
	if err != nil {
		return nil, err
	}
	seenList, err := p.Repo.ListSeenHashes(childID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(seenList))
	for _, hash := range seenList {
		seen[hash] = true
	}

	var picked []models.Question
	pickedHashes := make(map[string]bool)
	for _, difficulty := range difficultySequence(attempts) {
		if len(picked) >= limit {
			break
		}
		questions, err := p.Repo.ListQuestions(repository.QuestionFilter{
			Subject:    subject,
			Topic:      topic,
			Grade:      child.Grade,
			Difficulty: difficulty,
		})
		if err != nil {
			return nil, err
		}
		for _, question := range questions {
			if len(picked) >= limit {
				break
			}
			if seen[question.Hash] || pickedHashes[question.Hash] {
				continue
			}
			pickedHashes[question.Hash] = true
			picked = append(picked, question)
		}
	}
	return picked, nil
}
