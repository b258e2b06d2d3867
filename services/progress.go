package services

import (
	"studybuddy/models"
	"studybuddy/repository"
)

type ProgressService struct {
	Repo repository.Repository
}

func NewProgressService(repo repository.Repository) *ProgressService {
	return &ProgressService{Repo: repo}
}

// ChildProgress aggregates the attempt log for one child, optionally scoped
// to a subject.
func (p *ProgressService) ChildProgress(childID uint, subject string) (*models.ProgressResponse, error) {
	attempts, err := p.Repo.ListAttempts(childID, NormalizeTag(subject))
	if err != nil {
		return nil, err
	}
	return ComputeProgress(attempts), nil
}

// ComputeProgress derives accuracy, streak and per-subject breakdowns from an
// attempt log ordered oldest first. An empty log yields all zeros.
//
// The streak is signed: the length of the run of identical-correctness
// attempts ending at the most recent one, positive for a correct run,
// negative for an incorrect run.
func ComputeProgress(attempts []models.Attempt) *models.ProgressResponse {
	response := &models.ProgressResponse{
		BySubject: make(map[string]models.SubjectBreakdown),
	}
	response.Attempted = len(attempts)
	for _, attempt := range attempts {
		if attempt.Correct {
			response.Correct++
		}
	}
	response.Accuracy = RoundPercent(response.Correct, response.Attempted)
	response.CurrentStreak = currentStreak(attempts)

	for _, attempt := range attempts {
		if attempt.Subject == "" {
			continue
		}
		breakdown := response.BySubject[attempt.Subject]
		breakdown.Total++
		if attempt.Correct {
			breakdown.Correct++
		}
		response.BySubject[attempt.Subject] = breakdown
	}
	for subject, breakdown := range response.BySubject {
		breakdown.Accuracy = RoundPercent(breakdown.Correct, breakdown.Total)
		response.BySubject[subject] = breakdown
	}
	return response
}

func currentStreak(attempts []models.Attempt) int {
	if len(attempts) == 0 {
		return 0
	}
	latest := attempts[len(attempts)-1].Correct
	run := 0
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Correct != latest {
			break
		}
		run++
	}
	if latest {
		return run
	}
	return -run
}
