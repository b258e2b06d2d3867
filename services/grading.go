package services

import (
	"math"
	"strings"
	"time"

	"studybuddy/models"
)

// RoundPercent computes round(100 * part / whole) with half rounded away
// from zero, returning 0 when whole is 0. All scores and accuracy figures
// in the system go through this one helper.
func RoundPercent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Floor(100*float64(part)/float64(whole) + 0.5))
}

// ChoiceEqual compares a submitted choice to the stored correct choice:
// whitespace-trimmed, case-insensitive.
func ChoiceEqual(selected, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(selected), strings.TrimSpace(correct))
}

type GradingResult struct {
	Score          int
	CorrectCount   int
	TotalQuestions int
	Unanswered     int
	TimeTakenSec   int
	Items          []models.QuizItemResult
	// Answers carries the per-question outcome rows for the atomic
	// completed transition; grading itself persists nothing.
	Answers []models.QuizSessionQuestion
}

// GradeQuiz scores a submitted answer set against the choices captured at
// selection time. A question with no submitted answer counts as incorrect.
func GradeQuiz(questions []models.QuizSessionQuestionView, answers []models.QuizAnswer, startedAt, now time.Time) *GradingResult {
	answerMap := make(map[uint]string, len(answers))
	for _, answer := range answers {
		answerMap[answer.QuestionID] = answer.SelectedChoice
	}

	result := &GradingResult{TotalQuestions: len(questions)}
	for _, question := range questions {
		selected, answered := answerMap[question.QuestionID]
		if !answered {
			result.Unanswered++
			selected = ""
		}
		correct := answered && ChoiceEqual(selected, question.CorrectChoice)
		if correct {
			result.CorrectCount++
		}

		isCorrect := correct
		selectedCopy := selected
		result.Answers = append(result.Answers, models.QuizSessionQuestion{
			QuizSessionID:  question.QuizSessionID,
			QuestionID:     question.QuestionID,
			Position:       question.Position,
			SelectedChoice: &selectedCopy,
			IsCorrect:      &isCorrect,
		})
		result.Items = append(result.Items, models.QuizItemResult{
			QuestionID:     question.QuestionID,
			Index:          question.Position,
			Stem:           question.Stem,
			Options:        question.Options,
			SelectedChoice: selected,
			CorrectChoice:  question.CorrectChoice,
			IsCorrect:      correct,
			Explanation:    question.Explanation,
		})
	}

	result.Score = RoundPercent(result.CorrectCount, result.TotalQuestions)
	result.TimeTakenSec = int(now.Sub(startedAt).Seconds())
	return result
}
