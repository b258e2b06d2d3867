package models

import (
	"time"

	"gorm.io/gorm"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// Terminal reports whether the status can never change again.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// DifficultyMix holds the target proportion of questions per tier.
// Proportions must sum to 1.0.
type DifficultyMix struct {
	Easy   float64 `json:"easy"`
	Medium float64 `json:"medium"`
	Hard   float64 `json:"hard"`
}

// DefaultDifficultyMix is applied when a quiz is created without an explicit mix.
func DefaultDifficultyMix() DifficultyMix {
	return DifficultyMix{Easy: 0.3, Medium: 0.5, Hard: 0.2}
}

type QuizSession struct {
	gorm.Model
	ChildID        uint          `gorm:"index;not null"`
	Subject        string        `gorm:"not null"`
	Topic          string        `gorm:"not null"`
	Subtopic       string
	Status         SessionStatus `gorm:"type:varchar(16);default:active;not null"` // active, completed, expired
	DurationSec    int           `gorm:"not null"`
	DifficultyMix  DifficultyMix `gorm:"embedded;embeddedPrefix:mix_"`
	StartedAt      time.Time     `gorm:"not null"`
	SubmittedAt    *time.Time
	Score          *int // 0-100, set iff status = completed
	TotalQuestions int  `gorm:"not null"`
	Questions      []QuizSessionQuestion `gorm:"constraint:OnDelete:CASCADE"`
}

// TimeRemainingSec returns the seconds left before the session expires, never negative.
func (s *QuizSession) TimeRemainingSec(now time.Time) int {
	remaining := s.DurationSec - int(now.Sub(s.StartedAt).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiredBy reports whether the duration window has elapsed.
func (s *QuizSession) ExpiredBy(now time.Time) bool {
	return !now.Before(s.StartedAt.Add(time.Duration(s.DurationSec) * time.Second))
}

// QuizSessionQuestion pins a question into a session at a fixed position. The
// correct choice and explanation are captured at selection time so later edits
// to the source question cannot change grading.
type QuizSessionQuestion struct {
	gorm.Model
	QuizSessionID  uint   `gorm:"uniqueIndex:idx_session_position;uniqueIndex:idx_session_question;not null"`
	QuestionID     uint   `gorm:"uniqueIndex:idx_session_question;not null"`
	Position       int    `gorm:"uniqueIndex:idx_session_position;not null"` // 0-based order in the quiz
	CorrectChoice  string `gorm:"not null"`
	Explanation    string
	SelectedChoice *string
	IsCorrect      *bool
}

// QuizSessionQuestionView joins a session question with its source content.
type QuizSessionQuestionView struct {
	QuizSessionQuestion
	Stem       string
	Options    []string
	Subject    string
	Topic      string
	Difficulty string
}

type QuizSessionResponse struct {
	Session          *QuizSession      `json:"session"`
	Questions        []QuestionDisplay `json:"questions"`
	TimeRemainingSec int               `json:"time_remaining_sec"`
	Relaxation       string            `json:"relaxation,omitempty"`
}

type QuizAnswer struct {
	QuestionID     uint   `json:"question_id"`
	SelectedChoice string `json:"selected_choice"`
}

type QuizItemResult struct {
	QuestionID     uint     `json:"question_id"`
	Index          int      `json:"index"`
	Stem           string   `json:"stem"`
	Options        []string `json:"options"`
	SelectedChoice string   `json:"selected_choice"`
	CorrectChoice  string   `json:"correct_choice"`
	IsCorrect      bool     `json:"is_correct"`
	Explanation    string   `json:"explanation"`
}

type QuizResult struct {
	SessionID      uint             `json:"session_id"`
	Score          int              `json:"score"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Unanswered     int              `json:"unanswered_count"`
	TimeTakenSec   int              `json:"time_taken_sec"`
	Items          []QuizItemResult `json:"items"`
	SubmittedAt    time.Time        `json:"submitted_at"`
}
