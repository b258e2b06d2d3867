package models

import "gorm.io/gorm"

// Attempt is one answered practice question. Append-only.
type Attempt struct {
	gorm.Model
	ChildID     uint   `gorm:"index;not null"`
	QuestionID  uint   `gorm:"not null"`
	Subject     string `gorm:"index"`
	Selected    string `gorm:"not null"`
	Correct     bool
	TimeSpentMs int
}

type AttemptResult struct {
	AttemptID uint   `json:"attempt_id"`
	Correct   bool   `json:"correct"`
	Expected  string `json:"expected"`
}

type SubjectBreakdown struct {
	Correct  int `json:"correct"`
	Total    int `json:"total"`
	Accuracy int `json:"accuracy"` // percentage 0-100
}

type ProgressResponse struct {
	Attempted     int                         `json:"attempted"`
	Correct       int                         `json:"correct"`
	Accuracy      int                         `json:"accuracy"` // percentage 0-100
	CurrentStreak int                         `json:"current_streak"`
	BySubject     map[string]SubjectBreakdown `json:"by_subject"`
}
