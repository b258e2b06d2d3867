package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Question content is immutable once ingested; Hash is the uniqueness key.
type Question struct {
	gorm.Model
	StandardRef   string
	Subject       string `gorm:"index;not null"`
	Grade         *int
	Topic         string `gorm:"index"`
	SubTopic      string
	Difficulty    string // easy, medium, hard
	Stem          string `gorm:"not null"`
	Options       string `gorm:"not null"` // JSON array of options
	CorrectAnswer string `gorm:"not null"`
	Rationale     string
	Source        string // seeded, generated
	Hash          string `gorm:"uniqueIndex;not null"`
}

// OptionList decodes the stored JSON options array.
func (q *Question) OptionList() []string {
	var options []string
	json.Unmarshal([]byte(q.Options), &options)
	return options
}

type Subtopic struct {
	gorm.Model
	Subject     string `gorm:"index;not null"`
	Grade       *int
	Topic       string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Description string
}

// SeenQuestion records that a question was served to a child. Set semantics:
// presence matters, not count. CreatedAt is the first-seen timestamp.
type SeenQuestion struct {
	gorm.Model
	ChildID      uint   `gorm:"uniqueIndex:idx_seen_child_hash;not null"`
	QuestionHash string `gorm:"uniqueIndex:idx_seen_child_hash;not null"`
}

// QuestionDisplay is a question as shown to the learner: no answer, no rationale.
type QuestionDisplay struct {
	ID         uint     `json:"id"`
	Index      int      `json:"index"`
	Stem       string   `json:"stem"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty,omitempty"`
	Subject    string   `json:"subject"`
	Topic      string   `json:"topic,omitempty"`
}
