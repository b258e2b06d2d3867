package services

import (
	"encoding/json"

	"studybuddy/apperrors"
	"studybuddy/models"
	"studybuddy/repository"
)

// IngestService validates and stores new catalog questions. Stored questions
// are immutable; duplicates are collapsed by content hash.
type IngestService struct {
	Repo repository.Repository
}

func NewIngestService(repo repository.Repository) *IngestService {
	return &IngestService{Repo: repo}
}

type QuestionInput struct {
	StandardRef   string   `json:"standard_ref"`
	Subject       string   `json:"subject"`
	Grade         *int     `json:"grade"`
	Topic         string   `json:"topic"`
	SubTopic      string   `json:"sub_topic"`
	Difficulty    string   `json:"difficulty"`
	Stem          string   `json:"stem"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Rationale     string   `json:"rationale"`
	Source        string   `json:"source"`
}

// ValidateMCQ enforces the multiple-choice shape: exactly four unique
// options with the correct answer among them.
func ValidateMCQ(input QuestionInput) error {
	if input.Stem == "" {
		return apperrors.New(apperrors.KindValidation, "question stem is required")
	}
	if len(input.Options) != 4 {
		return apperrors.New(apperrors.KindValidation, "each question must carry exactly four options")
	}
	unique := make(map[string]bool, len(input.Options))
	answerFound := false
	for _, option := range input.Options {
		if unique[option] {
			return apperrors.New(apperrors.KindValidation, "options must be unique")
		}
		unique[option] = true
		if option == input.CorrectAnswer {
			answerFound = true
		}
	}
	if !answerFound {
		return apperrors.New(apperrors.KindValidation, "correct answer must be one of the provided options")
	}
	return nil
}

// InsertQuestions validates, normalizes and stores a batch, returning how
// many were new (hash duplicates are skipped, not errors).
func (s *IngestService) InsertQuestions(inputs []QuestionInput) (int, error) {
	rows := make([]models.Question, 0, len(inputs))
	for _, input := range inputs {
		if err := ValidateMCQ(input); err != nil {
			return 0, err
		}
		optionsJSON, err := json.Marshal(input.Options)
		if err != nil {
			return 0, err
		}
		source := input.Source
		if source == "" {
			source = "seeded"
		}
		rows = append(rows, models.Question{
			StandardRef:   input.StandardRef,
			Subject:       NormalizeTag(input.Subject),
			Grade:         input.Grade,
			Topic:         NormalizeTag(input.Topic),
			SubTopic:      NormalizeTag(input.SubTopic),
			Difficulty:    NormalizeTag(input.Difficulty),
			Stem:          input.Stem,
			Options:       string(optionsJSON),
			CorrectAnswer: input.CorrectAnswer,
			Rationale:     input.Rationale,
			Source:        source,
			Hash:          HashQuestion(input.Stem, input.Options, input.CorrectAnswer),
		})
	}
	return s.Repo.InsertQuestions(rows)
}
