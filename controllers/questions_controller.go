package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"studybuddy/config"
	"studybuddy/models"
	"studybuddy/repository"
	"studybuddy/services"
	"studybuddy/utils"
)

type QuestionsController struct {
	Repo     repository.Repository
	Cfg      *config.Config
	Practice *services.PracticeService
	Ingest   *services.IngestService
}

func NewQuestionsController(repo repository.Repository, cfg *config.Config) *QuestionsController {
	return &QuestionsController{
		Repo:     repo,
		Cfg:      cfg,
		Practice: services.NewPracticeService(repo),
		Ingest:   services.NewIngestService(repo),
	}
}

// FetchQuestions serves a practice batch of unseen questions.
func (qc *QuestionsController) FetchQuestions(c *fiber.Ctx) error {
	var input struct {
		ChildID uint   `json:"child_id"`
		Subject string `json:"subject"`
		Topic   string `json:"topic"`
		Limit   int    `json:"limit"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Limit == 0 {
		input.Limit = 5
	}

	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	owned, err := qc.Repo.ChildBelongsToUser(input.ChildID, userID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Child does not belong to user",
		})
	}

	questions, err := qc.Practice.FetchBatch(input.ChildID, input.Subject, input.Topic, input.Limit)
	if err != nil {
		return utils.AppError(c, err)
	}

	// Answers hidden; practice grading happens per attempt.
	displays := make([]models.QuestionDisplay, 0, len(questions))
	for i, question := range questions {
		displays = append(displays, models.QuestionDisplay{
			ID:         question.ID,
			Index:      i,
			Stem:       question.Stem,
			Options:    question.OptionList(),
			Difficulty: question.Difficulty,
			Subject:    question.Subject,
			Topic:      question.Topic,
		})
	}
	return c.JSON(fiber.Map{
		"questions": displays,
	})
}

func (qc *QuestionsController) ListSubtopics(c *fiber.Ctx) error {
	subject := services.NormalizeTag(c.Query("subject"))
	if subject == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "subject is required",
		})
	}
	topic := services.NormalizeTag(c.Query("topic"))

	var grade *int
	if value := c.Query("grade"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid grade",
			})
		}
		grade = &parsed
	}

	subtopics, err := qc.Repo.ListSubtopics(subject, grade, topic)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	var result []fiber.Map
	for _, subtopic := range subtopics {
		result = append(result, fiber.Map{
			"id":          subtopic.ID,
			"subject":     subtopic.Subject,
			"grade":       subtopic.Grade,
			"topic":       subtopic.Topic,
			"name":        subtopic.Name,
			"display":     services.ToDisplayCase(subtopic.Name),
			"description": subtopic.Description,
		})
	}
	return c.JSON(fiber.Map{
		"subtopics": result,
	})
}

// AddQuestions bulk-ingests catalog questions (admin only).
func (qc *QuestionsController) AddQuestions(c *fiber.Ctx) error {
	var input struct {
		Questions []services.QuestionInput `json:"questions"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if len(input.Questions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No questions provided",
		})
	}

	inserted, err := qc.Ingest.InsertQuestions(input.Questions)
	if err != nil {
		return utils.AppError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Questions ingested",
		"inserted": inserted,
		"skipped":  len(input.Questions) - inserted,
	})
}
