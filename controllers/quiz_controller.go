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

type QuizController struct {
	Repo repository.Repository
	Cfg  *config.Config
	Quiz *services.QuizService
}

func NewQuizController(repo repository.Repository, cfg *config.Config) *QuizController {
	return &QuizController{
		Repo: repo,
		Cfg:  cfg,
		Quiz: services.NewQuizService(repo, cfg),
	}
}

func (qc *QuizController) childOwnedByCaller(c *fiber.Ctx, childID uint) (bool, error) {
	userID, err := utils.ExtractUserIDFromToken(c, qc.Cfg)
	if err != nil {
		return false, err
	}
	return qc.Repo.ChildBelongsToUser(childID, userID)
}

func (qc *QuizController) CreateQuizSession(c *fiber.Ctx) error {
	var input struct {
		ChildID       uint                  `json:"child_id"`
		Subject       string                `json:"subject"`
		Topic         string                `json:"topic"`
		Subtopic      string                `json:"subtopic"`
		QuestionCount int                   `json:"question_count"`
		DurationSec   int                   `json:"duration_sec"`
		DifficultyMix *models.DifficultyMix `json:"difficulty_mix"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	owned, err := qc.childOwnedByCaller(c, input.ChildID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Child does not belong to user",
		})
	}

	response, err := qc.Quiz.Create(services.CreateQuizInput{
		ChildID:       input.ChildID,
		Subject:       input.Subject,
		Topic:         input.Topic,
		Subtopic:      input.Subtopic,
		QuestionCount: input.QuestionCount,
		DurationSec:   input.DurationSec,
		DifficultyMix: input.DifficultyMix,
	})
	if err != nil {
		return utils.AppError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, response)
}

func (qc *QuizController) GetQuizSession(c *fiber.Ctx) error {
	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	response, results, err := qc.Quiz.Get(uint(sessionID))
	if err != nil {
		return utils.AppError(c, err)
	}

	owned, err := qc.childOwnedByCaller(c, response.Session.ChildID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	if results != nil {
		return c.JSON(fiber.Map{
			"session":            response.Session,
			"questions":          response.Questions,
			"time_remaining_sec": response.TimeRemainingSec,
			"results":            results,
		})
	}
	return c.JSON(response)
}

func (qc *QuizController) SubmitQuiz(c *fiber.Ctx) error {
	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var input struct {
		Answers []models.QuizAnswer `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	session, err := qc.Repo.GetQuizSession(uint(sessionID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz session not found",
		})
	}

	owned, err := qc.childOwnedByCaller(c, session.ChildID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	result, err := qc.Quiz.Submit(uint(sessionID), input.Answers)
	if err != nil {
		return utils.AppError(c, err)
	}
	return c.JSON(result)
}

func (qc *QuizController) ExpireQuiz(c *fiber.Ctx) error {
	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	session, err := qc.Repo.GetQuizSession(uint(sessionID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Quiz session not found",
		})
	}

	owned, err := qc.childOwnedByCaller(c, session.ChildID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	expired, err := qc.Quiz.Expire(uint(sessionID))
	if err != nil {
		return utils.AppError(c, err)
	}
	return c.JSON(expired)
}

func (qc *QuizController) ListQuizSessions(c *fiber.Ctx) error {
	childID, err := strconv.Atoi(c.Query("child_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid child ID",
		})
	}

	owned, err := qc.childOwnedByCaller(c, uint(childID))
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Access denied",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	sessions, total, err := qc.Quiz.List(uint(childID), limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return utils.Paginate(c, sessions, total, page, limit)
}
