package controllers

import (
	"github.com/gofiber/fiber/v2"

	"studybuddy/config"
	"studybuddy/repository"
	"studybuddy/services"
	"studybuddy/utils"
)

type AttemptsController struct {
	Repo     repository.Repository
	Cfg      *config.Config
	Attempts *services.AttemptService
}

func NewAttemptsController(repo repository.Repository, cfg *config.Config) *AttemptsController {
	return &AttemptsController{
		Repo:     repo,
		Cfg:      cfg,
		Attempts: services.NewAttemptService(repo),
	}
}

func (ac *AttemptsController) SubmitAttempt(c *fiber.Ctx) error {
	var input struct {
		ChildID     uint   `json:"child_id"`
		QuestionID  uint   `json:"question_id"`
		Selected    string `json:"selected"`
		TimeSpentMs int    `json:"time_spent_ms"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	owned, err := ac.Repo.ChildBelongsToUser(input.ChildID, userID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Child does not belong to user",
		})
	}

	result, err := ac.Attempts.Submit(input.ChildID, input.QuestionID, input.Selected, input.TimeSpentMs)
	if err != nil {
		return utils.AppError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, result)
}
