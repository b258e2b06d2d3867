package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"studybuddy/config"
	"studybuddy/repository"
	"studybuddy/services"
	"studybuddy/utils"
)

type ProgressController struct {
	Repo     repository.Repository
	Cfg      *config.Config
	Progress *services.ProgressService
}

func NewProgressController(repo repository.Repository, cfg *config.Config) *ProgressController {
	return &ProgressController{
		Repo:     repo,
		Cfg:      cfg,
		Progress: services.NewProgressService(repo),
	}
}

func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	childID, err := strconv.Atoi(c.Params("childId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid child ID",
		})
	}

	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}
	owned, err := pc.Repo.ChildBelongsToUser(uint(childID), userID)
	if err != nil || !owned {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Child does not belong to user",
		})
	}

	progress, err := pc.Progress.ChildProgress(uint(childID), c.Query("subject"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	return c.JSON(progress)
}
