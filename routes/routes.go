package routes

import (
	"github.com/gofiber/fiber/v2"

	"studybuddy/config"
	"studybuddy/controllers"
	"studybuddy/middleware"
	"studybuddy/repository"
)

func SetupRoutes(app *fiber.App, repo repository.Repository, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(repo, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(repo, cfg)

	// Quiz session routes
	quizController := controllers.NewQuizController(repo, cfg)
	quiz := app.Group("/api/quiz/sessions", authMiddleware)
	quiz.Post("/", quizController.CreateQuizSession)
	quiz.Get("/", quizController.ListQuizSessions)
	quiz.Get("/:id", quizController.GetQuizSession)
	quiz.Post("/:id/submit", quizController.SubmitQuiz)
	quiz.Post("/:id/expire", quizController.ExpireQuiz)

	// Practice routes
	questionsController := controllers.NewQuestionsController(repo, cfg)
	app.Post("/api/questions/fetch", authMiddleware, questionsController.FetchQuestions)
	app.Get("/api/subtopics", authMiddleware, questionsController.ListSubtopics)

	attemptsController := controllers.NewAttemptsController(repo, cfg)
	app.Post("/api/attempts", authMiddleware, attemptsController.SubmitAttempt)

	// Progress routes
	progressController := controllers.NewProgressController(repo, cfg)
	app.Get("/api/progress/:childId", authMiddleware, progressController.GetProgress)

	// Admin routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/questions", questionsController.AddQuestions)
}
