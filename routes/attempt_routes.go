package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyforge/quiz_engine/handlers"
	"github.com/studyforge/quiz_engine/middleware"
)

func AttemptRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/quizzes/:quizId/attempts", middleware.Protected(), handlers.SubmitAttempt)

	attempts := api.Group("/attempts", middleware.Protected())
	attempts.Get("", handlers.MyAttempts)
	attempts.Get("/:attemptId", handlers.GetAttempt)
}
