package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/studyforge/quiz_engine/handlers"
	"github.com/studyforge/quiz_engine/middleware"
)

func QuizRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	authoring := api.Group("/instructor/quizzes", middleware.Protected(), middleware.InstructorRequired())
	authoring.Post("", handlers.CreateQuiz)
	authoring.Get("", handlers.InstructorListQuizzes)
	authoring.Put("/:quizId", handlers.UpdateQuiz)
	authoring.Delete("/:quizId", handlers.DeleteQuiz)

	quizzes := api.Group("/quizzes", middleware.Protected())
	quizzes.Get("", handlers.ListQuizzes)
	quizzes.Get("/:quizId", handlers.GetQuiz)
}
