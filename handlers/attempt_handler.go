package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/quiz_engine/database"
	"github.com/studyforge/quiz_engine/models"
	"github.com/studyforge/quiz_engine/services"
)

type SubmitAttemptRequest struct {
	Answers []models.AnswerInput `json:"answers" validate:"dive"`
}

// SubmitAttempt grades a submission against the authoritative quiz and
// persists the result. Grading happens server-side only; nothing the
// client reports about correctness or score is trusted.
func SubmitAttempt(c *fiber.Ctx) error {
	studentID, _ := callerIdentity(c)
	quizID, err := uuid.Parse(c.Params("quizId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid quiz ID"})
	}

	var req SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var quiz models.Quiz
	err = database.DB.
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&quiz, "id = ? AND is_active = ?", quizID, true).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quiz not found"})
	}

	result, err := services.ScoreSubmission(&quiz, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuestionIndex), errors.Is(err, services.ErrDuplicateAnswer):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to grade submission"})
		}
	}

	attempt := &models.Attempt{
		QuizID:      quiz.ID,
		StudentID:   studentID,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Percentage:  result.Percentage,
		CompletedAt: time.Now(),
		Answers:     result.GradedAnswers,
	}

	persisted, err := services.CreateAttempt(database.DB, attempt)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateAttempt) {
			// Expected under racing submissions: hand the loser the attempt
			// that won so the client can move on to review.
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "Attempt already submitted for this quiz",
				"attempt": persisted,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save attempt"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"attempt": persisted})
}

// MyAttempts lists the caller's attempts, newest first.
func MyAttempts(c *fiber.Ctx) error {
	studentID, _ := callerIdentity(c)

	attempts, err := services.ListAttempts(database.DB, studentID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list attempts"})
	}
	return c.JSON(fiber.Map{"attempts": attempts})
}

// GetAttempt returns one attempt with its question-by-question review.
func GetAttempt(c *fiber.Ctx) error {
	callerID, role := callerIdentity(c)
	attemptID, err := uuid.Parse(c.Params("attemptId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid attempt ID"})
	}

	attempt, err := services.GetAttempt(database.DB, attemptID, callerID, role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttemptNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Attempt not found"})
		case errors.Is(err, services.ErrForbidden):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load attempt"})
		}
	}

	review := services.BuildReview(&attempt.Quiz, attempt)
	return c.JSON(fiber.Map{
		"attempt": attempt,
		"quiz": fiber.Map{
			"id":               attempt.Quiz.ID,
			"title":            attempt.Quiz.Title,
			"duration_minutes": attempt.Quiz.DurationMinutes,
			"total_points":     attempt.Quiz.TotalPoints,
		},
		"review": review,
	})
}
