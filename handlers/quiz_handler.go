package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/quiz_engine/database"
	"github.com/studyforge/quiz_engine/models"
)

var validate = validator.New()

func callerIdentity(c *fiber.Ctx) (uuid.UUID, string) {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, _ := uuid.Parse(claims["user_id"].(string))
	role, _ := claims["role"].(string)
	return userID, role
}

// questionWithAnswer re-attaches the correct answer for instructor and
// admin responses. The model keeps CorrectAnswer out of JSON entirely, so
// exposing it is always this explicit.
type questionWithAnswer struct {
	models.Question
	CorrectAnswer int `json:"correct_answer"`
}

type authoritativeQuizResponse struct {
	models.Quiz
	Questions []questionWithAnswer `json:"questions"`
}

func authoritativeQuiz(quiz models.Quiz) authoritativeQuizResponse {
	resp := authoritativeQuizResponse{Quiz: quiz}
	resp.Questions = make([]questionWithAnswer, len(quiz.Questions))
	for i, q := range quiz.Questions {
		resp.Questions[i] = questionWithAnswer{Question: q, CorrectAnswer: q.CorrectAnswer}
	}
	return resp
}

type QuestionRequest struct {
	QuestionText  string   `json:"question_text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer int      `json:"correct_answer" validate:"gte=0"`
	Points        int      `json:"points" validate:"gte=0"`
}

type QuizRequest struct {
	Title           string            `json:"title" validate:"required"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	DurationMinutes int               `json:"duration_minutes" validate:"required,gt=0"`
	IsActive        *bool             `json:"is_active"`
	Questions       []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

// buildQuestions turns the request into ordered question rows, assigning
// positions by request order and defaulting points to 1. It enforces the
// correct-answer index invariant that the scoring engine relies on.
func buildQuestions(quizID uuid.UUID, reqs []QuestionRequest) ([]models.Question, int, error) {
	questions := make([]models.Question, len(reqs))
	totalPoints := 0
	for i, q := range reqs {
		if q.CorrectAnswer >= len(q.Options) {
			return nil, 0, fiber.NewError(fiber.StatusBadRequest,
				"correct_answer must be a valid index into options")
		}
		points := q.Points
		if points == 0 {
			points = 1
		}
		totalPoints += points
		questions[i] = models.Question{
			ID:            uuid.New(),
			QuizID:        quizID,
			Position:      i,
			QuestionText:  q.QuestionText,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
		}
	}
	return questions, totalPoints, nil
}

func CreateQuiz(c *fiber.Ctx) error {
	instructorID, _ := callerIdentity(c)

	var req QuizRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	quiz := models.Quiz{
		ID:              uuid.New(),
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
		InstructorID:    instructorID,
		IsActive:        true,
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}

	questions, totalPoints, err := buildQuestions(quiz.ID, req.Questions)
	if err != nil {
		return err
	}
	quiz.Questions = questions
	quiz.TotalPoints = totalPoints

	if err := database.DB.Create(&quiz).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create quiz"})
	}

	return c.Status(fiber.StatusCreated).JSON(authoritativeQuiz(quiz))
}

func UpdateQuiz(c *fiber.Ctx) error {
	instructorID, role := callerIdentity(c)
	quizID := c.Params("quizId")

	var quiz models.Quiz
	if err := database.DB.First(&quiz, "id = ?", quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quiz not found"})
	}
	if role != "admin" && quiz.InstructorID != instructorID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: not the quiz owner"})
	}

	var req QuizRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	questions, totalPoints, err := buildQuestions(quiz.ID, req.Questions)
	if err != nil {
		return err
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		quiz.Title = req.Title
		quiz.Description = req.Description
		quiz.Category = req.Category
		quiz.DurationMinutes = req.DurationMinutes
		quiz.TotalPoints = totalPoints
		if req.IsActive != nil {
			quiz.IsActive = *req.IsActive
		}

		if err := tx.Save(&quiz).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Question{}, "quiz_id = ?", quiz.ID).Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update quiz"})
	}

	quiz.Questions = questions
	return c.JSON(authoritativeQuiz(quiz))
}

func DeleteQuiz(c *fiber.Ctx) error {
	instructorID, role := callerIdentity(c)
	quizID := c.Params("quizId")

	var quiz models.Quiz
	if err := database.DB.First(&quiz, "id = ?", quizID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quiz not found"})
	}
	if role != "admin" && quiz.InstructorID != instructorID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: not the quiz owner"})
	}

	// An attempt must always resolve back to its quiz, so a quiz with
	// recorded attempts cannot be deleted.
	var attempts int64
	if err := database.DB.Model(&models.Attempt{}).Where("quiz_id = ?", quiz.ID).Count(&attempts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete quiz"})
	}
	if attempts > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Quiz has recorded attempts; deactivate it instead of deleting",
		})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Question{}, "quiz_id = ?", quiz.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&quiz).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete quiz"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func InstructorListQuizzes(c *fiber.Ctx) error {
	instructorID, role := callerIdentity(c)

	query := database.DB.Order("created_at DESC")
	if role != "admin" {
		query = query.Where("instructor_id = ?", instructorID)
	}

	var quizzes []models.Quiz
	if err := query.Find(&quizzes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list quizzes"})
	}
	return c.JSON(quizzes)
}

// ListQuizzes returns active quiz summaries for students. Questions are
// deliberately omitted; they are only handed out by GetQuiz.
func ListQuizzes(c *fiber.Ctx) error {
	var quizzes []models.Quiz
	err := database.DB.
		Select("id", "title", "description", "category", "duration_minutes", "total_points", "created_at").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list quizzes"})
	}
	return c.JSON(quizzes)
}

// GetQuiz returns the quiz for taking or review. Students get the public
// representation with correct answers stripped; instructors and admins get
// the authoritative one.
func GetQuiz(c *fiber.Ctx) error {
	_, role := callerIdentity(c)
	quizID := c.Params("quizId")

	var quiz models.Quiz
	err := database.DB.
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		First(&quiz, "id = ?", quizID).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quiz not found"})
	}

	if role == "instructor" || role == "admin" {
		return c.JSON(authoritativeQuiz(quiz))
	}

	if !quiz.IsActive {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Quiz not found"})
	}
	return c.JSON(quiz.Public())
}
