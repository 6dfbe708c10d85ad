package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studyforge/quiz_engine/models"
)

// The attempt ledger persists at most one attempt per (quiz, student) pair.
// Uniqueness is enforced by the composite unique index on the attempts
// table, so a duplicate submission fails inside a single INSERT instead of
// a racy check-then-insert.

// FindAttempt returns the attempt for the pair, or nil when none exists.
func FindAttempt(db *gorm.DB, quizID, studentID uuid.UUID) (*models.Attempt, error) {
	var attempt models.Attempt
	err := db.Preload("Answers", answerOrder).
		First(&attempt, "quiz_id = ? AND student_id = ?", quizID, studentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

// CreateAttempt persists a graded attempt. When an attempt for the same
// (quiz, student) pair already exists, it returns that attempt together
// with ErrDuplicateAttempt so the caller can hand the winner back to the
// client instead of erroring.
func CreateAttempt(db *gorm.DB, attempt *models.Attempt) (*models.Attempt, error) {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	for i := range attempt.Answers {
		if attempt.Answers[i].ID == uuid.Nil {
			attempt.Answers[i].ID = uuid.New()
		}
	}

	// The connection runs with SkipDefaultTransaction, so the attempt row
	// and its answer rows need an explicit transaction. A partial insert
	// would leave an answerless attempt that the unique index then makes
	// permanent.
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(attempt).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := FindAttempt(db, attempt.QuizID, attempt.StudentID)
			if ferr != nil {
				return nil, ferr
			}
			if existing == nil {
				// Lost the insert race and then the winner vanished; the
				// attempt table is append-only in this design, so treat it
				// as a storage fault.
				return nil, err
			}
			return existing, ErrDuplicateAttempt
		}
		return nil, err
	}
	return attempt, nil
}

// ListAttempts returns a student's attempts, newest first.
func ListAttempts(db *gorm.DB, studentID uuid.UUID) ([]models.Attempt, error) {
	var attempts []models.Attempt
	err := db.Where("student_id = ?", studentID).
		Order("completed_at DESC").
		Find(&attempts).Error
	return attempts, err
}

// GetAttempt loads one attempt with its answers and quiz, enforcing the
// read rule: a student sees only their own attempts, an instructor only
// attempts under quizzes they own, an admin any attempt.
func GetAttempt(db *gorm.DB, attemptID, callerID uuid.UUID, role string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := db.Preload("Answers", answerOrder).
		Preload("Quiz.Questions", questionOrder).
		First(&attempt, "id = ?", attemptID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}

	switch role {
	case "admin":
	case "instructor":
		if attempt.Quiz.InstructorID != callerID {
			return nil, ErrForbidden
		}
	default:
		if attempt.StudentID != callerID {
			return nil, ErrForbidden
		}
	}
	return &attempt, nil
}

func answerOrder(db *gorm.DB) *gorm.DB {
	return db.Order("question_index ASC")
}

func questionOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
