package models

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one student's single graded submission for one quiz. The
// composite unique index on (quiz_id, student_id) is what enforces the
// at-most-one-attempt invariant at the storage layer.
type Attempt struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	QuizID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attempts_quiz_student" json:"quiz_id"`
	StudentID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attempts_quiz_student" json:"student_id"`
	Score       int       `gorm:"not null" json:"score"`
	TotalPoints int       `gorm:"not null" json:"total_points"`
	Percentage  float64   `gorm:"not null" json:"percentage"`
	CompletedAt time.Time `gorm:"not null" json:"completed_at"`

	Answers []GradedAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	Quiz    Quiz           `gorm:"foreignkey:QuizID" json:"-"`
	Student User           `gorm:"foreignkey:StudentID" json:"-"`
}

type GradedAnswer struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	AttemptID      uuid.UUID `gorm:"type:uuid;not null;index" json:"attempt_id"`
	QuestionIndex  int       `gorm:"not null" json:"question_index"`
	SelectedAnswer int       `gorm:"not null" json:"selected_answer"`
	IsCorrect      bool      `gorm:"not null" json:"is_correct"`
	Points         int       `gorm:"not null" json:"points"`
}

// AnswerInput is one entry of a client submission. It is transient; the
// server grades it into a GradedAnswer before anything is persisted.
type AnswerInput struct {
	QuestionIndex  int `json:"question_index" validate:"gte=0"`
	SelectedAnswer int `json:"selected_answer" validate:"gte=0"`
}
