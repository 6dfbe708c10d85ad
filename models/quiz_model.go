package models

import (
	"time"

	"github.com/google/uuid"
)

type Quiz struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Category        string    `gorm:"size:100" json:"category"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	TotalPoints     int       `gorm:"not null" json:"total_points"`
	InstructorID    uuid.UUID `gorm:"type:uuid;not null" json:"instructor_id"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`

	Questions  []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	Instructor User       `gorm:"foreignkey:InstructorID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PublicQuiz is the student-facing representation. PublicQuestion has no
// correct-answer field at all, so redaction cannot be forgotten downstream.
type PublicQuiz struct {
	ID              uuid.UUID        `json:"id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Category        string           `json:"category"`
	DurationMinutes int              `json:"duration_minutes"`
	TotalPoints     int              `json:"total_points"`
	Questions       []PublicQuestion `json:"questions"`
}

type PublicQuestion struct {
	Position     int      `json:"position"`
	QuestionText string   `json:"question_text"`
	Options      []string `json:"options"`
	Points       int      `json:"points"`
}

// Public builds the redacted view handed to students and the attempt
// session. Questions are assumed already ordered by position.
func (q *Quiz) Public() PublicQuiz {
	pub := PublicQuiz{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		Category:        q.Category,
		DurationMinutes: q.DurationMinutes,
		TotalPoints:     q.TotalPoints,
		Questions:       make([]PublicQuestion, len(q.Questions)),
	}
	for i, question := range q.Questions {
		pub.Questions[i] = PublicQuestion{
			Position:     question.Position,
			QuestionText: question.QuestionText,
			Options:      question.Options,
			Points:       question.Points,
		}
	}
	return pub
}
