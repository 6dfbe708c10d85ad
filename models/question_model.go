package models

import "github.com/google/uuid"

// Question is the authoritative representation, including the correct
// option index. It must never be serialized to a student-facing response;
// the JSON tag on CorrectAnswer keeps it out of every encoded Quiz.
type Question struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	QuizID        uuid.UUID `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Position      int       `gorm:"not null" json:"position"`
	QuestionText  string    `gorm:"type:text;not null" json:"question_text"`
	Options       []string  `gorm:"serializer:json;type:text;not null" json:"options"`
	CorrectAnswer int       `gorm:"not null" json:"-"`
	Points        int       `gorm:"not null;default:1" json:"points"`
}
