package services

import "github.com/studyforge/quiz_engine/models"

// ReviewRow pairs one quiz question with the student's graded answer for
// read-only review. SelectedAnswer is nil for unanswered questions, which
// count as incorrect with zero points.
type ReviewRow struct {
	QuestionIndex  int      `json:"question_index"`
	QuestionText   string   `json:"question_text"`
	Options        []string `json:"options"`
	CorrectAnswer  int      `json:"correct_answer"`
	SelectedAnswer *int     `json:"selected_answer"`
	Answered       bool     `json:"answered"`
	IsCorrect      bool     `json:"is_correct"`
	PointsAwarded  int      `json:"points_awarded"`
	PointsPossible int      `json:"points_possible"`
}

// BuildReview joins every question of the quiz to its graded answer by
// question index. Review is only shown after the attempt is persisted, so
// exposing the correct answers here is fine.
func BuildReview(quiz *models.Quiz, attempt *models.Attempt) []ReviewRow {
	answerByIndex := make(map[int]models.GradedAnswer, len(attempt.Answers))
	for _, a := range attempt.Answers {
		answerByIndex[a.QuestionIndex] = a
	}

	rows := make([]ReviewRow, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		row := ReviewRow{
			QuestionIndex:  question.Position,
			QuestionText:   question.QuestionText,
			Options:        question.Options,
			CorrectAnswer:  question.CorrectAnswer,
			PointsPossible: question.Points,
		}
		if answer, ok := answerByIndex[question.Position]; ok {
			selected := answer.SelectedAnswer
			row.SelectedAnswer = &selected
			row.Answered = true
			row.IsCorrect = answer.IsCorrect
			row.PointsAwarded = answer.Points
		}
		rows = append(rows, row)
	}
	return rows
}
