package services

import (
	"sort"

	"github.com/studyforge/quiz_engine/models"
)

// ScoreResult is the outcome of grading one submission against the
// authoritative quiz.
type ScoreResult struct {
	GradedAnswers []models.GradedAnswer
	Score         int
	TotalPoints   int
	Percentage    float64
}

// ScoreSubmission grades a submission against the authoritative quiz. It is
// deterministic and has no side effects; it must only ever run server-side,
// on the unredacted quiz.
//
// The whole submission is rejected if any entry is malformed: an index
// outside the question range or two entries for the same question. Partial
// scoring of a bad payload would let a client inflate its score.
//
// TotalPoints comes from the quiz's denormalized total, not from the
// answered subset, so a partially answered quiz is scored against the full
// point pool.
func ScoreSubmission(quiz *models.Quiz, answers []models.AnswerInput) (*ScoreResult, error) {
	if quiz.TotalPoints <= 0 {
		return nil, ErrQuizUnscorable
	}

	questionByIndex := make(map[int]models.Question, len(quiz.Questions))
	for _, q := range quiz.Questions {
		questionByIndex[q.Position] = q
	}

	seen := make(map[int]bool, len(answers))
	graded := make([]models.GradedAnswer, 0, len(answers))
	score := 0

	for _, answer := range answers {
		question, ok := questionByIndex[answer.QuestionIndex]
		if !ok {
			return nil, ErrInvalidQuestionIndex
		}
		if seen[answer.QuestionIndex] {
			return nil, ErrDuplicateAnswer
		}
		seen[answer.QuestionIndex] = true

		isCorrect := answer.SelectedAnswer == question.CorrectAnswer
		points := 0
		if isCorrect {
			points = question.Points
		}
		score += points

		graded = append(graded, models.GradedAnswer{
			QuestionIndex:  answer.QuestionIndex,
			SelectedAnswer: answer.SelectedAnswer,
			IsCorrect:      isCorrect,
			Points:         points,
		})
	}

	// Canonical order regardless of how the client ordered its entries.
	sort.Slice(graded, func(i, j int) bool {
		return graded[i].QuestionIndex < graded[j].QuestionIndex
	})

	return &ScoreResult{
		GradedAnswers: graded,
		Score:         score,
		TotalPoints:   quiz.TotalPoints,
		Percentage:    100 * float64(score) / float64(quiz.TotalPoints),
	}, nil
}
