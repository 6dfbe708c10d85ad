package services

import "errors"

var (
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrForbidden       = errors.New("forbidden")

	// ErrDuplicateAttempt is an expected outcome of racing submissions,
	// not a hard failure: the caller also receives the attempt that won.
	ErrDuplicateAttempt = errors.New("attempt already exists for this quiz and student")

	ErrInvalidQuestionIndex = errors.New("submission references a question index outside the quiz")
	ErrDuplicateAnswer      = errors.New("submission contains more than one answer for the same question")
	ErrQuizUnscorable       = errors.New("quiz has no scorable points")
)
