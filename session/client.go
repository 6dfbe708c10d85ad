package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/studyforge/quiz_engine/models"
	"github.com/studyforge/quiz_engine/services"
)

// APIClient talks to the quiz engine's HTTP API and satisfies both
// QuizFetcher and AttemptSubmitter, so a Session can run directly against
// a server. Network and 5xx failures are classified as TransientError so
// the session's auto-submit retry applies to them.
type APIClient struct {
	http *resty.Client
}

func NewAPIClient(baseURL, authToken string) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(authToken).
		SetTimeout(10 * time.Second)
	return &APIClient{http: client}
}

func (c *APIClient) FetchQuiz(ctx context.Context, quizID uuid.UUID) (*models.PublicQuiz, error) {
	var quiz models.PublicQuiz
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&quiz).
		Get("/api/v1/quizzes/" + quizID.String())
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		return &quiz, nil
	case resp.StatusCode() == http.StatusNotFound:
		return nil, services.ErrQuizNotFound
	case resp.StatusCode() >= 500:
		return nil, &TransientError{Err: fmt.Errorf("fetch quiz: server returned %d", resp.StatusCode())}
	default:
		return nil, fmt.Errorf("fetch quiz: server returned %d", resp.StatusCode())
	}
}

type attemptResponse struct {
	Attempt *models.Attempt `json:"attempt"`
	Error   string          `json:"error"`
}

func (c *APIClient) SubmitAttempt(ctx context.Context, quizID uuid.UUID, answers []models.AnswerInput) (*models.Attempt, error) {
	var body attemptResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"answers": answers}).
		SetResult(&body).
		SetError(&body).
		Post("/api/v1/quizzes/" + quizID.String() + "/attempts")
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusCreated:
		return body.Attempt, nil
	case resp.StatusCode() == http.StatusConflict:
		// The server hands back the attempt that won; the session treats
		// this as a completed submission.
		return body.Attempt, services.ErrDuplicateAttempt
	case resp.StatusCode() == http.StatusNotFound:
		return nil, services.ErrQuizNotFound
	case resp.StatusCode() >= 500:
		return nil, &TransientError{Err: fmt.Errorf("submit attempt: server returned %d", resp.StatusCode())}
	default:
		if body.Error != "" {
			return nil, errors.New(body.Error)
		}
		return nil, fmt.Errorf("submit attempt: server returned %d", resp.StatusCode())
	}
}
