package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/quiz_engine/models"
	"github.com/studyforge/quiz_engine/services"
)

func quizServer(t *testing.T, quiz *models.PublicQuiz, submit http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/quizzes/"+quiz.ID.String(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(quiz)
	})
	mux.HandleFunc("/api/v1/quizzes/"+quiz.ID.String()+"/attempts", submit)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeAttempt(w http.ResponseWriter, status int, attempt *models.Attempt) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"attempt": attempt})
}

func TestAPIClient_SessionRoundTrip(t *testing.T) {
	quiz := publicQuiz()
	attemptID := uuid.New()

	var mu sync.Mutex
	var gotAnswers []models.AnswerInput
	srv := quizServer(t, quiz, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []models.AnswerInput `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		mu.Lock()
		gotAnswers = req.Answers
		mu.Unlock()
		writeAttempt(w, http.StatusCreated, &models.Attempt{
			ID: attemptID, QuizID: quiz.ID, Score: 3, TotalPoints: 3, Percentage: 100,
		})
	})

	client := NewAPIClient(srv.URL, "token")
	s := New(quiz.ID, client, client, WithTick(time.Hour))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	if err := s.SelectAnswer(0, 0); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.SelectAnswer(1, 1); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if s.State() != StateSubmitted {
		t.Fatalf("state = %s, want submitted", s.State())
	}
	if s.Attempt() == nil || s.Attempt().ID != attemptID {
		t.Errorf("session lost the acknowledged attempt")
	}
	mu.Lock()
	if len(gotAnswers) != 2 {
		t.Errorf("server received %d answers, want 2", len(gotAnswers))
	}
	mu.Unlock()
}

func TestAPIClient_DuplicateMapsToErrDuplicateAttempt(t *testing.T) {
	quiz := publicQuiz()
	existingID := uuid.New()
	srv := quizServer(t, quiz, func(w http.ResponseWriter, r *http.Request) {
		writeAttempt(w, http.StatusConflict, &models.Attempt{ID: existingID, QuizID: quiz.ID})
	})

	client := NewAPIClient(srv.URL, "token")
	attempt, err := client.SubmitAttempt(context.Background(), quiz.ID, nil)
	if !errors.Is(err, services.ErrDuplicateAttempt) {
		t.Fatalf("err = %v, want ErrDuplicateAttempt", err)
	}
	if attempt == nil || attempt.ID != existingID {
		t.Errorf("duplicate response lost the winning attempt")
	}
}

func TestAPIClient_ServerErrorsAreTransient(t *testing.T) {
	quiz := publicQuiz()
	var calls atomic.Int32
	srv := quizServer(t, quiz, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		writeAttempt(w, http.StatusCreated, &models.Attempt{ID: uuid.New(), QuizID: quiz.ID})
	})

	client := NewAPIClient(srv.URL, "token")

	_, err := client.SubmitAttempt(context.Background(), quiz.ID, nil)
	if !isTransient(err) {
		t.Fatalf("5xx not classified transient: %v", err)
	}

	// The session's auto-submit path retries a transient failure once, so
	// a single 503 must not lose a timed attempt.
	s := New(quiz.ID, client, client, WithTick(200*time.Microsecond))
	calls.Store(0)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Close()

	waitForState(t, s, StateSubmitted)
	if calls.Load() != 2 {
		t.Errorf("server saw %d submissions, want retry = 2", calls.Load())
	}
}

func TestAPIClient_QuizNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Quiz not found"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewAPIClient(srv.URL, "token")
	_, err := client.FetchQuiz(context.Background(), uuid.New())
	if !errors.Is(err, services.ErrQuizNotFound) {
		t.Fatalf("err = %v, want ErrQuizNotFound", err)
	}
}
