// Package session implements the client-side attempt session: the answer
// collection state and the countdown clock that can force a submission.
// One Session exists per (student, quiz) and performs exactly one
// successful submission over its lifetime.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/studyforge/quiz_engine/models"
	"github.com/studyforge/quiz_engine/services"
)

type State int32

const (
	StateLoading State = iota
	StateInProgress
	StateSubmitting
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateInProgress:
		return "in_progress"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrNotInProgress      = errors.New("session is not collecting answers")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrAlreadySubmitted   = errors.New("attempt has already been submitted")
	ErrInvalidSelection   = errors.New("selection is outside the question's options")
	ErrUnknownQuestion    = errors.New("no question at that index")
	ErrSessionClosed      = errors.New("session is closed")
)

// QuizFetcher loads the redacted quiz the session runs against. The session
// must never see the authoritative quiz.
type QuizFetcher interface {
	FetchQuiz(ctx context.Context, quizID uuid.UUID) (*models.PublicQuiz, error)
}

// AttemptSubmitter sends the answer set to the server for grading. A
// duplicate-attempt response is delivered as the existing attempt plus
// services.ErrDuplicateAttempt; the session treats that as success.
type AttemptSubmitter interface {
	SubmitAttempt(ctx context.Context, quizID uuid.UUID, answers []models.AnswerInput) (*models.Attempt, error)
}

// TransientError marks a failure worth retrying, such as a network blip.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

func isTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

type Session struct {
	quizID    uuid.UUID
	fetcher   QuizFetcher
	submitter AttemptSubmitter
	tick      time.Duration

	state     atomic.Int32
	remaining atomic.Int32

	// submitOwner is the single guard for the manual-vs-auto submission
	// race: whichever trigger claims it first performs the network call,
	// the other becomes a no-op.
	submitOwner atomic.Bool

	mu      sync.Mutex
	quiz    *models.PublicQuiz
	answers map[int]int
	attempt *models.Attempt
	lastErr error

	stopClock chan struct{}
	stopOnce  sync.Once
	closed    atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithTick overrides the 1-second countdown cadence. Intended for tests.
func WithTick(d time.Duration) Option {
	return func(s *Session) { s.tick = d }
}

func New(quizID uuid.UUID, fetcher QuizFetcher, submitter AttemptSubmitter, opts ...Option) *Session {
	s := &Session{
		quizID:    quizID,
		fetcher:   fetcher,
		submitter: submitter,
		tick:      time.Second,
		answers:   make(map[int]int),
		stopClock: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(int32(StateLoading))
	return s
}

// Start fetches the quiz and starts the countdown. On fetch failure the
// session ends up in StateFailed and the error is returned.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if State(s.state.Load()) != StateLoading {
		return fmt.Errorf("start from state %s", s.State())
	}

	quiz, err := s.fetcher.FetchQuiz(ctx, s.quizID)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	s.quiz = quiz
	s.mu.Unlock()

	s.remaining.Store(int32(quiz.DurationMinutes * 60))
	s.state.Store(int32(StateInProgress))

	go s.runClock(ctx)
	return nil
}

// runClock decrements the countdown once per tick and fires the auto
// submission when it reaches zero.
func (s *Session) runClock(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopClock:
			return
		case <-ticker.C:
			if State(s.state.Load()) != StateInProgress {
				return
			}
			if s.remaining.Add(-1) <= 0 {
				s.remaining.Store(0)
				// Auto-submit. Losing the guard race to a manual submit
				// is fine; the attempt is already on its way.
				_ = s.trigger(ctx, true)
				return
			}
		}
	}
}

// SelectAnswer records or replaces the student's choice for a question.
// Purely in-memory; a choice may be changed any number of times before
// submission.
func (s *Session) SelectAnswer(questionIndex, option int) error {
	if State(s.state.Load()) != StateInProgress {
		return ErrNotInProgress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if questionIndex < 0 || questionIndex >= len(s.quiz.Questions) {
		return ErrUnknownQuestion
	}
	if option < 0 || option >= len(s.quiz.Questions[questionIndex].Options) {
		return ErrInvalidSelection
	}
	s.answers[questionIndex] = option
	return nil
}

// Submit is the manual submission trigger. Submitting an incomplete answer
// set is allowed; confirming that with the student is the UI's concern.
func (s *Session) Submit(ctx context.Context) error {
	return s.trigger(ctx, false)
}

// trigger performs the guarded InProgress -> Submitting transition and the
// network call. Exactly one caller can hold the guard at a time; once a
// submission succeeds the guard is never released.
func (s *Session) trigger(ctx context.Context, auto bool) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	switch State(s.state.Load()) {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateInProgress, StateFailed:
	default:
		return ErrNotInProgress
	}

	// A Failed session is only retryable if it failed while submitting.
	// If the quiz fetch failed the session never collected anything, and
	// sending an empty answer set would burn the student's one attempt.
	s.mu.Lock()
	loaded := s.quiz != nil
	s.mu.Unlock()
	if !loaded {
		return ErrNotInProgress
	}

	if !s.submitOwner.CompareAndSwap(false, true) {
		if auto {
			return nil
		}
		return ErrSubmissionInFlight
	}

	s.state.Store(int32(StateSubmitting))
	// The countdown stops for good here. If this submission fails the
	// session can be retried manually, but remaining time is frozen; a
	// clock that resumed after Failed would let a student trade failed
	// submissions for extra answering time.
	s.stopOnce.Do(func() { close(s.stopClock) })

	answers := s.snapshotAnswers()

	attempt, err := s.submitter.SubmitAttempt(ctx, s.quizID, answers)
	if err != nil && auto && isTransient(err) {
		// Losing a timed attempt to a network blip is unacceptable; the
		// auto path retries once before giving up.
		attempt, err = s.submitter.SubmitAttempt(ctx, s.quizID, answers)
	}

	if err != nil && !errors.Is(err, services.ErrDuplicateAttempt) {
		s.fail(err)
		// Release the guard so a manual retry can claim it. The clock
		// stays stopped; time at zero never restarts.
		s.submitOwner.Store(false)
		return err
	}

	s.mu.Lock()
	s.attempt = attempt
	s.lastErr = nil
	s.mu.Unlock()
	s.state.Store(int32(StateSubmitted))
	return nil
}

func (s *Session) snapshotAnswers() []models.AnswerInput {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]models.AnswerInput, 0, len(s.answers))
	for idx, sel := range s.answers {
		answers = append(answers, models.AnswerInput{QuestionIndex: idx, SelectedAnswer: sel})
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].QuestionIndex < answers[j].QuestionIndex
	})
	return answers
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.state.Store(int32(StateFailed))
}

func (s *Session) State() State { return State(s.state.Load()) }

// Remaining reports the countdown in seconds.
func (s *Session) Remaining() int { return int(s.remaining.Load()) }

// Answers returns a copy of the current answer set.
func (s *Session) Answers() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Attempt returns the server-acknowledged attempt once submitted.
func (s *Session) Attempt() *models.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// Err returns the error that put the session into StateFailed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Close abandons the session. Client state is simply discarded; nothing
// was persisted unless the session already reached StateSubmitted.
func (s *Session) Close() {
	s.closed.Store(true)
	s.stopOnce.Do(func() { close(s.stopClock) })
}
