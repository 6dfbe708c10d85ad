package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studyforge/quiz_engine/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	// SkipDefaultTransaction mirrors the production connection so these
	// tests exercise the explicit transaction inside CreateAttempt.
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.User{},
		&models.Quiz{},
		&models.Question{},
		&models.Attempt{},
		&models.GradedAnswer{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedQuiz(t *testing.T, db *gorm.DB, instructorID uuid.UUID) *models.Quiz {
	t.Helper()

	quiz := &models.Quiz{
		ID:              uuid.New(),
		Title:           "Go basics",
		DurationMinutes: 10,
		TotalPoints:     3,
		InstructorID:    instructorID,
		IsActive:        true,
	}
	quiz.Questions = []models.Question{
		{ID: uuid.New(), QuizID: quiz.ID, Position: 0, QuestionText: "q0", Options: []string{"a", "b"}, CorrectAnswer: 0, Points: 1},
		{ID: uuid.New(), QuizID: quiz.ID, Position: 1, QuestionText: "q1", Options: []string{"a", "b"}, CorrectAnswer: 1, Points: 2},
	}
	if err := db.Create(quiz).Error; err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return quiz
}

func gradedAttempt(quizID, studentID uuid.UUID, completedAt time.Time) *models.Attempt {
	return &models.Attempt{
		QuizID:      quizID,
		StudentID:   studentID,
		Score:       3,
		TotalPoints: 3,
		Percentage:  100,
		CompletedAt: completedAt,
		Answers: []models.GradedAnswer{
			{QuestionIndex: 0, SelectedAnswer: 0, IsCorrect: true, Points: 1},
			{QuestionIndex: 1, SelectedAnswer: 1, IsCorrect: true, Points: 2},
		},
	}
}

func TestCreateAttempt_EnforcesUniqueness(t *testing.T) {
	db := testDB(t)
	studentID := uuid.New()
	quiz := seedQuiz(t, db, uuid.New())

	first, err := CreateAttempt(db, gradedAttempt(quiz.ID, studentID, time.Now()))
	if err != nil {
		t.Fatalf("first CreateAttempt: %v", err)
	}

	second, err := CreateAttempt(db, gradedAttempt(quiz.ID, studentID, time.Now()))
	if !errors.Is(err, ErrDuplicateAttempt) {
		t.Fatalf("second CreateAttempt err = %v, want ErrDuplicateAttempt", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("loser did not receive the winning attempt")
	}

	var count int64
	db.Model(&models.Attempt{}).Where("quiz_id = ? AND student_id = ?", quiz.ID, studentID).Count(&count)
	if count != 1 {
		t.Errorf("persisted %d attempts, want exactly 1", count)
	}
}

// A failure while persisting the answer rows must roll back the attempt
// row too. An answerless attempt would otherwise occupy the unique slot
// for good, with nothing to review and no way to resubmit.
func TestCreateAttempt_AnswerFailureRollsBackAttempt(t *testing.T) {
	db := testDB(t)
	studentID := uuid.New()
	quiz := seedQuiz(t, db, uuid.New())

	broken := gradedAttempt(quiz.ID, studentID, time.Now())
	clash := uuid.New()
	broken.Answers[0].ID = clash
	broken.Answers[1].ID = clash

	if _, err := CreateAttempt(db, broken); err == nil {
		t.Fatal("CreateAttempt succeeded with colliding answer rows")
	}

	var count int64
	db.Model(&models.Attempt{}).Where("quiz_id = ? AND student_id = ?", quiz.ID, studentID).Count(&count)
	if count != 0 {
		t.Fatalf("failed insert left %d attempt rows behind", count)
	}

	// The slot is still free, so a clean resubmission goes through.
	if _, err := CreateAttempt(db, gradedAttempt(quiz.ID, studentID, time.Now())); err != nil {
		t.Fatalf("resubmit after rollback: %v", err)
	}
}

func TestCreateAttempt_DifferentStudentsDoNotCollide(t *testing.T) {
	db := testDB(t)
	quiz := seedQuiz(t, db, uuid.New())

	if _, err := CreateAttempt(db, gradedAttempt(quiz.ID, uuid.New(), time.Now())); err != nil {
		t.Fatalf("student A: %v", err)
	}
	if _, err := CreateAttempt(db, gradedAttempt(quiz.ID, uuid.New(), time.Now())); err != nil {
		t.Fatalf("student B: %v", err)
	}
}

func TestFindAttempt_NoneIsNil(t *testing.T) {
	db := testDB(t)

	attempt, err := FindAttempt(db, uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("FindAttempt: %v", err)
	}
	if attempt != nil {
		t.Errorf("expected nil for a missing attempt, got %+v", attempt)
	}
}

func TestListAttempts_NewestFirst(t *testing.T) {
	db := testDB(t)
	studentID := uuid.New()
	instructorID := uuid.New()

	older := seedQuiz(t, db, instructorID)
	newer := seedQuiz(t, db, instructorID)

	base := time.Now().Add(-time.Hour)
	if _, err := CreateAttempt(db, gradedAttempt(older.ID, studentID, base)); err != nil {
		t.Fatalf("older attempt: %v", err)
	}
	if _, err := CreateAttempt(db, gradedAttempt(newer.ID, studentID, base.Add(30*time.Minute))); err != nil {
		t.Fatalf("newer attempt: %v", err)
	}

	attempts, err := ListAttempts(db, studentID)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("got %d attempts, want 2", len(attempts))
	}
	if !attempts[0].CompletedAt.After(attempts[1].CompletedAt) {
		t.Errorf("attempts not ordered newest first")
	}
}

func TestGetAttempt_Authorization(t *testing.T) {
	db := testDB(t)
	studentID := uuid.New()
	ownerID := uuid.New()
	quiz := seedQuiz(t, db, ownerID)

	created, err := CreateAttempt(db, gradedAttempt(quiz.ID, studentID, time.Now()))
	if err != nil {
		t.Fatalf("CreateAttempt: %v", err)
	}

	tests := []struct {
		name     string
		callerID uuid.UUID
		role     string
		wantErr  error
	}{
		{"owning student", studentID, "student", nil},
		{"other student", uuid.New(), "student", ErrForbidden},
		{"owning instructor", ownerID, "instructor", nil},
		{"other instructor", uuid.New(), "instructor", ErrForbidden},
		{"admin", uuid.New(), "admin", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attempt, err := GetAttempt(db, created.ID, tc.callerID, tc.role)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAttempt: %v", err)
			}
			if attempt.ID != created.ID {
				t.Errorf("loaded wrong attempt")
			}
			if len(attempt.Answers) != 2 {
				t.Errorf("answers not preloaded, got %d", len(attempt.Answers))
			}
			if len(attempt.Quiz.Questions) != 2 {
				t.Errorf("quiz questions not preloaded, got %d", len(attempt.Quiz.Questions))
			}
		})
	}
}

func TestGetAttempt_Missing(t *testing.T) {
	db := testDB(t)

	_, err := GetAttempt(db, uuid.New(), uuid.New(), "admin")
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}
