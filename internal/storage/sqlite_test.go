package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testInterview(id string) Interview {
	return Interview{
		ID:              id,
		UserID:          "user-1",
		Position:        "Full Stack Developer",
		Description:     "Build and maintain web services",
		ExperienceYears: 5,
		TechStack:       "Go, React, PostgreSQL",
		Sections:        `[{"type":"Technical","questions":[{"question":"What is a goroutine?","answer":"A lightweight thread."}]}]`,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func testAnswer(id, interviewID, question string) Answer {
	return Answer{
		ID:              id,
		InterviewID:     interviewID,
		UserID:          "user-1",
		Section:         "Technical",
		Question:        question,
		QuestionNorm:    question, // callers normalize; tests use lowercase text directly
		UserAnswer:      "goroutines are lightweight threads managed by the runtime",
		ReferenceAnswer: "A lightweight thread.",
		Rating:          7,
		Feedback:        "Good, mention the scheduler.",
		PersonDetected:  true,
		DetectedObjects: `["person"]`,
		CreatedAt:       time.Now().UTC(),
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestIndexesExist verifies the lookup indexes are created by the migration.
func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_interviews_user", "idx_answers_lookup", "idx_answers_interview"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying sqlite_master for %q: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %q not found in sqlite_master", idx)
		}
	}
}

func TestInterviewRoundTrip(t *testing.T) {
	s := openTestStore(t)

	iv := testInterview("iv-1")
	if err := s.SaveInterview(iv); err != nil {
		t.Fatalf("SaveInterview: %v", err)
	}

	got, err := s.GetInterview("iv-1")
	if err != nil {
		t.Fatalf("GetInterview: %v", err)
	}
	if got.Position != iv.Position || got.TechStack != iv.TechStack || got.ExperienceYears != 5 {
		t.Errorf("interview fields mismatch: %+v", got)
	}
	if got.Sections != iv.Sections {
		t.Errorf("sections JSON mismatch: %q", got.Sections)
	}
}

func TestGetInterviewNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetInterview("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateInterview(t *testing.T) {
	s := openTestStore(t)

	iv := testInterview("iv-1")
	if err := s.SaveInterview(iv); err != nil {
		t.Fatalf("SaveInterview: %v", err)
	}

	iv.Position = "Backend Developer"
	iv.Sections = `[]`
	iv.UpdatedAt = time.Now().UTC().Add(time.Minute)
	if err := s.UpdateInterview(iv); err != nil {
		t.Fatalf("UpdateInterview: %v", err)
	}

	got, err := s.GetInterview("iv-1")
	if err != nil {
		t.Fatalf("GetInterview: %v", err)
	}
	if got.Position != "Backend Developer" || got.Sections != "[]" {
		t.Errorf("update not applied: %+v", got)
	}

	missing := testInterview("missing")
	if err := s.UpdateInterview(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing interview, got %v", err)
	}
}

func TestListInterviewsFiltersByUser(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		iv := testInterview(fmt.Sprintf("iv-%d", i))
		if err := s.SaveInterview(iv); err != nil {
			t.Fatalf("SaveInterview: %v", err)
		}
	}
	other := testInterview("iv-other")
	other.UserID = "user-2"
	if err := s.SaveInterview(other); err != nil {
		t.Fatalf("SaveInterview: %v", err)
	}

	list, err := s.ListInterviews("user-1")
	if err != nil {
		t.Fatalf("ListInterviews: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("expected 3 interviews for user-1, got %d", len(list))
	}
}

func TestAnswerRoundTrip(t *testing.T) {
	s := openTestStore(t)

	a := testAnswer("ans-1", "iv-1", "what is a goroutine?")
	if err := s.SaveAnswer(a); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	got, err := s.FindAnswer("user-1", "iv-1", "what is a goroutine?")
	if err != nil {
		t.Fatalf("FindAnswer: %v", err)
	}
	if got.ID != "ans-1" || got.Rating != 7 || !got.PersonDetected {
		t.Errorf("answer fields mismatch: %+v", got)
	}
	if got.DetectedObjects != `["person"]` {
		t.Errorf("detected objects mismatch: %q", got.DetectedObjects)
	}
}

func TestFindAnswerNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FindAnswer("user-1", "iv-1", "never asked")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAnswer(t *testing.T) {
	s := openTestStore(t)

	a := testAnswer("ans-1", "iv-1", "q1")
	if err := s.SaveAnswer(a); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	if err := s.DeleteAnswer("ans-1"); err != nil {
		t.Fatalf("DeleteAnswer: %v", err)
	}
	if _, err := s.GetAnswer("ans-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("answer still present after delete: %v", err)
	}
	if err := s.DeleteAnswer("ans-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteInterviewCascades(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveInterview(testInterview("iv-1")); err != nil {
		t.Fatalf("SaveInterview: %v", err)
	}
	for i := 0; i < 2; i++ {
		a := testAnswer(fmt.Sprintf("ans-%d", i), "iv-1", fmt.Sprintf("q%d", i))
		if err := s.SaveAnswer(a); err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}
	keep := testAnswer("ans-keep", "iv-2", "q other")
	if err := s.SaveAnswer(keep); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	if err := s.DeleteInterview("iv-1"); err != nil {
		t.Fatalf("DeleteInterview: %v", err)
	}

	if _, err := s.GetInterview("iv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("interview still present after delete")
	}
	answers, err := s.ListAnswers("user-1", "iv-1")
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	if len(answers) != 0 {
		t.Errorf("expected cascade to delete answers, found %d", len(answers))
	}
	if _, err := s.GetAnswer("ans-keep"); err != nil {
		t.Errorf("unrelated answer deleted by cascade: %v", err)
	}

	if err := s.DeleteInterview("iv-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestCountAnsweredQuestions(t *testing.T) {
	s := openTestStore(t)

	if n, err := s.CountAnsweredQuestions("user-1", "iv-1"); err != nil || n != 0 {
		t.Fatalf("expected zero count on empty store, got %d (%v)", n, err)
	}

	for i, q := range []string{"q1", "q2", "q2"} {
		a := testAnswer(fmt.Sprintf("ans-%d", i), "iv-1", q)
		if err := s.SaveAnswer(a); err != nil {
			t.Fatalf("SaveAnswer: %v", err)
		}
	}

	n, err := s.CountAnsweredQuestions("user-1", "iv-1")
	if err != nil {
		t.Fatalf("CountAnsweredQuestions: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 distinct answered questions, got %d", n)
	}
}
