package interview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prepstage/prepstage/internal/storage"
)

func newTestService(t *testing.T, sender PromptSender) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewService(store, NewGenerator(sender, 2)), store
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t, &fakeSender{fallback: questionArray})

	job := JobDetails{Position: "Dev", Description: "Go work", ExperienceYears: 2, TechStack: "Go"}
	created, err := svc.Create(context.Background(), "user-1", job, []SectionType{SectionTechnical})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("missing id")
	}
	if created.QuestionCount() != 2 {
		t.Errorf("question count = %d", created.QuestionCount())
	}

	got, err := svc.Get(created.ID, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Position != "Dev" || len(got.Sections) != 1 || got.Sections[0].Type != SectionTechnical {
		t.Errorf("got %+v", got)
	}
}

func TestCreateDefaultsToAllSections(t *testing.T) {
	svc, _ := newTestService(t, &fakeSender{fallback: questionArray})

	created, err := svc.Create(context.Background(), "user-1", JobDetails{Position: "Dev"}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created.Sections) != len(AllSectionTypes()) {
		t.Errorf("sections = %d, want %d", len(created.Sections), len(AllSectionTypes()))
	}
}

func TestCreateGenerationFailureSavesNothing(t *testing.T) {
	sender := &fakeSender{err: errors.New("api down")}
	svc, _ := newTestService(t, sender)

	if _, err := svc.Create(context.Background(), "user-1", JobDetails{Position: "Dev"}, nil); err == nil {
		t.Fatal("expected error")
	}
	list, err := svc.List("user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("interview saved despite generation failure")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _ := newTestService(t, &fakeSender{fallback: questionArray})

	created, err := svc.Create(context.Background(), "user-1", JobDetails{Position: "Dev"}, []SectionType{SectionHR})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(created.ID, "user-2"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestUpdateRegeneratesQuestions(t *testing.T) {
	sender := &fakeSender{fallback: questionArray}
	svc, _ := newTestService(t, sender)

	created, err := svc.Create(context.Background(), "user-1", JobDetails{Position: "Dev"}, []SectionType{SectionTechnical})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sender.fallback = `[{"question": "New question?", "answer": "New answer."}]`
	updated, err := svc.Update(context.Background(), created.ID, "user-1", JobDetails{Position: "Senior Dev", TechStack: "Go, K8s"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("id changed on update")
	}
	if updated.Position != "Senior Dev" {
		t.Errorf("position = %q", updated.Position)
	}
	if updated.Sections[0].Questions[0].Text != "New question?" {
		t.Errorf("questions not regenerated: %+v", updated.Sections[0].Questions)
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Errorf("updatedAt moved backwards: %v < %v", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, store := newTestService(t, &fakeSender{fallback: questionArray})

	created, err := svc.Create(context.Background(), "user-1", JobDetails{Position: "Dev"}, []SectionType{SectionTechnical})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ans := storage.Answer{
		ID: "ans-1", InterviewID: created.ID, UserID: "user-1",
		Section: "Technical", Question: "What is a goroutine?",
		QuestionNorm: "what is a goroutine?", UserAnswer: "a thread",
		DetectedObjects: "[]", CreatedAt: time.Now().UTC(),
	}
	if err := store.SaveAnswer(ans); err != nil {
		t.Fatalf("SaveAnswer: %v", err)
	}

	if err := svc.Delete(created.ID, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.GetAnswer("ans-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("answer survived cascade: %v", err)
	}
}

func TestFindQuestionNormalizes(t *testing.T) {
	iv := Interview{Sections: []Section{{
		Type:      SectionTechnical,
		Questions: []Question{{Text: "What is a Goroutine?", ReferenceAnswer: "A thread."}},
	}}}

	sec, q, ok := iv.FindQuestion("  what is a goroutine?  ")
	if !ok {
		t.Fatal("question not found")
	}
	if sec.Type != SectionTechnical || q.ReferenceAnswer != "A thread." {
		t.Errorf("got %+v / %+v", sec, q)
	}

	if _, _, ok := iv.FindQuestion("unknown"); ok {
		t.Error("found nonexistent question")
	}
}

func TestParseSectionType(t *testing.T) {
	if _, err := ParseSectionType("Technical"); err != nil {
		t.Errorf("Technical should parse: %v", err)
	}
	if _, err := ParseSectionType("technical"); err == nil {
		t.Error("lowercase label should not parse")
	}
}
