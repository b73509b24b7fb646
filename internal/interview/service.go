package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/prepstage/prepstage/internal/storage"
)

// ErrNotOwner is returned when a user addresses another user's interview.
var ErrNotOwner = errors.New("interview belongs to another user")

// Service implements the interview lifecycle against the store.
type Service struct {
	store *storage.Store
	gen   *Generator
	now   func() time.Time
}

// NewService creates a Service.
func NewService(store *storage.Store, gen *Generator) *Service {
	return &Service{store: store, gen: gen, now: time.Now}
}

// Create generates questions for every requested section and persists a new
// interview. If types is empty, all section types are generated.
func (s *Service) Create(ctx context.Context, userID string, job JobDetails, types []SectionType) (Interview, error) {
	if len(types) == 0 {
		types = AllSectionTypes()
	}
	sections, err := s.gen.Generate(ctx, job, types)
	if err != nil {
		return Interview{}, err
	}

	now := s.now().UTC()
	iv := Interview{
		ID:              uuid.New().String(),
		UserID:          userID,
		Position:        job.Position,
		Description:     job.Description,
		ExperienceYears: job.ExperienceYears,
		TechStack:       job.TechStack,
		Sections:        sections,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	rec, err := toRecord(iv)
	if err != nil {
		return Interview{}, err
	}
	if err := s.store.SaveInterview(rec); err != nil {
		return Interview{}, fmt.Errorf("saving interview: %w", err)
	}
	return iv, nil
}

// Update replaces an interview's job fields and regenerates its questions.
// Existing answers are left alone; they keep matching by question text where
// the regenerated questions happen to coincide.
func (s *Service) Update(ctx context.Context, id, userID string, job JobDetails) (Interview, error) {
	existing, err := s.Get(id, userID)
	if err != nil {
		return Interview{}, err
	}

	types := make([]SectionType, len(existing.Sections))
	for i, sec := range existing.Sections {
		types[i] = sec.Type
	}
	if len(types) == 0 {
		types = AllSectionTypes()
	}

	sections, err := s.gen.Generate(ctx, job, types)
	if err != nil {
		return Interview{}, err
	}

	existing.Position = job.Position
	existing.Description = job.Description
	existing.ExperienceYears = job.ExperienceYears
	existing.TechStack = job.TechStack
	existing.Sections = sections
	existing.UpdatedAt = s.now().UTC()

	rec, err := toRecord(existing)
	if err != nil {
		return Interview{}, err
	}
	if err := s.store.UpdateInterview(rec); err != nil {
		return Interview{}, fmt.Errorf("updating interview: %w", err)
	}
	return existing, nil
}

// Get loads one interview, enforcing ownership.
func (s *Service) Get(id, userID string) (Interview, error) {
	rec, err := s.store.GetInterview(id)
	if err != nil {
		return Interview{}, err
	}
	if rec.UserID != userID {
		return Interview{}, ErrNotOwner
	}
	return fromRecord(rec)
}

// List returns the user's interviews, newest first.
func (s *Service) List(userID string) ([]Interview, error) {
	recs, err := s.store.ListInterviews(userID)
	if err != nil {
		return nil, err
	}
	out := make([]Interview, 0, len(recs))
	for _, rec := range recs {
		iv, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

// Delete removes an interview and cascades to its answers.
func (s *Service) Delete(id, userID string) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	return s.store.DeleteInterview(id)
}
