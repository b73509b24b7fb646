// Package interview owns the mock-interview domain model: interviews with
// typed sections of generated questions, and the service that creates,
// regenerates, and deletes them.
package interview

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prepstage/prepstage/internal/storage"
)

// SectionType is the closed set of interview rounds.
type SectionType string

const (
	SectionTechnical  SectionType = "Technical"
	SectionHR         SectionType = "HR"
	SectionBehavioral SectionType = "Behavioral"
	SectionSoftSkills SectionType = "SoftSkills"
)

// AllSectionTypes returns every section type in presentation order.
func AllSectionTypes() []SectionType {
	return []SectionType{SectionTechnical, SectionHR, SectionBehavioral, SectionSoftSkills}
}

// ParseSectionType validates a section label.
func ParseSectionType(s string) (SectionType, error) {
	for _, t := range AllSectionTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown section type %q", s)
}

// Question is one generated interview question with its reference answer.
// The JSON tags match the model's output contract and the stored shape.
type Question struct {
	Text            string `json:"question"`
	ReferenceAnswer string `json:"answer"`
}

// Section is an ordered block of questions for one round. Embedded in the
// interview, never independently addressable.
type Section struct {
	Type      SectionType `json:"type"`
	Questions []Question  `json:"questions"`
}

// Interview is the domain view of a stored interview.
type Interview struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Position        string    `json:"position"`
	Description     string    `json:"description"`
	ExperienceYears int       `json:"experienceYears"`
	TechStack       string    `json:"techStack"`
	Sections        []Section `json:"sections"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// QuestionCount returns the total number of questions across all sections.
func (iv Interview) QuestionCount() int {
	n := 0
	for _, s := range iv.Sections {
		n += len(s.Questions)
	}
	return n
}

// FindQuestion locates a question and its section by normalized text match.
func (iv Interview) FindQuestion(text string) (Section, Question, bool) {
	norm := NormalizeQuestion(text)
	for _, s := range iv.Sections {
		for _, q := range s.Questions {
			if NormalizeQuestion(q.Text) == norm {
				return s, q, true
			}
		}
	}
	return Section{}, Question{}, false
}

// NormalizeQuestion produces the case/whitespace-insensitive key under which
// a question is matched against saved answers.
func NormalizeQuestion(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// fromRecord decodes a storage row into the domain type.
func fromRecord(rec storage.Interview) (Interview, error) {
	var sections []Section
	if err := json.Unmarshal([]byte(rec.Sections), &sections); err != nil {
		return Interview{}, fmt.Errorf("decoding sections for interview %s: %w", rec.ID, err)
	}
	return Interview{
		ID:              rec.ID,
		UserID:          rec.UserID,
		Position:        rec.Position,
		Description:     rec.Description,
		ExperienceYears: rec.ExperienceYears,
		TechStack:       rec.TechStack,
		Sections:        sections,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}, nil
}

// toRecord encodes the domain type for storage.
func toRecord(iv Interview) (storage.Interview, error) {
	sections, err := json.Marshal(iv.Sections)
	if err != nil {
		return storage.Interview{}, fmt.Errorf("encoding sections: %w", err)
	}
	return storage.Interview{
		ID:              iv.ID,
		UserID:          iv.UserID,
		Position:        iv.Position,
		Description:     iv.Description,
		ExperienceYears: iv.ExperienceYears,
		TechStack:       iv.TechStack,
		Sections:        string(sections),
		CreatedAt:       iv.CreatedAt,
		UpdatedAt:       iv.UpdatedAt,
	}, nil
}
