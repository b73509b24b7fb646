package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interview is a stored mock interview. Sections is the JSON-encoded
// section/question structure; the interview package owns its shape.
type Interview struct {
	ID              string
	UserID          string
	Position        string
	Description     string
	ExperienceYears int
	TechStack       string
	Sections        string // JSON array stored as text
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Answer is a saved answer for one interview question. QuestionNorm is the
// trimmed, lowercased question text used for already-answered lookups;
// Question keeps the exact text for display and section grouping.
type Answer struct {
	ID              string
	InterviewID     string
	UserID          string
	Section         string
	Question        string
	QuestionNorm    string
	UserAnswer      string
	ReferenceAnswer string
	Rating          int
	Feedback        string
	PersonDetected  bool
	DetectedObjects string // JSON array stored as text
	CreatedAt       time.Time
}
