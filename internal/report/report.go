// Package report aggregates saved answers into the feedback view for one
// interview and the answered-question dashboard across interviews.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/prepstage/prepstage/internal/detect"
	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/storage"
)

// dashboardConcurrency bounds the per-interview count queries fanned out by
// Dashboard.
const dashboardConcurrency = 4

// AnswerView is one saved answer prepared for presentation: detected object
// labels decoded from their stored JSON form.
type AnswerView struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	UserAnswer      string   `json:"userAnswer"`
	ReferenceAnswer string   `json:"referenceAnswer"`
	Rating          int      `json:"rating"`
	Feedback        string   `json:"feedback"`
	PersonDetected  bool     `json:"personDetected"`
	DetectedObjects []string `json:"detectedObjects"`
}

// SectionReport groups an interview section's answers and carries its
// proctoring verdict.
type SectionReport struct {
	Type       interview.SectionType `json:"type"`
	Answers    []AnswerView          `json:"answers"`
	Suspicious bool                  `json:"suspicious"`
}

// InterviewReport is the feedback page for one interview.
type InterviewReport struct {
	Interview     interview.Interview `json:"interview"`
	OverallRating string              `json:"overallRating"`
	Sections      []SectionReport     `json:"sections"`
}

// DashboardEntry summarizes answer progress for one interview.
type DashboardEntry struct {
	Interview   interview.Interview `json:"interview"`
	Answered    int                 `json:"answered"`
	Total       int                 `json:"total"`
	AllAnswered bool                `json:"allAnswered"`
}

// Builder assembles reports from the store.
type Builder struct {
	store      *storage.Store
	interviews *interview.Service
}

// NewBuilder creates a report builder.
func NewBuilder(store *storage.Store, interviews *interview.Service) *Builder {
	return &Builder{store: store, interviews: interviews}
}

// OverallRating computes the arithmetic mean of the given ratings to one
// decimal place. An empty set is "0.0".
func OverallRating(ratings []int) string {
	if len(ratings) == 0 {
		return "0.0"
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(ratings)))
}

// Interview builds the feedback report: answers grouped per section by exact
// question-text match, each section flagged suspicious when any of its
// answers recorded no person or a suspicious object.
func (b *Builder) Interview(interviewID, userID string) (InterviewReport, error) {
	iv, err := b.interviews.Get(interviewID, userID)
	if err != nil {
		return InterviewReport{}, err
	}
	answers, err := b.store.ListAnswers(userID, interviewID)
	if err != nil {
		return InterviewReport{}, fmt.Errorf("listing answers: %w", err)
	}

	byQuestion := make(map[string]storage.Answer, len(answers))
	ratings := make([]int, 0, len(answers))
	for _, a := range answers {
		byQuestion[a.Question] = a
		ratings = append(ratings, a.Rating)
	}

	rep := InterviewReport{
		Interview:     iv,
		OverallRating: OverallRating(ratings),
		Sections:      make([]SectionReport, 0, len(iv.Sections)),
	}
	for _, sec := range iv.Sections {
		sr := SectionReport{Type: sec.Type}
		for _, q := range sec.Questions {
			a, ok := byQuestion[q.Text]
			if !ok {
				continue
			}
			view := toView(a)
			if !view.PersonDetected || anySuspicious(view.DetectedObjects) {
				sr.Suspicious = true
			}
			sr.Answers = append(sr.Answers, view)
		}
		rep.Sections = append(rep.Sections, sr)
	}
	return rep, nil
}

// Dashboard lists the user's interviews with their answered-question counts,
// fetched concurrently.
func (b *Builder) Dashboard(ctx context.Context, userID string) ([]DashboardEntry, error) {
	interviews, err := b.interviews.List(userID)
	if err != nil {
		return nil, err
	}

	entries := make([]DashboardEntry, len(interviews))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(dashboardConcurrency)
	for i, iv := range interviews {
		g.Go(func() error {
			answered, err := b.store.CountAnsweredQuestions(userID, iv.ID)
			if err != nil {
				return fmt.Errorf("counting answers for interview %s: %w", iv.ID, err)
			}
			total := iv.QuestionCount()
			entries[i] = DashboardEntry{
				Interview:   iv,
				Answered:    answered,
				Total:       total,
				AllAnswered: total > 0 && answered >= total,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Interview.CreatedAt.After(entries[j].Interview.CreatedAt)
	})
	return entries, nil
}

func toView(a storage.Answer) AnswerView {
	var labels []string
	if a.DetectedObjects != "" {
		if err := json.Unmarshal([]byte(a.DetectedObjects), &labels); err != nil {
			slog.Warn("malformed detected objects on answer", "answer", a.ID, "error", err)
		}
	}
	return AnswerView{
		ID:              a.ID,
		Question:        a.Question,
		UserAnswer:      a.UserAnswer,
		ReferenceAnswer: a.ReferenceAnswer,
		Rating:          a.Rating,
		Feedback:        a.Feedback,
		PersonDetected:  a.PersonDetected,
		DetectedObjects: labels,
	}
}

func anySuspicious(labels []string) bool {
	for _, l := range labels {
		if detect.IsSuspicious(l) {
			return true
		}
	}
	return false
}
