package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prepstage/prepstage/internal/prompt"
)

const defaultQuestionsPerSection = 5

// PromptSender sends one prompt to the generative API.
type PromptSender interface {
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// Generator produces interview questions per section via the generative API.
// Generation happens once per interview create/edit; a failed section fails
// the whole operation (no partially generated interviews are saved).
type Generator struct {
	ai         PromptSender
	perSection int
}

// NewGenerator creates a Generator. If perSection <= 0, five questions are
// generated per section.
func NewGenerator(ai PromptSender, perSection int) *Generator {
	if perSection <= 0 {
		perSection = defaultQuestionsPerSection
	}
	return &Generator{ai: ai, perSection: perSection}
}

// JobDetails is the form input questions are generated from.
type JobDetails struct {
	Position        string
	Description     string
	ExperienceYears int
	TechStack       string
}

// Generate builds one section of questions per requested type.
func (g *Generator) Generate(ctx context.Context, job JobDetails, types []SectionType) ([]Section, error) {
	sections := make([]Section, 0, len(types))
	for _, t := range types {
		p := prompt.Questions(g.perSection, string(t), job.Position, job.Description, job.ExperienceYears, job.TechStack)
		raw, err := g.ai.SendPrompt(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("generating %s questions: %w", t, err)
		}
		questions, err := parseQuestionArray(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s questions: %w", t, err)
		}
		sections = append(sections, Section{Type: t, Questions: questions})
	}
	return sections, nil
}

// parseQuestionArray extracts the JSON array of question/answer objects from
// a raw model response. The prompt demands a bare array, but responses still
// arrive fenced or prefixed with a label, so: drop fence markers and any
// leading "json" tag, then take the outermost bracket pair.
func parseQuestionArray(text string) ([]Question, error) {
	clean := strings.ReplaceAll(text, "```", "")
	clean = strings.TrimSpace(clean)
	clean = strings.TrimPrefix(clean, "json")

	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start == -1 || end == -1 || start > end {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	clean = clean[start : end+1]

	var questions []Question
	if err := json.Unmarshal([]byte(clean), &questions); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("response contained an empty question array")
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" || strings.TrimSpace(q.ReferenceAnswer) == "" {
			return nil, fmt.Errorf("question %d is missing text or answer", i)
		}
	}
	return questions, nil
}
