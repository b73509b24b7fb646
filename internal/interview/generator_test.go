package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSender struct {
	responses map[string]string // matched by substring of the prompt
	fallback  string
	err       error
	prompts   []string
}

func (f *fakeSender) SendPrompt(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	for key, resp := range f.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return f.fallback, nil
}

const questionArray = `[{"question": "What is a goroutine?", "answer": "A lightweight thread."}, {"question": "Explain channels.", "answer": "Typed conduits."}]`

func TestParseQuestionArrayPlain(t *testing.T) {
	qs, err := parseQuestionArray(questionArray)
	if err != nil {
		t.Fatalf("parseQuestionArray: %v", err)
	}
	if len(qs) != 2 || qs[0].Text != "What is a goroutine?" || qs[1].ReferenceAnswer != "Typed conduits." {
		t.Errorf("qs = %+v", qs)
	}
}

func TestParseQuestionArrayFencedAndLabeled(t *testing.T) {
	raw := "```json\n" + questionArray + "\n```"
	qs, err := parseQuestionArray(raw)
	if err != nil {
		t.Fatalf("parseQuestionArray: %v", err)
	}
	if len(qs) != 2 {
		t.Errorf("qs = %+v", qs)
	}
}

func TestParseQuestionArraySurroundingProse(t *testing.T) {
	raw := "Here are your questions:\n" + questionArray + "\nGood luck!"
	qs, err := parseQuestionArray(raw)
	if err != nil {
		t.Fatalf("parseQuestionArray: %v", err)
	}
	if len(qs) != 2 {
		t.Errorf("qs = %+v", qs)
	}
}

func TestParseQuestionArrayErrors(t *testing.T) {
	cases := map[string]string{
		"no array":       "I'm unable to generate questions.",
		"empty array":    "[]",
		"missing answer": `[{"question": "Q1", "answer": ""}]`,
		"broken json":    `[{"question": "Q1"`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseQuestionArray(raw); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenerateOneSectionPerType(t *testing.T) {
	sender := &fakeSender{fallback: questionArray}
	g := NewGenerator(sender, 2)

	job := JobDetails{Position: "Backend Developer", Description: "Go services", ExperienceYears: 3, TechStack: "Go"}
	sections, err := g.Generate(context.Background(), job, []SectionType{SectionTechnical, SectionHR})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].Type != SectionTechnical || sections[1].Type != SectionHR {
		t.Errorf("section types = %v, %v", sections[0].Type, sections[1].Type)
	}
	if len(sender.prompts) != 2 {
		t.Errorf("prompts sent = %d, want one per section", len(sender.prompts))
	}
	if !strings.Contains(sender.prompts[0], "Backend Developer") {
		t.Errorf("prompt missing job context: %s", sender.prompts[0])
	}
}

func TestGenerateFailsWholeOperation(t *testing.T) {
	sender := &fakeSender{err: errors.New("quota exceeded")}
	g := NewGenerator(sender, 0)

	_, err := g.Generate(context.Background(), JobDetails{Position: "Dev"}, []SectionType{SectionTechnical})
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
