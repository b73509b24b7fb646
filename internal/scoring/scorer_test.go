package scoring

import (
	"context"
	"errors"
	"testing"
)

type fakeSender struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeSender) SendPrompt(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestParseResultPlain(t *testing.T) {
	got, err := parseResult(`{"ratings": 8, "feedback": "Solid answer."}`)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if got.Rating != 8 || got.Feedback != "Solid answer." {
		t.Errorf("got %+v", got)
	}
}

func TestParseResultCodeFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\n  \"ratings\": 6,\n  \"feedback\": \"Mention tradeoffs.\"\n}\n```\nHope that helps!"
	got, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if got.Rating != 6 || got.Feedback != "Mention tradeoffs." {
		t.Errorf("got %+v", got)
	}
}

func TestParseResultControlChars(t *testing.T) {
	raw := "{\"ratings\": 9,\x07 \"feedback\": \"Great\x1f detail.\"}"
	got, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if got.Feedback != "Great detail." {
		t.Errorf("control chars not stripped: %q", got.Feedback)
	}
}

func TestParseResultSurroundingProse(t *testing.T) {
	raw := `Sure! {"ratings": 4, "feedback": "Too brief."} Let me know if you need more.`
	got, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if got.Rating != 4 {
		t.Errorf("got %+v", got)
	}
}

func TestParseResultErrors(t *testing.T) {
	cases := map[string]string{
		"no braces":        "I cannot rate this answer.",
		"missing ratings":  `{"feedback": "ok"}`,
		"missing feedback": `{"ratings": 5}`,
		"rating range":     `{"ratings": 42, "feedback": "ok"}`,
		"broken json":      `{"ratings": 5, "feedback": `,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseResult(raw)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestScoreSuccess(t *testing.T) {
	sender := &fakeSender{response: `{"ratings": 7, "feedback": "Good structure."}`}
	s := NewScorer(sender)

	got := s.Score(context.Background(), "Q", "ref", "my answer", "Technical")
	if got.Rating != 7 || got.Feedback != "Good structure." {
		t.Errorf("got %+v", got)
	}
	if len(sender.prompts) != 1 {
		t.Fatalf("expected exactly one prompt, got %d", len(sender.prompts))
	}
}

func TestScoreNetworkFailureReturnsSentinel(t *testing.T) {
	s := NewScorer(&fakeSender{err: errors.New("connection refused")})

	got := s.Score(context.Background(), "Q", "ref", "my answer", "HR")
	if got.Rating != 0 || got.Feedback != SentinelFeedback {
		t.Errorf("expected sentinel, got %+v", got)
	}
}

func TestScoreParseFailureReturnsSentinel(t *testing.T) {
	s := NewScorer(&fakeSender{response: "no json here"})

	got := s.Score(context.Background(), "Q", "ref", "my answer", "HR")
	if got != Sentinel() {
		t.Errorf("expected sentinel, got %+v", got)
	}
}
