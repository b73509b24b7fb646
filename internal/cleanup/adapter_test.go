package cleanup

import (
	"context"
	"errors"
	"strings"
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

func TestCleanReturnsCorrectedText(t *testing.T) {
	sender := &fakeSender{response: "the MERN stack is Mongo, Express, React, Node"}
	a := New(sender)

	got := a.Clean(context.Background(), "What is the MERN stack?", "the mon stek is mongo express react node")
	if got != sender.response {
		t.Errorf("Clean = %q", got)
	}
	if len(sender.prompts) != 1 || !strings.Contains(sender.prompts[0], "What is the MERN stack?") {
		t.Errorf("prompt missing question context: %v", sender.prompts)
	}
}

func TestCleanFallsBackToRawOnError(t *testing.T) {
	a := New(&fakeSender{err: errors.New("timeout")})

	raw := "the mon stek is mongo"
	if got := a.Clean(context.Background(), "Q", raw); got != raw {
		t.Errorf("expected raw pass-through on failure, got %q", got)
	}
}
