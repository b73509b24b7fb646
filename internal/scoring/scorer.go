// Package scoring rates a finalized answer against its reference answer via
// the generative API and parses the structured result.
package scoring

import (
	"context"
	"log/slog"

	"github.com/prepstage/prepstage/internal/prompt"
)

// SentinelFeedback is the fallback feedback text used when scoring fails.
const SentinelFeedback = "Unable to generate feedback."

// Result is a parsed rating plus free-text feedback.
type Result struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// Sentinel returns the fixed fallback result. Rating 0 marks the answer as
// unscored; real ratings are 1-10.
func Sentinel() Result {
	return Result{Rating: 0, Feedback: SentinelFeedback}
}

// PromptSender sends one prompt to the generative API.
type PromptSender interface {
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// Scorer generates feedback for answered questions.
type Scorer struct {
	ai PromptSender
}

// NewScorer creates a Scorer using the given generative client.
func NewScorer(ai PromptSender) *Scorer {
	return &Scorer{ai: ai}
}

// Score rates the user answer against the reference answer, tailored to the
// section label. Scoring failure must never block the answer flow: on any
// network or parse error the sentinel result is returned and the failure is
// only logged.
func (s *Scorer) Score(ctx context.Context, question, referenceAnswer, userAnswer, section string) Result {
	raw, err := s.ai.SendPrompt(ctx, prompt.Feedback(question, referenceAnswer, userAnswer, section))
	if err != nil {
		slog.Warn("feedback generation failed", "section", section, "error", err)
		return Sentinel()
	}

	result, err := parseResult(raw)
	if err != nil {
		slog.Warn("failed to parse feedback response", "error", err, "response", raw)
		return Sentinel()
	}
	return result
}
