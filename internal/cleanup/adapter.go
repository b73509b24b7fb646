// Package cleanup corrects raw speech-recognition transcript fragments using
// the generative API: misheard technical terms and basic grammar only, no
// paraphrasing (the prompt enforces the contract).
package cleanup

import (
	"context"
	"log/slog"

	"github.com/prepstage/prepstage/internal/prompt"
)

// PromptSender sends one prompt to the generative API.
type PromptSender interface {
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// Adapter cleans transcript fragments. Failures degrade to pass-through:
// transcription must never stall on the cleanup call.
type Adapter struct {
	ai PromptSender
}

// New creates an Adapter using the given generative client.
func New(ai PromptSender) *Adapter {
	return &Adapter{ai: ai}
}

// Clean sends one raw fragment with its question context and returns the
// corrected text. A single request/response round trip: on any error the raw
// fragment is returned unchanged and the failure is logged.
func (a *Adapter) Clean(ctx context.Context, question, raw string) string {
	cleaned, err := a.ai.SendPrompt(ctx, prompt.Cleanup(question, raw))
	if err != nil {
		slog.Warn("transcript cleanup failed, keeping raw fragment", "error", err)
		return raw
	}
	return cleaned
}
