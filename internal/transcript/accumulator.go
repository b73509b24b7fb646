// Package transcript turns re-delivered speech-recognition result sequences
// into deduplicated text spans and applies cleaned spans to the accumulated
// answer in order.
package transcript

import "strings"

// Accumulator tracks how much of the recognizer's growing fragment sequence
// has already been consumed. The recognizer re-delivers the full ordered
// sequence on every update, not deltas, so a cursor over the total length is
// enough to extract only the new tail.
type Accumulator struct {
	cursor  int
	discard bool
}

// NewAccumulator returns an Accumulator ready to consume from the start.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Reset rewinds the cursor for a new recording attempt and switches to
// discard mode: the next delivery is swallowed whole, catching the cursor up
// past fragments from before the reset, then forwarding resumes.
func (a *Accumulator) Reset() {
	a.cursor = 0
	a.discard = true
}

// Resume leaves discard mode without waiting for a delivery; called when the
// recognizer restarts from scratch and no stale re-delivery is expected.
func (a *Accumulator) Resume() {
	a.discard = false
}

// Advance consumes the full fragment sequence delivered so far and returns
// the span of text not yet seen, space-joined and trimmed. The cursor always
// moves to the new total length, even when the extracted span is empty, so
// fragments are never reprocessed.
func (a *Accumulator) Advance(fragments []string) string {
	if a.discard {
		a.cursor = len(fragments)
		a.discard = false
		return ""
	}
	if a.cursor > len(fragments) {
		// Shrunk sequence means the recognizer restarted underneath us.
		a.cursor = 0
	}

	fresh := fragments[a.cursor:]
	a.cursor = len(fragments)

	parts := make([]string, 0, len(fresh))
	for _, f := range fresh {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
