package transcript

import (
	"context"
	"sync"
)

// Cleaner corrects one raw transcript span, given the question context.
type Cleaner interface {
	Clean(ctx context.Context, question, raw string) string
}

const queueDepth = 16

type span struct {
	text string
	gen  uint64
}

// Processor forwards new transcript spans through the Cleaner and appends the
// cleaned text to the accumulated answer. Cleanup calls are serialized by a
// single-consumer queue so spans are applied in submission order even when
// the model answers slowly; a generation counter discards spans that were
// queued before a reset.
type Processor struct {
	acc      *Accumulator
	cleaner  Cleaner
	question string

	mu     sync.Mutex
	answer string
	gen    uint64

	queue chan span
}

// NewProcessor creates a Processor for one question attempt.
func NewProcessor(cleaner Cleaner, question string) *Processor {
	return &Processor{
		acc:      NewAccumulator(),
		cleaner:  cleaner,
		question: question,
		queue:    make(chan span, queueDepth),
	}
}

// Run consumes queued spans until ctx is cancelled. Each span makes exactly
// one cleanup round trip; the Cleaner already degrades to pass-through on
// failure.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-p.queue:
			cleaned := p.cleaner.Clean(ctx, p.question, s.text)
			p.apply(cleaned, s.gen)
		}
	}
}

// Push consumes the full fragment sequence delivered so far and, if anything
// new appeared, queues the fresh span for cleanup. Blocks only when the
// cleanup queue is full.
func (p *Processor) Push(fragments []string) {
	p.mu.Lock()
	raw := p.acc.Advance(fragments)
	gen := p.gen
	p.mu.Unlock()

	if raw == "" {
		return
	}
	p.queue <- span{text: raw, gen: gen}
}

// apply appends a cleaned span to the answer unless a reset happened after it
// was queued.
func (p *Processor) apply(cleaned string, gen uint64) {
	if cleaned == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return
	}
	if p.answer == "" {
		p.answer = cleaned
	} else {
		p.answer += " " + cleaned
	}
}

// Answer returns the accumulated cleaned answer text.
func (p *Processor) Answer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.answer
}

// SetAnswer overwrites the accumulated text; used when hydrating a previously
// saved answer from storage.
func (p *Processor) SetAnswer(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = text
}

// Reset discards the accumulated answer, rewinds the accumulator, and
// invalidates any in-flight cleanup results from the previous attempt.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = ""
	p.gen++
	p.acc.Reset()
}

// Resume re-enables span forwarding after a reset; called when recording
// starts again.
func (p *Processor) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acc.Resume()
}
