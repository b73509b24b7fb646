package detect

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const defaultInterval = time.Second

// Sampler periodically snapshots the latest webcam frame, runs detection,
// and keeps the proctoring state for the current question attempt: the two
// boolean flags, the accumulating label set, and the overlay draw list.
//
// A Sampler runs only while both a loaded model and an active frame source
// exist; the owner cancels Run's context when the webcam is toggled off or
// the session is torn down, which stops the ticker.
type Sampler struct {
	model    Model
	frames   FrameSource
	interval time.Duration

	mu         sync.Mutex
	lastSeq    uint64
	person     bool
	suspicious bool
	labels     map[string]struct{}
	overlay    Overlay
}

// NewSampler creates a Sampler. If interval <= 0, it defaults to 1s.
func NewSampler(model Model, frames FrameSource, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sampler{
		model:    model,
		frames:   frames,
		interval: interval,
		labels:   make(map[string]struct{}),
	}
}

// Run ticks until ctx is cancelled. Ticks with no ready (or no fresh) frame
// are skipped; a failed inference only logs and waits for the next tick.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

// sampleOnce runs one detection pass; split out for tests.
func (s *Sampler) sampleOnce(ctx context.Context) {
	frame, ok := s.frames.Frame()
	if !ok {
		return
	}

	s.mu.Lock()
	stale := frame.Seq == s.lastSeq
	s.mu.Unlock()
	if stale {
		return
	}

	preds, err := s.model.Detect(ctx, frame)
	if err != nil {
		slog.Warn("object detection failed", "error", err)
		return
	}

	detected := classifyDetections(preds)

	person, suspicious := false, false
	for _, class := range detected {
		if class == "person" {
			person = true
		}
		if IsSuspicious(class) {
			suspicious = true
		}
	}

	s.mu.Lock()
	s.lastSeq = frame.Seq
	s.person = person
	s.suspicious = suspicious
	for _, class := range detected {
		s.labels[class] = struct{}{}
	}
	s.overlay = buildOverlay(preds, frame.Width, frame.Height)
	s.mu.Unlock()
}

// Snapshot returns the current flags and the deduplicated set of every class
// detected during this attempt, sorted for stable persistence.
func (s *Sampler) Snapshot() (personDetected, suspiciousDetected bool, labels []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels = make([]string, 0, len(s.labels))
	for l := range s.labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return s.person, s.suspicious, labels
}

// Overlay returns the draw list from the most recent tick.
func (s *Sampler) Overlay() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay
}

// ResetAttempt clears the flags and accumulated labels for a fresh question
// attempt.
func (s *Sampler) ResetAttempt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.person = false
	s.suspicious = false
	s.labels = make(map[string]struct{})
	s.overlay = Overlay{}
}
