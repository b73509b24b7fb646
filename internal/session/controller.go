// Package session drives the answer lifecycle for one interview question:
// recording, transcript cleanup, scoring, two-step save, and delete.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/scoring"
	"github.com/prepstage/prepstage/internal/storage"
	"github.com/prepstage/prepstage/internal/transcript"
)

// MinAnswerLength is the minimum transcript length, in characters, required
// before an answer can be scored.
const MinAnswerLength = 30

// State is the controller's position in the answer lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateReviewing State = "reviewing"
	StateSaved     State = "saved"
)

// Recognizer is the externally owned speech-capture resource. The controller
// only toggles it; every Start is paired with a Stop on stop, retry failure,
// or teardown.
type Recognizer interface {
	Start() error
	Stop()
}

// NopRecognizer satisfies Recognizer when speech capture happens outside the
// process and fragments arrive over the API.
type NopRecognizer struct{}

func (NopRecognizer) Start() error { return nil }
func (NopRecognizer) Stop()        {}

// DetectionSource reports the proctoring state accumulated for the current
// question attempt.
type DetectionSource interface {
	Snapshot() (personDetected, suspiciousDetected bool, labels []string)
	ResetAttempt()
}

// noDetections is used when no detector is configured.
type noDetections struct{}

func (noDetections) Snapshot() (bool, bool, []string) { return false, false, nil }
func (noDetections) ResetAttempt()                    {}

// FeedbackScorer rates a finalized answer. Implementations never fail; they
// degrade to the sentinel result instead.
type FeedbackScorer interface {
	Score(ctx context.Context, question, referenceAnswer, userAnswer, section string) scoring.Result
}

// Config carries the collaborators and identity of one answer session.
// Detections and Recognizer may be nil; no-op implementations are substituted.
type Config struct {
	Store       *storage.Store
	Cleaner     transcript.Cleaner
	Scorer      FeedbackScorer
	Recognizer  Recognizer
	Detections  DetectionSource
	UserID      string
	InterviewID string
	Section     interview.SectionType
	Question    interview.Question
}

// Controller is the state machine for a single (user, interview, question)
// answer. All methods are safe for concurrent use, though the design assumes
// a single writer.
type Controller struct {
	store      *storage.Store
	scorer     FeedbackScorer
	recognizer Recognizer
	detections DetectionSource

	userID       string
	interviewID  string
	section      interview.SectionType
	question     interview.Question
	questionNorm string

	proc *transcript.Processor

	mu          sync.Mutex
	state       State
	result      scoring.Result
	hasRating   bool
	savedID     string
	savePending bool
	attempt     uint64

	now   func() time.Time
	newID func() string
}

// NewController builds a controller and hydrates it from storage: when a
// persisted answer already exists for the question it starts in Saved with
// text and rating restored, otherwise in Idle.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Recognizer == nil {
		cfg.Recognizer = NopRecognizer{}
	}
	if cfg.Detections == nil {
		cfg.Detections = noDetections{}
	}

	c := &Controller{
		store:        cfg.Store,
		scorer:       cfg.Scorer,
		recognizer:   cfg.Recognizer,
		detections:   cfg.Detections,
		userID:       cfg.UserID,
		interviewID:  cfg.InterviewID,
		section:      cfg.Section,
		question:     cfg.Question,
		questionNorm: interview.NormalizeQuestion(cfg.Question.Text),
		proc:         transcript.NewProcessor(cfg.Cleaner, cfg.Question.Text),
		state:        StateIdle,
		now:          time.Now,
		newID:        uuid.NewString,
	}

	existing, err := cfg.Store.FindAnswer(cfg.UserID, cfg.InterviewID, c.questionNorm)
	switch {
	case err == nil:
		c.state = StateSaved
		c.savedID = existing.ID
		c.result = scoring.Result{Rating: existing.Rating, Feedback: existing.Feedback}
		c.hasRating = true
		c.proc.SetAnswer(existing.UserAnswer)
	case errors.Is(err, storage.ErrNotFound):
		// fresh question
	default:
		return nil, fmt.Errorf("checking for existing answer: %w", err)
	}
	return c, nil
}

// Run drives the transcript cleanup queue until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.proc.Run(ctx)
}

// StartRecording begins speech capture. Forbidden while an answer is saved
// or a recording/review is already in progress.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.savedID != "" || c.state == StateSaved {
		return ErrAlreadyAnswered
	}
	if c.state != StateIdle {
		return validationf("cannot start recording while %s", c.state)
	}
	if err := c.recognizer.Start(); err != nil {
		return fmt.Errorf("starting recognizer: %w", err)
	}
	c.proc.Resume()
	c.state = StateRecording
	return nil
}

// PushFragments feeds a snapshot of the recognizer's cumulative fragment
// sequence into the transcript pipeline. Fragments arriving outside Recording
// are dropped.
func (c *Controller) PushFragments(fragments []string) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return validationf("not recording")
	}
	c.mu.Unlock()
	c.proc.Push(fragments)
	return nil
}

// StopRecording stops speech capture and, when the transcript meets the
// minimum length, scores the answer synchronously. Short transcripts leave
// the controller in Reviewing without a rating, so the retry path stays open
// but save does not.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return validationf("cannot stop recording while %s", c.state)
	}
	c.recognizer.Stop()
	c.state = StateReviewing
	c.hasRating = false
	answer := c.proc.Answer()
	attempt := c.attempt
	c.mu.Unlock()

	if utf8.RuneCountInString(answer) < MinAnswerLength {
		return validationf("answer must be at least %d characters", MinAnswerLength)
	}

	// The scorer call suspends; the lock is released so retry and delete
	// stay responsive. A stale result is discarded.
	result := c.scorer.Score(ctx, c.question.Text, c.question.ReferenceAnswer, answer, string(c.section))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt || c.state != StateReviewing {
		slog.Debug("discarding stale scoring result", "question", c.question.Text)
		return nil
	}
	c.result = result
	c.hasRating = true
	return nil
}

// Retry discards the reviewed answer and starts a fresh recording: transcript
// and rating are cleared and the detection attempt state resets. Forbidden
// once saved.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSaved {
		return validationf("saved answers cannot be retried; delete first")
	}
	if c.state != StateReviewing {
		return validationf("cannot retry while %s", c.state)
	}
	if err := c.recognizer.Start(); err != nil {
		return fmt.Errorf("starting recognizer: %w", err)
	}
	// Reset leaves the accumulator in discard mode: the recognizer keeps
	// running across a retry and re-delivers the full fragment sequence, which
	// must be swallowed once instead of re-forwarded.
	c.proc.Reset()
	c.detections.ResetAttempt()
	c.result = scoring.Result{}
	c.hasRating = false
	c.savePending = false
	c.attempt++
	c.state = StateRecording
	return nil
}

// RequestSave is the first half of the save confirmation. It requires a
// rating and arms ConfirmSave; nothing is persisted yet.
func (c *Controller) RequestSave() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReviewing {
		return validationf("cannot save while %s", c.state)
	}
	if !c.hasRating {
		return validationf("answer has no rating yet")
	}
	c.savePending = true
	return nil
}

// CancelSave disarms a pending save confirmation.
func (c *Controller) CancelSave() {
	c.mu.Lock()
	c.savePending = false
	c.mu.Unlock()
}

// ConfirmSave persists the answer with a snapshot of the detection flags and
// label set. A persistence failure leaves the controller in Reviewing with
// the confirmation still armed.
func (c *Controller) ConfirmSave() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReviewing {
		return validationf("cannot save while %s", c.state)
	}
	if !c.savePending {
		return validationf("save has not been requested")
	}

	person, _, labels := c.detections.Snapshot()
	objects, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encoding detected objects: %w", err)
	}

	rec := storage.Answer{
		ID:              c.newID(),
		InterviewID:     c.interviewID,
		UserID:          c.userID,
		Section:         string(c.section),
		Question:        c.question.Text,
		QuestionNorm:    c.questionNorm,
		UserAnswer:      c.proc.Answer(),
		ReferenceAnswer: c.question.ReferenceAnswer,
		Rating:          c.result.Rating,
		Feedback:        c.result.Feedback,
		PersonDetected:  person,
		DetectedObjects: string(objects),
		CreatedAt:       c.now().UTC(),
	}
	if err := c.store.SaveAnswer(rec); err != nil {
		return fmt.Errorf("saving answer: %w", err)
	}
	c.savedID = rec.ID
	c.savePending = false
	c.state = StateSaved
	return nil
}

// Delete removes the persisted answer and returns the controller to Idle
// with all local state cleared. Without a persisted answer it is a no-op
// that signals ErrNoSavedAnswer.
func (c *Controller) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.savedID == "" {
		return ErrNoSavedAnswer
	}
	if err := c.store.DeleteAnswer(c.savedID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("deleting answer: %w", err)
	}
	c.savedID = ""
	c.proc.Reset()
	c.detections.ResetAttempt()
	c.result = scoring.Result{}
	c.hasRating = false
	c.savePending = false
	c.attempt++
	c.state = StateIdle
	return nil
}

// Close stops the recognizer if a recording is still active. The transcript
// queue is shut down by cancelling the Run context.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRecording {
		c.recognizer.Stop()
		c.state = StateReviewing
	}
}

// Status is a read-only snapshot of the controller for API responses.
type Status struct {
	State       State  `json:"state"`
	Answer      string `json:"answer"`
	Rating      int    `json:"rating"`
	Feedback    string `json:"feedback"`
	HasRating   bool   `json:"hasRating"`
	SavePending bool   `json:"savePending"`
	SavedID     string `json:"savedId,omitempty"`
	Question    string `json:"question"`
	Section     string `json:"section"`
}

// Status reports the current lifecycle snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State:       c.state,
		Answer:      c.proc.Answer(),
		Rating:      c.result.Rating,
		Feedback:    c.result.Feedback,
		HasRating:   c.hasRating,
		SavePending: c.savePending,
		SavedID:     c.savedID,
		Question:    c.question.Text,
		Section:     string(c.section),
	}
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
