package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepstage/prepstage/internal/detect"
	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/storage"
	"github.com/prepstage/prepstage/internal/transcript"
)

// Session bundles one controller with its frame buffer and detection sampler.
// The sampler runs only while the webcam is reported on.
type Session struct {
	ID string

	ctrl   *Controller
	frames *detect.FrameBuffer

	mu            sync.Mutex
	sampler       *detect.Sampler
	samplerCancel context.CancelFunc
	cancel        context.CancelFunc
}

// Controller returns the session's answer lifecycle controller.
func (s *Session) Controller() *Controller { return s.ctrl }

// PutFrame stores the latest webcam frame for the detection sampler.
func (s *Session) PutFrame(jpeg []byte, width, height int) {
	s.frames.Put(jpeg, width, height)
}

// Overlay returns the current detection overlay. ok is false when no
// detector is attached.
func (s *Session) Overlay() (detect.Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampler == nil {
		return detect.Overlay{}, false
	}
	return s.sampler.Overlay(), true
}

// Manager creates and tracks answer sessions, one per
// (user, interview, question).
type Manager struct {
	store      *storage.Store
	interviews *interview.Service
	cleaner    transcript.Cleaner
	scorer     FeedbackScorer
	model      detect.Model // nil when no detector is configured
	interval   time.Duration
	recognizer func() Recognizer

	mu       sync.Mutex
	sessions map[string]*Session
	byKey    map[string]string
}

// ManagerConfig configures a Manager. Model and NewRecognizer are optional.
type ManagerConfig struct {
	Store          *storage.Store
	Interviews     *interview.Service
	Cleaner        transcript.Cleaner
	Scorer         FeedbackScorer
	Model          detect.Model
	SampleInterval time.Duration
	NewRecognizer  func() Recognizer
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.NewRecognizer == nil {
		cfg.NewRecognizer = func() Recognizer { return NopRecognizer{} }
	}
	return &Manager{
		store:      cfg.Store,
		interviews: cfg.Interviews,
		cleaner:    cfg.Cleaner,
		scorer:     cfg.Scorer,
		model:      cfg.Model,
		interval:   cfg.SampleInterval,
		recognizer: cfg.NewRecognizer,
		sessions:   make(map[string]*Session),
		byKey:      make(map[string]string),
	}
}

func sessionKey(userID, interviewID, questionNorm string) string {
	return userID + "\x00" + interviewID + "\x00" + questionNorm
}

// Start opens a session for one interview question, reusing an existing live
// session for the same question. The question must exist in the interview.
func (m *Manager) Start(userID, interviewID, questionText string) (*Session, error) {
	iv, err := m.interviews.Get(interviewID, userID)
	if err != nil {
		return nil, err
	}
	sec, q, ok := iv.FindQuestion(questionText)
	if !ok {
		return nil, validationf("question not part of interview %s", interviewID)
	}

	key := sessionKey(userID, interviewID, interview.NormalizeQuestion(q.Text))

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byKey[key]; ok {
		return m.sessions[id], nil
	}

	frames := detect.NewFrameBuffer()
	var sampler *detect.Sampler
	if m.model != nil {
		sampler = detect.NewSampler(m.model, frames, m.interval)
	}

	cfg := Config{
		Store:       m.store,
		Cleaner:     m.cleaner,
		Scorer:      m.scorer,
		Recognizer:  m.recognizer(),
		UserID:      userID,
		InterviewID: interviewID,
		Section:     sec.Type,
		Question:    q,
	}
	if sampler != nil {
		cfg.Detections = sampler
	}
	ctrl, err := NewController(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	sess := &Session{
		ID:      uuid.NewString(),
		ctrl:    ctrl,
		frames:  frames,
		sampler: sampler,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go ctrl.Run(ctx)

	m.sessions[sess.ID] = sess
	m.byKey[key] = sess.ID
	slog.Debug("session opened", "session", sess.ID, "question", q.Text)
	return sess, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return sess, nil
}

// SetWebcam toggles the session's detection sampler. Turning the webcam off
// cancels the sampler's ticker immediately; the accumulated attempt state is
// kept.
func (m *Manager) SetWebcam(id string, on bool) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.sampler == nil {
		if !on {
			return nil
		}
		return validationf("no detector configured")
	}

	if on {
		if sess.samplerCancel != nil {
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		sess.samplerCancel = cancel
		go sess.sampler.Run(ctx)
		return nil
	}

	if sess.samplerCancel != nil {
		sess.samplerCancel()
		sess.samplerCancel = nil
	}
	sess.frames.Clear()
	return nil
}

// Stop tears a session down: recognizer stopped, sampler and cleanup queue
// cancelled, session forgotten.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		for key, sid := range m.byKey {
			if sid == id {
				delete(m.byKey, key)
			}
		}
	}
	m.mu.Unlock()
	if !ok {
		return storage.ErrNotFound
	}

	sess.ctrl.Close()
	sess.mu.Lock()
	if sess.samplerCancel != nil {
		sess.samplerCancel()
		sess.samplerCancel = nil
	}
	sess.mu.Unlock()
	sess.cancel()
	slog.Debug("session closed", "session", id)
	return nil
}

// StopAll tears down every live session. Used on server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		if err := m.Stop(id); err != nil {
			slog.Warn("stopping session", "session", id, "error", err)
		}
	}
}
