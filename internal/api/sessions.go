package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepstage/prepstage/internal/session"
)

type startSessionRequest struct {
	InterviewID string `json:"interviewId"`
	Question    string `json:"question"`
}

func handleStartSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.InterviewID == "" || req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "interviewId and question are required")
			return
		}

		sess, err := deps.Sessions.Start(deps.UserID, req.InterviewID, req.Question)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]any{
			"id":     sess.ID,
			"status": sess.Controller().Status(),
		})
	}
}

func handleSessionStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, sess.Controller().Status())
	}
}

func handleCloseSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Sessions.Stop(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "closed"})
	}
}

// controllerAction wraps the shared fetch-session-then-mutate shape of the
// lifecycle endpoints.
func controllerAction(deps AppDeps, act func(sess *session.Session, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := act(sess, r); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, sess.Controller().Status())
	}
}

func handleRecord(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		return sess.Controller().StartRecording()
	})
}

type fragmentsRequest struct {
	Fragments []string `json:"fragments"`
}

func handleFragments(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, r *http.Request) error {
		r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req fragmentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return &invalidBody{err}
		}
		return sess.Controller().PushFragments(req.Fragments)
	})
}

func handleStopRecording(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, r *http.Request) error {
		return sess.Controller().StopRecording(r.Context())
	})
}

func handleRetry(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		return sess.Controller().Retry()
	})
}

func handleRequestSave(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		return sess.Controller().RequestSave()
	})
}

func handleConfirmSave(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		return sess.Controller().ConfirmSave()
	})
}

func handleCancelSave(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		sess.Controller().CancelSave()
		return nil
	})
}

func handleDeleteAnswer(deps AppDeps) http.HandlerFunc {
	return controllerAction(deps, func(sess *session.Session, _ *http.Request) error {
		return sess.Controller().Delete()
	})
}

type frameRequest struct {
	Image  string `json:"image"` // base64 JPEG
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func handleFrame(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxFrameBodySize)
		defer r.Body.Close()

		var req frameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		jpeg, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "image must be base64")
			return
		}
		if len(jpeg) == 0 || req.Width <= 0 || req.Height <= 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "image, width and height are required")
			return
		}

		sess.PutFrame(jpeg, req.Width, req.Height)
		writeJSON(w, map[string]string{"status": "accepted"})
	}
}

func handleOverlay(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		overlay, ok := sess.Overlay()
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "no detector configured")
			return
		}
		writeJSON(w, overlay)
	}
}

type webcamRequest struct {
	On bool `json:"on"`
}

func handleWebcam(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req webcamRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := deps.Sessions.SetWebcam(chi.URLParam(r, "id"), req.On); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	}
}
