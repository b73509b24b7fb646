// Package api exposes the prepstage HTTP surface: interview CRUD, answer
// sessions, reports, and the MCP server.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prepstage/prepstage/internal/interview"
	"github.com/prepstage/prepstage/internal/session"
	"github.com/prepstage/prepstage/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxFrameBodySize = 8 << 20   // 8MB, webcam frames are bigger

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// invalidBody marks a malformed request payload so controllerAction maps it
// to a 400 instead of a 500.
type invalidBody struct {
	err error
}

func (e *invalidBody) Error() string {
	return "invalid request body: " + e.err.Error()
}

// writeDomainError maps domain errors onto the JSON error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *session.ValidationError
	var body *invalidBody
	switch {
	case errors.As(err, &body):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrAlreadyAnswered):
		httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
	case errors.Is(err, session.ErrNoSavedAnswer):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.As(err, &verr):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, interview.ErrNotOwner):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
