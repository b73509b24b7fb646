package session

import (
	"errors"
	"fmt"
)

// ErrAlreadyAnswered guards re-recording: a saved answer must be deleted
// before the question can be attempted again.
var ErrAlreadyAnswered = errors.New("question already has a saved answer")

// ErrNoSavedAnswer is returned by Delete when no persisted answer exists.
// The delete itself is a no-op in that case.
var ErrNoSavedAnswer = errors.New("no saved answer to delete")

// ValidationError reports a guard failure that the user can correct
// (answer too short, missing rating, wrong state for the operation).
// It never reflects an external-service failure.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
