package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid quiz session transition")
	// ErrFetchQuestions indicates the question list could not be loaded.
	ErrFetchQuestions = errors.New("failed to fetch quiz questions")
	// ErrSubmitScore indicates the final score could not be saved.
	ErrSubmitScore = errors.New("failed to submit score")
	// ErrNoQuestions is returned when the question source has nothing to play.
	ErrNoQuestions = errors.New("no quiz questions available")
	// ErrInvalidQuestion indicates a question does not have four options with one correct answer.
	ErrInvalidQuestion = errors.New("invalid quiz question")
	// ErrOptionNotFound indicates a selected option index is out of range.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNotAuthenticated is returned when no usable token is stored.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrQuizInProgress is returned when navigation needs confirmation first.
	ErrQuizInProgress = errors.New("quiz in progress")

	ErrNetwork      = errors.New("network error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// APIError carries the status and message reported by the REST API.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func NewAPIError(statusCode int, message string) *APIError {
	kind := ErrNetwork
	switch statusCode {
	case 401:
		kind = ErrUnauthorized
	case 403:
		kind = ErrForbidden
	case 404:
		kind = ErrNotFound
	}
	return &APIError{StatusCode: statusCode, Message: message, kind: kind}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// SessionError ties a boundary failure to the session step that hit it.
// errors.Is matches both the step sentinel and the underlying cause.
type SessionError struct {
	Kind error
	Err  error
}

func (e *SessionError) Error() string {
	return e.Kind.Error() + ": " + e.Err.Error()
}

func (e *SessionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
