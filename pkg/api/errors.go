package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/moogar0880/problems"
)

var (
	// ErrNotebookNotFound indicates the service has no notebook with the given ID.
	ErrNotebookNotFound = errors.New("notebook not found")

	// ErrTemplateNotFound indicates the workspace has no template with the given name,
	// or a template URL returned 404.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTriggerNotFound indicates the service has no trigger with the given ID.
	ErrTriggerNotFound = errors.New("trigger not found")

	// ErrAuthenticationRequired indicates the call needs credentials that are
	// missing or were rejected.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrWorkspaceRequired indicates a workspace-scoped call without a workspace ID.
	ErrWorkspaceRequired = errors.New("workspace ID is required")

	// ErrNetwork indicates a transport failure or an unexpected response status.
	ErrNetwork = errors.New("network error")
)

// NetworkError describes a failed request. Err holds the error kind.
type NetworkError struct {
	Method  string
	URL     string
	Status  int
	Problem *problems.Problem
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}

	msg := fmt.Sprintf("%s %s: %d %s: %v", e.Method, e.URL, e.Status, http.StatusText(e.Status), e.Err)

	if e.Problem != nil && e.Problem.Detail != "" {
		msg += " (" + e.Problem.Detail + ")"
	}

	return msg
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotebookNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrTriggerNotFound)
}

func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// statusError maps a non-2xx response to the error kind for the call.
func statusError(status int, notFound error) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthenticationRequired
	case status == http.StatusNotFound && notFound != nil:
		return notFound
	default:
		return ErrNetwork
	}
}
