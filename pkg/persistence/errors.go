// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrNotFound indicates a key has no value in a bucket.
	ErrNotFound = errors.New("record not found")

	// ErrNotebookNotFound indicates a notebook was not found by the given identifier.
	ErrNotebookNotFound = errors.New("notebook not found")

	// ErrTemplateNotFound indicates a workspace has no template with the given name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateAlreadyExists indicates a template with the same name already exists in the workspace.
	ErrTemplateAlreadyExists = errors.New("template already exists")

	// ErrTriggerNotFound indicates a trigger was not found by the given identifier.
	ErrTriggerNotFound = errors.New("trigger not found")
)

// RecordError wraps repository errors with additional context.
type RecordError struct {
	Op     string // Operation being performed (e.g., "ByID", "Save", "Delete")
	Bucket string // Collection the record lives in
	Key    string // Record key
	Err    error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, bucket, key string, err error) *RecordError {
	return &RecordError{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// IsNotFound checks if an error reports a missing record of any kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNotebookNotFound) ||
		errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrTriggerNotFound)
}

// IsAlreadyExists checks if an error is a uniqueness conflict.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrTemplateAlreadyExists)
}
