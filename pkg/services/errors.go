// Package services implements the notebook template workflows: resolving
// template references, converting notebooks to templates, expanding
// templates into notebooks and managing webhook triggers.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/nbctl/pkg/api"
)

var (
	// ErrUnsupportedTemplateFormat indicates a reference that is neither a
	// template name, a URL nor a local template file.
	ErrUnsupportedTemplateFormat = errors.New("unsupported template format")

	// ErrTemplateEvaluationFailed indicates the template could not be turned
	// into a valid notebook payload.
	ErrTemplateEvaluationFailed = errors.New("template evaluation failed")

	// ErrInsecureTemplateURL indicates a plain http template URL where only https is accepted.
	ErrInsecureTemplateURL = errors.New("template URL must use https")

	// ErrTemplateSourceRequired indicates an operation that needs template
	// source text was given a reference to an uploaded template.
	ErrTemplateSourceRequired = errors.New("a local template file or template URL is required")

	ErrWorkspaceRequired      = api.ErrWorkspaceRequired
	ErrAuthenticationRequired = api.ErrAuthenticationRequired
)

// EvaluationReason classifies an evaluation failure.
type EvaluationReason string

const (
	ReasonMissingArgument EvaluationReason = "missing_argument"
	ReasonInvalidPayload  EvaluationReason = "invalid_payload"
	ReasonEngine          EvaluationReason = "engine"
)

// EvaluationError describes why a template could not be expanded.
type EvaluationError struct {
	Reason    EvaluationReason
	Parameter string // set for ReasonMissingArgument
	Details   []string
	Err       error
}

func (e *EvaluationError) Error() string {
	switch e.Reason {
	case ReasonMissingArgument:
		return fmt.Sprintf("%s: missing required argument %q", ErrTemplateEvaluationFailed, e.Parameter)
	case ReasonInvalidPayload:
		if len(e.Details) > 0 {
			return fmt.Sprintf("%s: invalid notebook payload: %v: %v", ErrTemplateEvaluationFailed, e.Err, e.Details)
		}

		return fmt.Sprintf("%s: invalid notebook payload: %v", ErrTemplateEvaluationFailed, e.Err)
	default:
		return fmt.Sprintf("%s: %v", ErrTemplateEvaluationFailed, e.Err)
	}
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Is(target error) bool {
	return target == ErrTemplateEvaluationFailed
}

// OperationError adds the operation and its target to any error leaving the service layer.
type OperationError struct {
	Op     string // e.g. "expand", "trigger.create"
	Target string // the user-supplied reference
	Err    error
}

func (e *OperationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func newOperationError(op, target string, err error) error {
	if err == nil {
		return nil
	}

	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Op == op {
		return err
	}

	return &OperationError{Op: op, Target: target, Err: err}
}

// IsEvaluationError checks if err is a template evaluation failure.
func IsEvaluationError(err error) bool {
	return errors.Is(err, ErrTemplateEvaluationFailed)
}

// MissingArgument returns the name of the missing argument when err is a
// missing-argument evaluation failure.
func MissingArgument(err error) (string, bool) {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) && evalErr.Reason == ReasonMissingArgument {
		return evalErr.Parameter, true
	}

	return "", false
}
