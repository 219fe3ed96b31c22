package template

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("template validation failed")
	ErrNotFound   = errors.New("template not found")
)

// ValidationError reports a required field that was empty after trimming.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s must not be empty", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an id (or reference) that matches no template.
// Suggestion is a near-miss name, if any.
type NotFoundError struct {
	ID         string
	Suggestion string
}

func (e *NotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("template %q not found (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("template %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
