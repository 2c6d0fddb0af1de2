package timeline

import (
	"errors"
	"fmt"
)

// ErrValidation matches every rejected timeline operation
var ErrValidation = errors.New("validation failed")

var (
	ErrClipNotFound      = fmt.Errorf("%w: clip not found", ErrValidation)
	ErrDuplicateClip     = fmt.Errorf("%w: placement id already on the timeline", ErrValidation)
	ErrDuplicateSource   = fmt.Errorf("%w: source already imported", ErrValidation)
	ErrInvalidWindow     = fmt.Errorf("%w: clip window end must be after start", ErrValidation)
	ErrInvalidTrim       = fmt.Errorf("%w: trim outside source bounds", ErrValidation)
	ErrClipOverlap       = fmt.Errorf("%w: clip overlaps another clip on the channel", ErrValidation)
	ErrUnknownTransition = fmt.Errorf("%w: unknown transition", ErrValidation)
	ErrInvalidColor      = fmt.Errorf("%w: invalid color", ErrValidation)
	ErrInvalidGradient   = fmt.Errorf("%w: invalid gradient", ErrValidation)
	ErrInvalidValue      = fmt.Errorf("%w: invalid value", ErrValidation)
	ErrEmptyTimeline     = fmt.Errorf("%w: timeline has no clips", ErrValidation)
)

// ValidationError records which operation and field were rejected.
// The state an operation returns alongside it is the unchanged input.
type ValidationError struct {
	Op    string
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(op, field string, err error) error {
	return &ValidationError{Op: op, Field: field, Err: err}
}
