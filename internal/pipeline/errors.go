package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every *InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports the argument or record that failed validation.
type InvalidInputError struct {
	// Field names the argument ("days", "goals.daily_water_goal") or the
	// record ("meals[2] id=abc").
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalidArg(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func invalidRecord(collection string, idx int, id, format string, args ...any) error {
	return &InvalidInputError{
		Field:  fmt.Sprintf("%s[%d] id=%s", collection, idx, id),
		Reason: fmt.Sprintf(format, args...),
	}
}
