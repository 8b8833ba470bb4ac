package lmsync

import (
	"errors"
	"fmt"
)

// ValidationError marks a record that cannot be scored at all (e.g. missing
// history id). The runner skips the row without retrying.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Msg)
}

// TransientError marks a repository write failure worth retrying on a later
// run. The runner counts the row as failed and continues the batch.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError anywhere in its chain.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsTransient reports whether err is a TransientError anywhere in its chain.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}
