package relay

import (
	"errors"
	"fmt"
)

// ErrPersistence means the store refused the message; nothing was fanned out.
var ErrPersistence = errors.New("persistence failure")

// ValidationError rejects an inbound message before the pipeline starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
