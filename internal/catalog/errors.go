package catalog

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is matched by every *RecordError.
var ErrMalformedRecord = errors.New("malformed record")

// RecordError describes why a single dataset entry could not be read.
// The run continues without it.
type RecordError struct {
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed record: %s", e.Reason)
	}
	return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrMalformedRecord }

func malformed(field, format string, args ...any) error {
	return &RecordError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FatalInputError reports a manifest that cannot be analyzed at all.
type FatalInputError struct {
	Reason string
}

func (e *FatalInputError) Error() string {
	return "invalid manifest: " + e.Reason
}

// IsFatalInput reports whether err is (or wraps) a *FatalInputError.
func IsFatalInput(err error) bool {
	var fe *FatalInputError
	return errors.As(err, &fe)
}
