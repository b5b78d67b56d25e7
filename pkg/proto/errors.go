package proto

import (
	"errors"
	"fmt"
)

// ErrMalformed marks input that does not match the envelope shape or names
// a payload tag the active role does not understand.
var ErrMalformed = errors.New("malformed input")

// DecodeError describes why a line could not be decoded.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrMalformed, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrMalformed, e.Reason)
}

func (e *DecodeError) Is(target error) bool { return target == ErrMalformed }

func (e *DecodeError) Unwrap() error { return e.Err }

func malformed(err error, format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Err: err}
}
