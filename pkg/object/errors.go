package object

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer of the engine. Specific errors wrap
// one of these so callers can test the category with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCorrupt       = errors.New("corrupt")
	ErrInvalidState  = errors.New("invalid state")
	ErrConflict      = errors.New("conflict")
)

var (
	ErrObjectNotFound = fmt.Errorf("object %w", ErrNotFound)
	ErrObjectCorrupt  = fmt.Errorf("object %w", ErrCorrupt)
)

// ObjectError records a failed store operation on a single object.
type ObjectError struct {
	Op   string
	Hash Hash
	Err  error
}

func (e *ObjectError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("object %s %s: %v", e.Op, e.Hash, e.Err)
}

func (e *ObjectError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func corruptf(op string, h Hash, format string, args ...any) error {
	return &ObjectError{
		Op:   op,
		Hash: h,
		Err:  fmt.Errorf("%w: %s", ErrObjectCorrupt, fmt.Sprintf(format, args...)),
	}
}
