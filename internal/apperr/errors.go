package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStageMismatch = errors.New("not allowed in current stage")
	ErrSignInFailed  = errors.New("sign-in failed")
)

// Persistence operations.
const (
	OpRead  = "read"
	OpWrite = "write"
)

// PersistenceError reports a failed snapshot read or write. It is logged at
// the boundary and never aborts the action that triggered it.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is a PersistenceError for op.
func IsPersistence(err error, op string) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Op == op
}
