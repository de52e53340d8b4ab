package bot

import (
	"errors"
	"fmt"
)

// PersistenceError indicates a failed store write. The record must be
// treated as not durably synchronized.
type PersistenceError struct {
	Collection string
	Key        string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("writing %s/%s: %v", e.Collection, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError checks if an error is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
