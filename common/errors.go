package common

import "errors"

// Errors shared by the item store and the coordination cache backends.
// Backends wrap them with fmt.Errorf("...: %w", err) so callers can use errors.Is.
var (
	// ErrNotFound the item does not exist, terminal
	ErrNotFound = errors.New("not found")
	// ErrTransient transport level failure, the call may be retried with backoff
	ErrTransient = errors.New("transient error")
	// ErrConflict the store detected a concurrent modification of the item
	ErrConflict = errors.New("conflict")
)

// IsRetryable reports whether err is worth retrying at the store level
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConflict)
}
