package counter

import (
	"errors"
	"fmt"
)

var (
	// ErrContention the swap did not succeed within the attempt budget or the
	// deadline, nothing was applied and the operation may be retried
	ErrContention = errors.New("contention")
	// ErrUnsupportedOperation the operation name is unknown, nothing was touched
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// PersistError the new value is in the coordination cache but writing it to
// the item store failed. The operation must not be retried: it is applied.
type PersistError struct {
	ItemID  string
	Value   int64
	Applied bool
	Err     error
}

func (p *PersistError) Error() string {
	return fmt.Sprintf("persist counter %s=%d fail,applied:%v: %v", p.ItemID, p.Value, p.Applied, p.Err)
}

// Unwrap returns the store error
func (p *PersistError) Unwrap() error {
	return p.Err
}
