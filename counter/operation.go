// Package counter applies increment, decrement and reset operations to the
// counter kept in a timeline item. Concurrent updates are linearized by the
// compare-and-swap of a cache.CoordinationCache, the item store is a slower
// mirror written after every successful swap.
package counter

import (
	"fmt"
)

// Operation is a counter update
type Operation string

// Supported operations, the values are the payloads of the custom menu items
const (
	OpIncrement Operation = "increment"
	OpDecrement Operation = "decrement"
	OpReset     Operation = "reset"
)

// Operations lists the supported operations in menu order
var Operations = []Operation{OpIncrement, OpDecrement, OpReset}

// ParseOperation parses the operation name, the match is exact
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedOperation, name)
}

// Apply computes the new counter value from v
func (p Operation) Apply(v int64) int64 {
	switch p {
	case OpIncrement:
		return v + 1
	case OpDecrement:
		return v - 1
	default:
		return 0
	}
}

func (p Operation) String() string {
	return string(p)
}
