package services

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when a linkage rewrite would create, or walk into, a
// parent chain longer than the supported ceiling.
var ErrCycle = errors.New("scene chain exceeds ancestor ceiling")

// PreconditionError reports a navigation or sequence request that the source
// scene cannot satisfy.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed on %s: %s", e.Field, e.Reason)
}
