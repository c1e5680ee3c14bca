package host

import (
	"errors"
	"fmt"
)

// ErrIllegalPhase matches every *IllegalPhaseError.
var ErrIllegalPhase = errors.New("host: operation not allowed in current phase")

// IllegalPhaseError reports a kernel operation attempted outside the phase
// that allows it.
type IllegalPhaseError struct {
	Op    string
	Phase Phase
	Want  Phase
}

func (e *IllegalPhaseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("host: %s is only allowed during %s, binding is in %s", e.Op, e.Want, e.Phase)
}

func (e *IllegalPhaseError) Is(target error) bool {
	return target == ErrIllegalPhase
}
