package rtc

import (
	"errors"
	"fmt"
)

var (
	ErrLinkClosed         = errors.New("peer link closed")
	ErrNegotiationTimeout = errors.New("negotiation timeout")
)

// NegotiationError wraps a failed operation on one peer link.
type NegotiationError struct {
	Op     string
	Target string
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

func newError(op, target string, err error) *NegotiationError {
	return &NegotiationError{Op: op, Target: target, Err: err}
}
