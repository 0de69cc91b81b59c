// Package biometric implements the user-presence challenge that may let a
// user past the passcode screen.
//
// A challenge never fails hard: policy errors surface as Unavailable and
// user cancellation as Failure, so the caller always falls back to manual
// passcode entry.
package biometric

import (
	"context"
	"sync/atomic"
)

// Result is the outcome of a single challenge.
type Result int

const (
	Unavailable Result = iota
	Success
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unavailable"
	}
}

// Gate is the presence-challenge contract.
type Gate interface {
	// IsAvailable checks capability and enrollment without prompting.
	IsAvailable(ctx context.Context) bool

	// Challenge blocks until the user completes or cancels the check.
	Challenge(ctx context.Context, reason string) Result
}

// Disabled is a Gate on devices without any presence capability.
type Disabled struct{}

func (Disabled) IsAvailable(context.Context) bool { return false }

func (Disabled) Challenge(context.Context, string) Result { return Unavailable }

// serialized allows at most one outstanding challenge on the wrapped Gate.
type serialized struct {
	inner    Gate
	inFlight atomic.Bool
}

// Serialize wraps g so that a challenge started while another is still
// outstanding returns Failure immediately.
func Serialize(g Gate) Gate {
	return &serialized{inner: g}
}

func (s *serialized) IsAvailable(ctx context.Context) bool {
	return s.inner.IsAvailable(ctx)
}

func (s *serialized) Challenge(ctx context.Context, reason string) Result {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Failure
	}
	defer s.inFlight.Store(false)

	return s.inner.Challenge(ctx, reason)
}
