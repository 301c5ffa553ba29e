package core

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by ConversationStore.Load for unknown threads.
var ErrSessionNotFound = errors.New("session not found")

// ErrStepLimitExceeded is wrapped by the RoutingError raised when a turn
// visits more nodes than its step budget allows.
var ErrStepLimitExceeded = errors.New("step limit exceeded")

// RoutingError is fatal to a turn: an unknown hand-off target, an edge to an
// unregistered node or a runaway loop.
type RoutingError struct {
	Node   string // Node whose outgoing edge failed
	Reason string
	Err    error
}

func (e *RoutingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("routing error at %s: %s: %v", e.Node, e.Reason, e.Err)
	}
	return fmt.Sprintf("routing error at %s: %s", e.Node, e.Reason)
}

func (e *RoutingError) Unwrap() error { return e.Err }

// AdapterFailure wraps a failed language model provider call. It is
// retryable by the assistant node.
type AdapterFailure struct {
	Provider string
	Err      error
}

func (e *AdapterFailure) Error() string {
	return fmt.Sprintf("model adapter %s failed: %v", e.Provider, e.Err)
}

func (e *AdapterFailure) Unwrap() error { return e.Err }

// TurnError is the only error type returned from a turn. The prior
// conversation state of ThreadID is left untouched.
type TurnError struct {
	ThreadID string
	Err      error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed for thread %s: %v", e.ThreadID, e.Err)
}

func (e *TurnError) Unwrap() error { return e.Err }

// IsRoutingError reports whether err wraps a RoutingError.
func IsRoutingError(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}

// IsAdapterFailure reports whether err wraps an AdapterFailure.
func IsAdapterFailure(err error) bool {
	var af *AdapterFailure
	return errors.As(err, &af)
}
