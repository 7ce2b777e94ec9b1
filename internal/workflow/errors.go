package workflow

import "errors"

var (
	// ErrInvalidTransition marks a state change not present in the
	// transition graph, including anything attempted on a terminal state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrForbidden marks an action that is legal in principle but denied
	// for the acting role in the current state and revision cycle.
	ErrForbidden = errors.New("action not permitted for this actor")

	// ErrNotFound marks a reference to a revision cycle that is not the
	// application's current active cycle (typically a stale client).
	ErrNotFound = errors.New("revision cycle not found or no longer active")
)
