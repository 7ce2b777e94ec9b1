package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// expectedTransitions mirrors the canonical table; the test walks the full
// state x state grid so any drift in the compiled-in graph fails loudly.
var expectedTransitions = map[State]map[State]bool{
	StateDraft:                 {StateRepReview: true},
	StateRepReview:             {StateRepRevisionRequested: true, StateDACReview: true, StateRejected: true},
	StateRepRevisionRequested:  {StateRepReview: true},
	StateDACReview:             {StateDACRevisionsRequested: true, StateApproved: true, StateRejected: true},
	StateDACRevisionsRequested: {StateDACReview: true},
	StateApproved:              {StateClosed: true, StateRevoked: true},
	StateRejected:              {},
	StateClosed:                {},
	StateRevoked:               {},
}

func TestCanTransitionClosure(t *testing.T) {
	for _, from := range States {
		for _, to := range States {
			want := expectedTransitions[from][to]
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNoSelfTransitions(t *testing.T) {
	for _, s := range States {
		assert.Falsef(t, CanTransition(s, s), "self transition allowed for %s", s)
	}
}

func TestTerminalStates(t *testing.T) {
	terminals := map[State]bool{StateRejected: true, StateClosed: true, StateRevoked: true}

	for _, s := range States {
		assert.Equalf(t, terminals[s], IsTerminal(s), "IsTerminal(%s)", s)
	}

	for terminal := range terminals {
		for _, to := range States {
			assert.Falsef(t, CanTransition(terminal, to), "terminal %s -> %s", terminal, to)
		}
	}
}

func TestUnknownStateIsRejected(t *testing.T) {
	assert.False(t, IsValidState(State("REP_REVISION")))
	assert.False(t, CanTransition(State("REP_REVISION"), StateRepReview))
	assert.False(t, IsTerminal(State("REP_REVISION")))
}

func TestInRevision(t *testing.T) {
	assert.True(t, InRevision(StateRepRevisionRequested))
	assert.True(t, InRevision(StateDACRevisionsRequested))
	assert.False(t, InRevision(StateDraft))
	assert.False(t, InRevision(StateDACReview))
}
