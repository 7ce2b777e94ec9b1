package workflow

// State is the lifecycle status of a data access application.
type State string

const (
	StateDraft                   State = "DRAFT"
	StateRepReview               State = "INSTITUTIONAL_REP_REVIEW"
	StateRepRevisionRequested    State = "INSTITUTIONAL_REP_REVISION_REQUESTED"
	StateDACReview               State = "DAC_REVIEW"
	StateDACRevisionsRequested   State = "DAC_REVISIONS_REQUESTED"
	StateRejected                State = "REJECTED"
	StateApproved                State = "APPROVED"
	StateClosed                  State = "CLOSED"
	StateRevoked                 State = "REVOKED"
)

// transitions is the complete legal transition graph. A state missing from
// the map, or a target missing from its list, means the transition is
// illegal. Terminal states have no entry.
var transitions = map[State][]State{
	StateDraft:                 {StateRepReview},
	StateRepReview:             {StateRepRevisionRequested, StateDACReview, StateRejected},
	StateRepRevisionRequested:  {StateRepReview},
	StateDACReview:             {StateDACRevisionsRequested, StateApproved, StateRejected},
	StateDACRevisionsRequested: {StateDACReview},
	StateApproved:              {StateClosed, StateRevoked},
}

// States lists every application state.
var States = []State{
	StateDraft,
	StateRepReview,
	StateRepRevisionRequested,
	StateDACReview,
	StateDACRevisionsRequested,
	StateRejected,
	StateApproved,
	StateClosed,
	StateRevoked,
}

// CanTransition reports whether moving from one state to another is legal.
// Self-transitions are illegal; terminal states permit nothing.
func CanTransition(from, to State) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state has no outbound transitions.
func IsTerminal(s State) bool {
	_, ok := transitions[s]
	return !ok && IsValidState(s)
}

// IsValidState reports whether s is a member of the state enum.
func IsValidState(s State) bool {
	for _, v := range States {
		if v == s {
			return true
		}
	}
	return false
}

// InRevision reports whether the state is one of the revision-requested
// states, i.e. whether an active revision cycle is meaningful right now.
func InRevision(s State) bool {
	return s == StateRepRevisionRequested || s == StateDACRevisionsRequested
}
