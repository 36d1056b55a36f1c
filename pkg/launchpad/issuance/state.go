package issuance

import "github.com/pkg/errors"

var ErrInvalidStateTransition = errors.New("invalid issuance state transition")

type State uint8

const (
	StateNew               State = iota // not yet built
	StateBuilt                          // built and signed by the mint
	StateSignatureVerified              // every required signature present and valid
	StateSubmitted                      // sent to the network
	StateConfirmed                      // applied by the ledger
	StateFailed                         // rejected by the ledger
	StateUnknown                        // submitted, outcome ambiguous
)

var validTransitions = map[State][]State{
	StateNew:               {StateBuilt},
	StateBuilt:             {StateSignatureVerified, StateFailed},
	StateSignatureVerified: {StateSubmitted, StateFailed},
	StateSubmitted:         {StateConfirmed, StateFailed, StateUnknown},
	StateUnknown:           {StateConfirmed, StateFailed},
}

// CanTransitionTo reports whether next may follow s.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateConfirmed, StateFailed:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateBuilt:
		return "built"
	case StateSignatureVerified:
		return "signature_verified"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateUnknown:
		return "unknown"
	}
	return "unknown"
}

// Transition moves b to next, or returns ErrInvalidStateTransition.
func (b *Built) Transition(next State) error {
	if !b.State.CanTransitionTo(next) {
		return errors.Wrapf(ErrInvalidStateTransition, "%s -> %s", b.State, next)
	}
	b.State = next
	return nil
}
