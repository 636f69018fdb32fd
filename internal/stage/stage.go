// Package stage defines the fixed board stages and the legal moves between
// them. Every stage mutation in the engine goes through Check before writing.
package stage

import "fmt"

const (
	Briefings    = "briefings"
	Ready        = "ready"
	Testing      = "testing"
	Implementing = "implementing"
	Review       = "review"
	Probing      = "probing"
	Done         = "done"
	Blocked      = "blocked"
)

// All lists the stages in board order.
var All = []string{Briefings, Ready, Testing, Implementing, Review, Probing, Done, Blocked}

// transitions is the single source of truth for legal moves. Done has no
// outgoing edges.
var transitions = map[string][]string{
	Briefings:    {Ready, Blocked},
	Ready:        {Testing, Implementing, Probing, Blocked, Briefings},
	Testing:      {Review, Blocked},
	Implementing: {Review, Blocked},
	Probing:      {Ready, Done, Blocked},
	Review:       {Done, Testing, Implementing, Probing, Blocked},
	Blocked:      {Ready},
	Done:         {},
}

// claimable stages accept new claims. Briefings is still being shaped,
// blocked needs unblocking first, done is terminal.
var claimable = map[string]bool{
	Ready:        true,
	Testing:      true,
	Implementing: true,
	Review:       true,
	Probing:      true,
}

// TransitionError reports an illegal stage move.
type TransitionError struct {
	From string
	To   string
}

func (e TransitionError) Error() string {
	if !IsValid(e.From) {
		return fmt.Sprintf("unknown stage %q", e.From)
	}
	if !IsValid(e.To) {
		return fmt.Sprintf("unknown stage %q", e.To)
	}
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// IsValid reports whether id names a known stage.
func IsValid(id string) bool {
	_, ok := transitions[id]
	return ok
}

// IsValidTransition reports whether from -> to is a legal move.
func IsValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns a TransitionError unless from -> to is legal.
func Check(from, to string) error {
	if !IsValidTransition(from, to) {
		return TransitionError{From: from, To: to}
	}
	return nil
}

// ValidNextStages returns the legal targets from a stage. The result is a
// copy; callers may mutate it.
func ValidNextStages(from string) []string {
	next, ok := transitions[from]
	if !ok {
		return nil
	}
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// AcceptsClaims reports whether an item in this stage can be claimed.
func AcceptsClaims(id string) bool {
	return claimable[id]
}

// IsTerminal reports whether a stage has no outgoing transitions.
func IsTerminal(id string) bool {
	next, ok := transitions[id]
	return ok && len(next) == 0
}
