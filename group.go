package rewind

import (
	"fmt"
	"slices"
	"strings"
)

type (
	// group is the shared membership set behind Stack.Join. Members are
	// kept in join order, which fixes the fan-out order
	group struct {
		members []*Stack
	}

	// MemberError reports the failure of one group member's local
	// operation during a fan-out
	MemberError struct {
		Err error
		ID  StackID
	}

	// FanoutError reports a partially failed group fan-out. Every member
	// was attempted; Failures lists the ones whose local operation
	// failed
	FanoutError struct {
		Failures []*MemberError
		Members  int
	}
)

func newGroup(s *Stack) *group {
	return &group{members: []*Stack{s}}
}

// merge unions two groups into one transitively closed set and repoints
// every member at it
func (g *group) merge(other *group) {
	if g == other {
		return
	}
	for _, m := range other.members {
		if !slices.Contains(g.members, m) {
			g.members = append(g.members, m)
		}
	}
	for _, m := range g.members {
		m.grp = g
	}
}

// fanout applies an operation to every member exactly once, in join
// order. Failures do not stop the sweep; they are collected into a
// FanoutError so callers can see which members failed and which
// succeeded
func (g *group) fanout(fn func(*Stack) error) error {
	var failures []*MemberError
	for _, m := range g.members {
		if err := fn(m); err != nil {
			failures = append(failures, &MemberError{ID: m.id, Err: err})
		}
	}
	if len(failures) > 0 {
		return &FanoutError{Failures: failures, Members: len(g.members)}
	}
	return nil
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("stack %s: %s", e.ID.Join(":"), e.Err)
}

func (e *MemberError) Unwrap() error {
	return e.Err
}

func (e *FanoutError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return fmt.Sprintf(
		"group fan-out failed for %d of %d members: %s",
		len(e.Failures), e.Members, strings.Join(parts, "; "),
	)
}

func (e *FanoutError) Unwrap() []error {
	res := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		res[i] = f
	}
	return res
}
