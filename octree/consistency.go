package octree

import (
	"fmt"
)

// InconsistencyError describes the first parent/child pair found to violate the
// monotonicity invariant: a parent never has more observations nor a lower occupancy
// than any of its children.
type InconsistencyError struct {
	Parent Key
	Child  Key
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent tree: node %s and its child %s: %s", e.Parent, e.Child, e.Reason)
}

// CheckConsistency traverses the internal nodes depth-first and returns an
// *InconsistencyError for the first child that violates the invariant.
func (t *Tree) CheckConsistency() error {
	var inconsistency *InconsistencyError
	t.Walk(t.Root(), func(id NodeID) bool {
		if inconsistency != nil {
			return false
		}
		parent := t.nodes[id]
		if parent.firstChild == NoNode {
			return false
		}
		for i := NodeID(0); i < 8; i++ {
			child := t.nodes[parent.firstChild+i]
			switch {
			case parent.observations > child.observations:
				inconsistency = &InconsistencyError{
					Parent: parent.key,
					Child:  child.key,
					Reason: fmt.Sprintf("observation count %d exceeds child's %d", parent.observations, child.observations),
				}
			case parent.occupancy < child.occupancy:
				inconsistency = &InconsistencyError{
					Parent: parent.key,
					Child:  child.key,
					Reason: fmt.Sprintf("occupancy %g is below child's %g", parent.occupancy, child.occupancy),
				}
			}
			if inconsistency != nil {
				return false
			}
		}
		return true
	})
	if inconsistency != nil {
		return inconsistency
	}
	return nil
}

// IsConsistent returns true if no parent/child pair of t violates the monotonicity invariant.
func IsConsistent(t *Tree) bool {
	return t.CheckConsistency() == nil
}
