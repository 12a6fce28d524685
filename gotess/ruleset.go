package gotess

import (
	"fmt"
	"io"
)

// ParentLink names one place a state may hang below: parent state and the
// parent's edge that points down at it.
type ParentLink struct {
	State int
	Edge  int
}

// TreeState is one node of the finished automaton.
type TreeState struct {
	ID               int
	Sid              int   // shape index
	ParentDir        int   // shape edge the tree parent sits behind
	Rules            []int // per tree edge: child state id, DirParent, DirLeft or DirRight
	IsRoot           bool
	IsLive           bool
	IsPossibleParent bool
	PossibleParents  []ParentLink
}

// RuleSet is the finite automaton produced by the generator: the tree-state
// table plus the root state of origin 0.
type RuleSet struct {
	Name   string
	States []TreeState
	Root   int
}

// WriteText serializes the table in the persisted textual form:
//
//	rules "name"
//	root(0)
//	state(0, PARENT, 1, LEFT, ...)
//
// Rule entries are listed in shape-edge order, so a state's PARENT entry sits
// at its ParentDir position.
func (rs *RuleSet) WriteText(out io.Writer) error {
	if _, err := fmt.Fprintf(out, "rules %q\nroot(%d)\n", rs.Name, rs.Root); err != nil {
		return err
	}
	for _, ts := range rs.States {
		n := len(ts.Rules)
		if _, err := fmt.Fprintf(out, "state(%d", ts.Sid); err != nil {
			return err
		}
		for e := 0; e < n; e++ {
			r := ts.Rules[gmod(e-ts.ParentDir, n)]
			var err error
			switch r {
			case DirParent:
				_, err = io.WriteString(out, ", PARENT")
			case DirLeft:
				_, err = io.WriteString(out, ", LEFT")
			case DirRight:
				_, err = io.WriteString(out, ", RIGHT")
			default:
				_, err = fmt.Fprintf(out, ", %d", r)
			}
			if err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, ")\n"); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a parsed table the way the generator would have built it:
// every rule in range, at most one PARENT per state, a defined root.
func (rs *RuleSet) Validate() error {
	if len(rs.States) == 0 {
		return ErrNoRules
	}
	if rs.Root < 0 || rs.Root >= len(rs.States) {
		return ErrBadRoot
	}
	for i := range rs.States {
		ts := &rs.States[i]
		qparent := 0
		for _, r := range ts.Rules {
			switch {
			case r == DirParent:
				qparent++
			case r == DirLeft || r == DirRight:
			case r >= 0 && r < len(rs.States):
			default:
				return ErrBadRule
			}
		}
		if qparent > 1 {
			return ErrMultipleParents
		}
		if (qparent == 0) != ts.IsRoot {
			return ErrBadRule
		}
	}
	return nil
}

// ComputePossibleParents recomputes the possible-parent marking and lists to
// fixpoint: a state is a possible parent iff one of its rules is PARENT and
// some surviving state still lists it as a child.
func (rs *RuleSet) ComputePossibleParents() {
	for i := range rs.States {
		ts := &rs.States[i]
		ts.IsPossibleParent = false
		for _, r := range ts.Rules {
			if r == DirParent {
				ts.IsPossibleParent = true
			}
		}
	}
	for {
		changes := 0
		for i := range rs.States {
			rs.States[i].PossibleParents = nil
		}
		for i := range rs.States {
			ts := &rs.States[i]
			if !ts.IsPossibleParent {
				continue
			}
			for rid, r := range ts.Rules {
				if r >= 0 {
					cs := &rs.States[r]
					cs.PossibleParents = append(cs.PossibleParents, ParentLink{ts.ID, rid})
				}
			}
		}
		for i := range rs.States {
			ts := &rs.States[i]
			if ts.IsPossibleParent && len(ts.PossibleParents) == 0 {
				ts.IsPossibleParent = false
				changes++
			}
		}
		if changes == 0 {
			break
		}
	}
}

func gmod(i, m int) int {
	i %= m
	if i < 0 {
		i += m
	}
	return i
}
