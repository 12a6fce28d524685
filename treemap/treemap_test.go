package treemap

import (
	"testing"

	"github.com/hypertiles/gotess/gotess"
	"github.com/hypertiles/gotess/libtess"
)

func genRules(t *testing.T, tiling *gotess.Tiling) *gotess.RuleSet {
	t.Helper()
	rs, _, err := libtess.Generate(tiling, gotess.DefaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

// Walking down any tree-path must produce cells whose dist equals the path
// length, and every materialized edge must stay symmetric.
func TestTreePathDistances(t *testing.T) {
	tiling := gotess.NewRegularTiling(7, 3)
	rs := genRules(t, tiling)

	m, err := New(tiling, rs, 1)
	if err != nil {
		t.Fatal(err)
	}

	frontier := []*Cell{m.Origin()}
	for depth := 1; depth <= 4; depth++ {
		var next []*Cell
		for _, c := range frontier {
			for d := 0; d < c.Type(); d++ {
				if rs.States[c.State].Rules[d] < 0 {
					continue
				}
				c1, err := m.Move(c, d)
				if err != nil {
					t.Fatal(err)
				}
				if c1.Dist != depth {
					t.Fatalf("child at depth %d has dist %d", depth, c1.Dist)
				}
				if c1.Peek(c.Spin(d)) != c {
					t.Fatal("child edge not symmetric")
				}
				next = append(next, c1)
			}
		}
		frontier = next
	}
}

func TestSidewaysConnections(t *testing.T) {
	tiling := gotess.NewRegularTiling(7, 3)
	rs := genRules(t, tiling)

	m, err := New(tiling, rs, 1)
	if err != nil {
		t.Fatal(err)
	}

	// materialize one full ring of children, then resolve every LEFT/RIGHT
	// edge among them
	o := m.Origin()
	var ring []*Cell
	for d := 0; d < o.Type(); d++ {
		c, err := m.Move(o, d)
		if err != nil {
			t.Fatal(err)
		}
		ring = append(ring, c)
	}
	for _, c := range ring {
		for d := 0; d < c.Type(); d++ {
			r := rs.States[c.State].Rules[d]
			if r != gotess.DirLeft && r != gotess.DirRight {
				continue
			}
			c1, err := m.Move(c, d)
			if err != nil {
				t.Fatal(err)
			}
			if dd := c1.Dist - c.Dist; dd < -1 || dd > 1 {
				t.Fatalf("sideways edge joins dist %d to %d", c.Dist, c1.Dist)
			}
		}
	}
}

func TestParentChoice(t *testing.T) {
	tiling := gotess.NewRegularTiling(7, 3)
	rs := genRules(t, tiling)

	m, err := New(tiling, rs, 7)
	if err != nil {
		t.Fatal(err)
	}

	var s int
	found := false
	for _, ts := range rs.States {
		if !ts.IsRoot && len(ts.PossibleParents) > 0 {
			s = ts.ID
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no state with possible parents")
	}

	c := m.gen(s, 5)
	p, err := m.Move(c, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Dist != 4 {
		t.Fatalf("parent has dist %d, want 4", p.Dist)
	}
	link := false
	for _, pp := range rs.States[s].PossibleParents {
		if pp.State == p.State && c.Peek(0) == p && c.Spin(0) == pp.Edge {
			link = true
		}
	}
	if !link {
		t.Fatal("parent choice not among the possible parents")
	}
}
