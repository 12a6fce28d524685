package libtess

import (
	"strings"
	"testing"

	"github.com/hypertiles/gotess/gotess"
)

func generateOrDie(t *testing.T, tiling *gotess.Tiling) (*Gen, *gotess.RuleSet) {
	t.Helper()
	g, err := NewGen(tiling, gotess.DefaultOpts())
	if err != nil {
		t.Fatal(err)
	}
	rs, err := g.Run()
	if err != nil {
		t.Fatalf("%v (%s)", err, g.Status())
	}
	return g, rs
}

// checkArena verifies the graph-level invariants on every representative
// tile: symmetric edges, the triangle inequality across them, anyNearer
// pointing one unit closer, and closed vertex cycles.
func checkArena(t *testing.T, g *Gen) {
	t.Helper()
	for c := g.firstTcell; c != nil; c = c.next {
		if c.unifiedTo.at != c {
			continue
		}
		for i := 0; i < c.typ; i++ {
			c1 := c.move[i]
			if c1 == nil {
				continue
			}
			e := c.spin[i]
			if c1.move[e] != c || c1.spin[e] != i {
				t.Fatalf("edge (%p,%d) not symmetric", c, i)
			}
			if c.dist != mystery && c1.dist != mystery {
				d := c.dist - c1.dist
				if d < -1 || d > 1 {
					t.Fatalf("distance jump %d across an edge", d)
				}
			}
		}
		if c.isSolid && c.dist > 0 && c.anyNearer >= 0 && c.anyNearer < c.typ {
			if c1 := c.move[c.anyNearer]; c1 != nil && c1.dist != c.dist-1 {
				t.Fatalf("any_nearer points at dist %d, want %d", c1.dist, c.dist-1)
			}
		}
		for i := 0; i < c.typ; i++ {
			checkVertexCycle(t, g, twalker{c, i})
		}
	}
}

// checkVertexCycle walks (+1, wstep)^valence around the right vertex of w;
// if the whole cycle is materialized it must return to w.
func checkVertexCycle(t *testing.T, g *Gen, w twalker) {
	t.Helper()
	valence := g.tiling.Shapes[w.at.id].VertexValence[w.spin]
	cw := w
	g.ufind(&cw)
	start := cw
	for s := 0; s < valence; s++ {
		cw = cw.plus(1)
		if cw.peek() == nil {
			return // open vertex, nothing to check
		}
		cw = g.wstep(cw)
		g.ufind(&cw)
	}
	if cw != start {
		t.Fatalf("vertex cycle of valence %d did not close", valence)
	}
}

func checkRuleSet(t *testing.T, tiling *gotess.Tiling, rs *gotess.RuleSet) {
	t.Helper()
	if err := rs.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, ts := range rs.States {
		if len(ts.Rules) != tiling.Shapes[ts.Sid].Size() {
			t.Fatalf("state %d: %d rules for a %d-gon", ts.ID, len(ts.Rules), tiling.Shapes[ts.Sid].Size())
		}
		for _, r := range ts.Rules {
			if r == gotess.DirParent && len(ts.PossibleParents) == 0 {
				t.Fatalf("state %d has a PARENT rule but no possible parents", ts.ID)
			}
		}
		if !ts.IsRoot && ts.Rules[0] != gotess.DirParent {
			t.Fatalf("state %d: rule 0 is %d, want PARENT", ts.ID, ts.Rules[0])
		}
	}
}

func TestHeptagonal(t *testing.T) {
	tiling := gotess.NewRegularTiling(7, 3)
	g, rs := generateOrDie(t, tiling)

	if n := len(rs.States); n < 1 || n >= 10 {
		t.Fatalf("got %d states, want a small table", n)
	}
	if c := g.Counters(); c.Tries > 3 {
		t.Fatalf("took %d iterations, want at most 3", c.Tries)
	}
	for _, ts := range rs.States {
		if !ts.IsPossibleParent {
			t.Fatalf("state %d is not a possible parent", ts.ID)
		}
		qparent := 0
		for _, r := range ts.Rules {
			if r == gotess.DirParent {
				qparent++
			}
		}
		if ts.IsRoot {
			if qparent != 0 {
				t.Fatal("root state with a PARENT rule")
			}
		} else if qparent != 1 {
			t.Fatalf("state %d has %d PARENT rules", ts.ID, qparent)
		}
	}
	checkRuleSet(t, tiling, rs)
	checkArena(t, g)
}

func TestPentagonal(t *testing.T) {
	tiling := gotess.NewRegularTiling(5, 4)
	g, rs := generateOrDie(t, tiling)

	if n := len(rs.States); n < 1 || n >= 20 {
		t.Fatalf("got %d states", n)
	}
	checkRuleSet(t, tiling, rs)
	checkArena(t, g)
}

func TestOrder3Heptagonal(t *testing.T) {
	tiling := gotess.NewRegularTiling(3, 7)
	g, rs := generateOrDie(t, tiling)
	checkRuleSet(t, tiling, rs)
	checkArena(t, g)
	t.Logf("{3,7}: %d states, %d solid errors, %d shortcuts for shape 0",
		len(rs.States), g.Counters().AllSolidErrors, g.ShortcutCount(0))
}

func TestTriheptagonal(t *testing.T) {
	tiling := gotess.NewTriheptagonal()
	g, rs := generateOrDie(t, tiling)

	if c := g.Counters(); c.StatesPremini < len(rs.States) {
		t.Fatalf("premini %d below final %d", c.StatesPremini, len(rs.States))
	}
	sids := map[int]bool{}
	for _, ts := range rs.States {
		sids[ts.Sid] = true
	}
	if !sids[0] || !sids[1] {
		t.Fatal("expected states for both shapes")
	}
	checkRuleSet(t, tiling, rs)
	checkArena(t, g)
}

func TestBudgetSurrender(t *testing.T) {
	opts := gotess.DefaultOpts()
	opts.MaxTcellCount = 40

	g, err := NewGen(gotess.NewRegularTiling(7, 3), opts)
	if err != nil {
		t.Fatal(err)
	}
	rs, err := g.Run()
	if err == nil {
		t.Fatal("expected a surrender")
	}
	s, ok := err.(*Surrender)
	if !ok {
		t.Fatalf("got %T (%v), want Surrender", err, err)
	}
	if !strings.Contains(s.Reason, "max_tcellcount exceeded") {
		t.Fatalf("wrong reason: %s", s.Reason)
	}
	if rs != nil {
		t.Fatal("partial table published after surrender")
	}
}

func TestRoundTrip(t *testing.T) {
	tiling := gotess.NewRegularTiling(7, 3)
	_, rs := generateOrDie(t, tiling)

	b := strings.Builder{}
	if err := rs.WriteText(&b); err != nil {
		t.Fatal(err)
	}

	back, err := ParseRules(b.String())
	if err != nil {
		t.Fatal(err)
	}
	if back.Root != rs.Root || len(back.States) != len(rs.States) {
		t.Fatalf("parsed %d states root %d, want %d root %d", len(back.States), back.Root, len(rs.States), rs.Root)
	}
	for i := range rs.States {
		a, b := &rs.States[i], &back.States[i]
		if a.Sid != b.Sid || a.ParentDir != b.ParentDir || a.IsRoot != b.IsRoot || !intsEqual(a.Rules, b.Rules) {
			t.Fatalf("state %d differs after round trip", i)
		}
		if len(a.PossibleParents) != len(b.PossibleParents) {
			t.Fatalf("state %d: possible parents differ after round trip", i)
		}
		for j := range a.PossibleParents {
			if a.PossibleParents[j] != b.PossibleParents[j] {
				t.Fatalf("state %d: possible parent %d differs", i, j)
			}
		}
	}
}

func TestMinimizerIdempotent(t *testing.T) {
	g, rs := generateOrDie(t, gotess.NewRegularTiling(7, 3))

	g.minimizeRules()
	again := g.exportRules()

	if len(again.States) != len(rs.States) {
		t.Fatalf("second minimize changed state count %d -> %d", len(rs.States), len(again.States))
	}
	for i := range rs.States {
		if !intsEqual(rs.States[i].Rules, again.States[i].Rules) {
			t.Fatalf("second minimize changed rules of state %d", i)
		}
	}
}
