// Package treemap materializes cells on demand from a finished rule table.
// Each cell carries its tree-state; following an edge either allocates the
// child the table names, climbs to a randomly chosen possible parent, or
// slides along the parent's children ring for LEFT/RIGHT.
package treemap

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/hypertiles/gotess/gotess"
)

// Cell is one materialized cell of the tessellation.
type Cell struct {
	State int // tree-state id
	Dist  int // distance from the root

	move []*Cell
	spin []int
}

// Type returns the cell's degree.
func (c *Cell) Type() int { return len(c.move) }

// Peek returns the neighbor across edge d if it is already materialized.
func (c *Cell) Peek(d int) *Cell { return c.move[d] }

// Spin returns the reverse edge index of a materialized edge.
func (c *Cell) Spin(d int) int { return c.spin[d] }

// Map lazily walks a rule table.
type Map struct {
	tiling *gotess.Tiling
	rs     *gotess.RuleSet
	rng    *rand.Rand
	origin *Cell
}

// New builds a map over the given table.  The seed fixes the random
// possible-parent choices.
func New(t *gotess.Tiling, rs *gotess.RuleSet, seed int64) (*Map, error) {
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	m := &Map{
		tiling: t,
		rs:     rs,
		rng:    rand.New(rand.NewSource(seed)),
	}
	m.origin = m.gen(rs.Root, 0)
	return m, nil
}

// Origin returns the root cell.
func (m *Map) Origin() *Cell { return m.origin }

func (m *Map) gen(s, d int) *Cell {
	t := m.tiling.Shapes[m.rs.States[s].Sid].Size()
	return &Cell{
		State: s,
		Dist:  d,
		move:  make([]*Cell, t),
		spin:  make([]int, t),
	}
}

func connect(a *Cell, ad int, b *Cell, bd int) {
	a.move[ad] = b
	a.spin[ad] = bd
	b.move[bd] = a
	b.spin[bd] = ad
}

func (m *Map) rule(c *Cell, d int) int {
	return m.rs.States[c.State].Rules[d]
}

// Move follows edge d of c, materializing the neighbor if needed.
func (m *Map) Move(c *Cell, d int) (*Cell, error) {
	if c.move[d] != nil {
		return c.move[d], nil
	}
	r := m.rule(c, d)
	switch {
	case r >= 0:
		c1 := m.gen(r, c.Dist+1)
		connect(c, d, c1, 0)
		return c1, nil

	case r == gotess.DirParent:
		choices := m.rs.States[c.State].PossibleParents
		if len(choices) == 0 {
			return nil, errors.New("no possible parents")
		}
		sel := choices[m.rng.Intn(len(choices))]
		c1 := m.gen(sel.State, c.Dist-1)
		connect(c, d, c1, sel.Edge)
		return c1, nil

	case r == gotess.DirLeft || r == gotess.DirRight:
		delta := -1
		rev := gotess.DirRight
		if r == gotess.DirRight {
			delta = 1
			rev = gotess.DirLeft
		}
		cur, dir := c, gmod(d+delta, c.Type())
		for steps := 0; ; steps++ {
			if steps > 10000 {
				return nil, errors.New("runaway sideways walk")
			}
			r1 := m.rule(cur, dir)
			if r1 == rev {
				connect(c, d, cur, dir)
				return cur, nil
			}
			if r1 == r || r1 == gotess.DirParent || r1 >= 0 {
				next, err := m.Move(cur, dir)
				if err != nil {
					return nil, err
				}
				back := cur.spin[dir]
				cur = next
				dir = gmod(back+delta, cur.Type())
			} else {
				return nil, errors.New("bad rule in sideways walk")
			}
		}

	default:
		return nil, errors.New("bad rule")
	}
}

func gmod(i, m int) int {
	i %= m
	if i < 0 {
		i += m
	}
	return i
}
