package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

const mystery = gotess.Mystery

// tcell is a lazily materialized cell of the universal cover.  Cells form a
// list through next; they are only freed when the generator is dropped.
type tcell struct {
	next *tcell
	// shape ID in the tiling
	id int
	// degree
	typ int
	// distance from the root
	dist int
	// cached code
	code int
	// direction to the parent in the tree
	parentDir int
	// direction to the OLD parent in the tree
	oldParentDir int
	// direction to anyone closer
	anyNearer int
	// once set, dist is asserted final; a later decrease is a solid error
	isSolid       bool
	distanceFixed bool
	// union-find link; multiple tcells may turn out to be the same cell
	unifiedTo twalker
	// connection table
	move []*tcell
	spin []int
}

// twalker is a directed position: a tile plus an edge index.
type twalker struct {
	at   *tcell
	spin int
}

func (w twalker) plus(k int) twalker { return twalker{w.at, gmod(w.spin+k, w.at.typ)} }

// peek returns the neighbor across the current edge without materializing it.
func (w twalker) peek() *tcell { return w.at.move[w.spin] }

func (w twalker) toSpin(s int) int { return gmod(s-w.spin, w.at.typ) }

// wstep crosses the current edge, materializing the neighbor if needed.
func (g *Gen) wstep(w twalker) twalker {
	g.tmove(w.at, w.spin)
	return twalker{w.at.move[w.spin], w.at.spin[w.spin]}
}

// addstep is wstep with a ufind first; the plain wstep can land on a stale
// tile right after a unification.
func (g *Gen) addstep(w twalker) twalker {
	g.tmove(w.at, w.spin)
	g.ufind(&w)
	return g.wstep(w)
}

func (g *Gen) genTcell(id int) *tcell {
	d := g.tiling.Shapes[id].Size()
	c := &tcell{
		id:           id,
		typ:          d,
		dist:         mystery,
		code:         mystery,
		parentDir:    mystery,
		oldParentDir: mystery,
		anyNearer:    mystery,
		move:         make([]*tcell, d),
		spin:         make([]int, d),
		next:         g.firstTcell,
	}
	c.unifiedTo = twalker{c, 0}
	g.firstTcell = c
	g.tcellcount++
	return c
}

// ufind path-compresses the union-find link, accumulating the spin rotation.
func (g *Gen) ufind(p *twalker) {
	if p.at.unifiedTo.at == p.at {
		return
	}
	p1 := p.at.unifiedTo
	g.ufind(&p1)
	p.at.unifiedTo = p1
	*p = p1.plus(p.spin)
}

func (g *Gen) ufindc(c **tcell) {
	cw := twalker{*c, 0}
	g.ufind(&cw)
	*c = cw.at
}

func (g *Gen) pushUnify(a, b twalker) {
	if a.at.id != b.at.id {
		throwf("queued bad unify")
	}
	g.fixQueue = append(g.fixQueue, func() { g.unify(a, b) })
}

// processFixQueue drains deferred closures.  The outermost call owns the
// drain loop; nested requests return immediately.
func (g *Gen) processFixQueue() {
	if g.inFixing {
		return
	}
	g.inFixing = true
	for len(g.fixQueue) > 0 {
		f := g.fixQueue[0]
		g.fixQueue = g.fixQueue[1:]
		f()
	}
	g.inFixing = false
}

func (g *Gen) connectRaw(p1, p2 twalker) {
	p1.at.move[p1.spin] = p2.at
	p1.at.spin[p1.spin] = p2.spin
	p2.at.move[p2.spin] = p1.at
	p2.at.spin[p2.spin] = p1.spin
}

func (g *Gen) connectAndCheck(p1, p2 twalker) {
	g.ufind(&p1)
	g.ufind(&p2)
	g.connectRaw(p1, p2)
	g.fixQueue = append(g.fixQueue,
		func() { g.checkLoops(p1) },
		func() { g.checkLoops(p2) })
	g.processFixQueue()
}

// tmove follows an edge, materializing the neighbor if absent: the
// combinatorial mode consults the shape's connection record, the numerical
// mode asks the concrete-model oracle.
func (g *Gen) tmove(c *tcell, d int) *tcell {
	if d < 0 || d >= c.typ {
		throwf("wrong d")
	}
	g.movecount++
	if c.move[d] != nil {
		return c.move[d]
	}
	if g.opts.Flags&(gotess.WNumerical|gotess.WKnownStructure) != 0 {
		return g.tmoveNumerical(c, d)
	}
	cd := twalker{c, d}
	g.ufind(&cd)
	co := g.tiling.Shapes[cd.at.id].Connections[cd.spin]
	c1 := g.genTcell(co.Sid)
	g.connectAndCheck(cd, twalker{c1, co.Eid})
	return c1
}

func (g *Gen) tmoveNumerical(c *tcell, d int) *tcell {
	m := g.opts.Concrete
	known := g.opts.Flags&gotess.WKnownStructure != 0

	oc := g.tcellToCell[c]
	d1 := d
	if known {
		d1 = gmod(d1-g.opts.Known.States[m.StateOf(oc)].ParentDir, c.typ)
	}

	oc1, d2 := m.Move(oc, d1)
	c1 := g.cellToTcell[oc1]
	if c1 == nil {
		c1 = g.genTcell(m.ShapeOf(oc1))
		g.cellToTcell[oc1] = c1
		g.tcellToCell[c1] = oc1
		if g.opts.Flags&gotess.WKnownDistances != 0 {
			c1.dist = m.Distance(oc1)
		}
	}

	if known {
		d2 = gmod(d2+g.opts.Known.States[m.StateOf(oc1)].ParentDir, c1.typ)
	}
	g.connectRaw(twalker{c, d}, twalker{c1, d2})

	if g.opts.Flags&gotess.WKnownDistances == 0 {
		g.fixDistances(c)
	}
	g.ensureShorter(twalker{c1, 0})

	if g.opts.Flags&gotess.WNumericalFix != 0 {
		g.numericalFix(twalker{c, d})
		g.numericalFix(g.wstep(twalker{c, d}))
	}
	return c1
}

// checkLoops verifies the vertex to the right of pw: walk around it in both
// directions; a full loop is unified, a one-short loop is closed directly.
func (g *Gen) checkLoops(pw twalker) {
	g.ufind(&pw)
	valence := g.tiling.Shapes[pw.at.id].VertexValence[pw.spin]

	steps := 0
	pwf := pw
	pwb := pw
	for {
		if pwb.peek() == nil {
			break
		}
		pwb = g.wstep(pwb).plus(-1)
		steps++
		if pwb == pwf {
			if steps == valence {
				return
			}
			throwf("vertex valence too small")
		}
		if steps == valence {
			g.pushUnify(pwf, pwb)
			return
		}
	}

	for {
		pwf = pwf.plus(1)
		if pwf.peek() == nil {
			break
		}
		pwf = g.wstep(pwf)
		steps++
		if pwb == pwf {
			if steps == valence {
				return
			}
			throwf("vertex valence too small")
		}
		if steps == valence {
			g.pushUnify(pwf, pwb)
			return
		}
	}

	if steps == valence-1 {
		g.connectAndCheck(pwb, pwf)
		g.fixDistances(pwb.at)
	}
}

// numericalFix is the WNumericalFix variant of checkLoops: the concrete model
// already produced the loop, so closing is the only acceptable outcome.
func (g *Gen) numericalFix(pw twalker) {
	valence := g.tiling.Shapes[pw.at.id].VertexValence[pw.spin]

	steps := 0
	pwf := pw
	pwb := pw
	for {
		if pwb.peek() == nil {
			break
		}
		pwb = g.wstep(pwb).plus(-1)
		steps++
		if pwb == pwf {
			if steps == valence {
				return
			}
			throwf("vertex valence too small")
		}
		if steps == valence {
			throwf("incorrect looping")
		}
	}

	for {
		pwf = pwf.plus(1)
		if pwf.peek() == nil {
			break
		}
		pwf = g.wstep(pwf)
		steps++
		if pwb == pwf {
			if steps == valence {
				return
			}
			throwf("vertex valence too small")
		}
		if steps == valence {
			throwf("incorrect looping")
		}
	}

	if steps == valence-1 {
		g.connectRaw(pwb, pwf)
		g.fixDistances(pwb.at)
	}
}

// unify declares that two walkers are the same cell: merge distances,
// redirect every edge, and point the loser's union-find link at the winner.
func (g *Gen) unify(pw1, pw2 twalker) {
	g.ufind(&pw1)
	g.ufind(&pw2)
	if pw1 == pw2 {
		return
	}
	if pw1.at.unifiedTo.at != pw1.at {
		throwf("not unified to itself")
	}
	if pw2.at.unifiedTo.at != pw2.at {
		throwf("not unified to itself")
	}

	if pw1.at == pw2.at {
		if pw1.spin != pw2.spin {
			throwf("called unify with self and wrong direction")
		}
		return
	}

	if pw1.at.id != pw2.at.id {
		throwf("unifying two cells of different id's")
	}

	sh := &g.tiling.Shapes[pw1.at.id]
	if gmod(pw1.spin-pw2.spin, sh.CycleLength) != 0 {
		throwf("unification spin disagrees with cycle_length")
	}

	g.unifyDistances(pw1.at, pw2.at, pw2.spin-pw1.spin)

	for i := 0; i < sh.Size(); i++ {
		if pw2.peek() == nil {
			// no need to reconnect
		} else if pw1.peek() == nil {
			g.connectAndCheck(pw1, g.wstep(pw2))
		} else {
			g.pushUnify(g.wstep(pw1), g.wstep(pw2))
			ss := g.wstep(pw1)
			g.connectAndCheck(pw1, g.wstep(pw2))
			g.connectAndCheck(pw1, ss)
		}
		pw1 = pw1.plus(1)
		pw2 = pw2.plus(1)
	}
	pw2.at.unifiedTo = pw1.plus(-pw2.spin)
	g.tunified++
	if klog.V(3) {
		klog.Infof("unified %p into %p, %d total", pw2.at, pw1.at, g.tunified)
	}
	g.fixDistances(pw1.at)
}
