package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// fixDistances relaxes distances outward from c.  Distances only ever
// decrease, so this terminates; a decrease on a solid tile first runs
// shortcut discovery and is later raised as a retry at the next checkpoint.
func (g *Gen) fixDistances(c *tcell) {
	if g.opts.Flags&gotess.WBfs != 0 {
		for {
			if g.inFixing {
				return
			}
			g.ufindc(&c)
			if c.dist != mystery {
				return
			}
			if g.tcellcount >= g.opts.MaxTcellCount {
				throwSurrender("max_tcellcount exceeded")
			}
			if len(g.bfsQueue) == 0 {
				throwf("empty bfs queue")
			}
			c1 := g.bfsQueue[0]
			g.bfsQueue = g.bfsQueue[1:]
			g.ufindc(&c1)
			for i := 0; i < c1.typ; i++ {
				c2 := g.tmove(c1, i)
				if c2.dist == mystery {
					c2.dist = c1.dist + 1
					g.bfsQueue = append(g.bfsQueue, c2)
				}
			}
		}
	}

	c.distanceFixed = true
	if g.opts.Flags&gotess.WKnownDistances != 0 {
		return
	}

	q := []*tcell{c}
	for qi := 0; qi < len(q); qi++ {
		c = q[qi]
	restart:
		for i := 0; i < c.typ; i++ {
			if c.move[i] == nil {
				continue
			}
			g.ufindc(&c)

			ci1 := twalker{c.move[i], c.spin[i]}
			ci := twalker{c, i}

			if g.processEdge(ci, ci1) {
				goto restart
			}
			if g.processEdge(ci1, ci) {
				q = append(q, ci1.at)
			}
		}
	}
}

func (g *Gen) processEdge(tgtw, srcw twalker) bool {
	tgt := tgtw.at
	src := srcw.at
	newD := src.dist + 1
	if tgt.dist > newD {
		if tgt.isSolid {
			g.findNewShortcuts(tgt, newD, tgt, tgtw.spin, 0)
		}
		g.ufind(&tgtw)
		tgt = tgtw.at
		tgt.dist = newD
		g.clearSidecache()
		tgt.anyNearer = tgtw.spin
		g.removeParentdir(tgt)
		return true
	}
	return false
}

func (g *Gen) calcDistances(c *tcell) {
	if c.dist != mystery {
		return
	}
	g.fixDistances(c)
}

func (g *Gen) unifyDistances(c1, c2 *tcell, delta int) {
	d1 := c1.dist
	d2 := c2.dist
	d := d1
	if d2 < d {
		d = d2
	}
	if c1.isSolid && d != d1 {
		g.solidErrors++
		g.findNewShortcuts(c1, d, c2, c2.anyNearer-delta, +delta)
		g.removeParentdir(c1)
	}
	if d != d1 {
		g.fixDistances(c1)
	}
	c1.dist = d
	if c2.isSolid && d != d2 {
		g.solidErrors++
		g.findNewShortcuts(c2, d, c1, c1.anyNearer+delta, -delta)
		g.removeParentdir(c2)
	}
	if d != d2 {
		g.fixDistances(c2)
	}
	c2.dist = d
	fixed := c1.distanceFixed || c2.distanceFixed
	c1.distanceFixed = fixed
	c2.distanceFixed = fixed
	solid := c1.isSolid || c2.isSolid
	c1.isSolid = solid
	c2.isSolid = solid
}

// handleDistanceErrors is the checkpoint that converts buffered solid errors
// into a single retry, so every code path unwinds at a known place.
func (g *Gen) handleDistanceErrors() {
	b := g.solidErrors != 0
	g.solidErrors = 0
	if b && !g.noErrors {
		g.clearSidecache()
		if g.opts.Flags&gotess.WAlwaysClean != 0 {
			g.cleanData()
		}
		g.debuglist = g.solidErrorsList
		g.solidErrorsList = nil
		throwRetry("solid error")
	}
}

// beSolid makes sure c.dist is known and final.
func (g *Gen) beSolid(c *tcell) {
	if c.isSolid {
		return
	}
	if g.tcellcount >= g.opts.MaxTcellCount {
		throwSurrender("max_tcellcount exceeded")
	}
	g.ufindc(&c)
	g.calcDistances(c)
	g.ufindc(&c)
	g.lookForShortcuts(c)
	g.ufindc(&c)
	if c.dist == mystery {
		klog.V(2).Infof("set solid but no dist %p", c)
		g.debuglist = []twalker{{c, 0}}
		throwf("set solid but no dist")
	}
	c.isSolid = true
	if c.dist > 0 && g.opts.Flags&gotess.WNearSolid == 0 && c.anyNearer >= 0 && c.anyNearer < c.typ {
		if c1 := c.move[c.anyNearer]; c1 != nil {
			g.beSolid(c1)
		}
	}
}

func (g *Gen) removeParentdir(c *tcell) {
	g.clearSidecache()
	if c.parentDir != 0 {
		c.oldParentDir = c.parentDir
	}
	c.parentDir = mystery
	c.code = mystery
	for i := 0; i < c.typ; i++ {
		c1 := c.move[i]
		if c1 == nil {
			continue
		}
		if c1.parentDir != 0 {
			c1.oldParentDir = c1.parentDir
		}
		c1.parentDir = mystery
		c1.code = mystery
	}
}

// ensureShorter materializes the neighbor across cw if the prior run's table
// says it is closer to the root.  WKnownDistances only.
func (g *Gen) ensureShorter(cw twalker) {
	if g.opts.Flags&gotess.WKnownDistances == 0 {
		return
	}
	m := g.opts.Concrete
	oc := g.tcellToCell[cw.at]
	d1 := gmod(cw.spin-g.opts.Known.States[m.StateOf(oc)].ParentDir, cw.at.typ)
	c1, _ := m.Move(oc, d1)
	if m.Distance(c1) < cw.at.dist {
		g.tmove(cw.at, cw.spin)
	}
}
