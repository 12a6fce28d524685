package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// treewalk steps cw along the boundary of the spanning tree: descend if cw
// points at a child, otherwise climb through the parent, then rotate.
func (g *Gen) treewalk(cw *twalker, delta int) {
	cwd := g.getParentDir(cw)
	if *cw == cwd {
		*cw = g.addstep(*cw)
	} else {
		cw1 := g.addstep(*cw)
		cwd := g.getParentDir(&cw1)
		if cwd == cw1 {
			*cw = cw1
		}
	}
	*cw = cw.plus(delta)
}

func (g *Gen) clearSidecache() {
	if len(g.sidecache) > 0 {
		g.sidecache = make(map[twalker]int)
	}
}

// getSide reports whether the subtree behind `what` hangs left (negative),
// right (positive) or on the path (0) relative to its parent edge.  The fast
// mode climbs both endpoints toward the root; if that ends at the root the
// slow mode walks around the tree boundary instead.
func (g *Gen) getSide(what twalker) int {
	side := g.opts.Flags&gotess.WNoSidecache == 0
	fast := g.opts.Flags&gotess.WSlowSide == 0

	if side {
		if res, ok := g.sidecache[what]; ok {
			return res
		}
	}

	res := 99
	steps := 0

	if fast {
		w := what
		tw := g.wstep(what)
		adv := func(cw *twalker) {
			*cw = g.getParentDir(cw)
			if cw.peek().dist >= cw.at.dist {
				g.handleDistanceErrors()
				klog.V(2).Infof("get_parent_dir error: %d :: %d", cw.at.dist, cw.peek().dist)
				throwf("get_parent_dir error")
			}
			*cw = g.wstep(*cw)
		}
		for w.at != tw.at {
			steps++
			if steps > g.opts.MaxGetside {
				g.debuglist = []twalker{what, w, tw}
				throwf("qsidefreeze")
			}
			g.ufind(&w)
			g.ufind(&tw)
			if w.at.dist == 0 && tw.at.dist == 0 {
				break // distinct roots; only the walk around the tree can tell
			}
			if w.at.dist > tw.at.dist {
				adv(&w)
			} else if w.at.dist < tw.at.dist {
				adv(&tw)
			} else {
				adv(&w)
				adv(&tw)
			}
		}

		if w.at.dist != 0 && !g.singleLiveBranchCloseToRoot[w.at] {
			wd := g.getParentDir(&w)
			g.ufind(&tw)
			res = wd.toSpin(w.spin) - wd.toSpin(tw.spin)
		}
	}

	// failed to solve this the simple way (ended at the root) -- go around the tree
	wl := what
	wr := wl
	toWhat := g.wstep(what)
	ws := what
	g.treewalk(&ws, 0)
	if ws == toWhat {
		res = 0
	}

	for res == 99 {
		g.handleDistanceErrors()
		steps++
		if steps > g.opts.MaxGetside {
			g.debuglist = []twalker{what, toWhat, wl, wr}
			if g.parentUpdates != 0 {
				throwRetry("xsidefreeze")
			}
			throwf("xsidefreeze")
		}
		gl := wl.at.dist <= wr.at.dist
		gr := wl.at.dist >= wr.at.dist
		if gl {
			g.treewalk(&wl, -1)
			if wl == toWhat {
				res = 1
			}
		}
		if gr {
			g.treewalk(&wr, +1)
			if wr == toWhat {
				res = -1
			}
		}
	}

	if side {
		g.sidecache[what] = res
	}
	return res
}
