package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// beatsExhaustive breaks parent-candidate ties the hard way: climb both
// candidates toward the root in lockstep and compare the spins of the
// parents they meet; the first difference decides.
func (g *Gen) beatsExhaustive(w1, w2 twalker) bool {
	for {
		w1 = g.wstep(w1)
		w2 = g.wstep(w2)

		if w1.at.dist == 0 {
			return w1.spin > w2.spin
		}

		g.beSolid(w1.at)
		g.beSolid(w2.at)
		g.handleDistanceErrors()

		sw1 := g.getParentDir(&w1)
		sw2 := g.getParentDir(&w2)

		d1 := w1.toSpin(sw1.spin)
		d2 := w2.toSpin(sw2.spin)
		if d1 != d2 {
			return d1 < d2
		}

		w1 = sw1
		w2 = sw2
	}
}

// getParentDir decides which neighbor becomes the parent of cw's tile.  The
// cheap rule prefers the smallest edge residue mod the cycle length; when two
// candidates share a residue, the exhaustive tie-break rescues determinism.
func (g *Gen) getParentDir(cw *twalker) twalker {
	c := cw.at
	if c.parentDir != mystery {
		return twalker{c, c.parentDir}
	}
	bestd := -1

	g.beSolid(c)

	oc := c

	if c.dist > 0 {
		sh := &g.tiling.Shapes[c.id]
		n := sh.Size()
		k := sh.CycleLength
		var nearer []int

		beats := func(i, old int) bool {
			if old == -1 {
				return true
			}
			if i%k != old%k {
				return i%k < old%k
			}
			return true
		}

		d := c.dist

		for i := 0; i < n; i++ {
			g.ensureShorter(cw.plus(i))
			c1 := g.tmove(c, i)
			g.beSolid(c1)
			if c1.dist < d {
				nearer = append(nearer, i)
			}
			g.ufind(cw)
			if d != cw.at.dist || oc != cw.at {
				return g.getParentDir(cw)
			}
			c = cw.at
		}

		klog.V(3).Infof("nearer = %v n=%d k=%d", nearer, n, k)

		failed := false
		if g.opts.Flags&gotess.WParentAlways != 0 {
			failed = true
		}

		if !failed {
			// celebrity identification problem
			for _, ne := range nearer {
				if beats(ne, bestd) {
					bestd = ne
				}
			}
			for _, ne := range nearer {
				if ne != bestd && beats(ne, bestd) {
					failed = true
				}
			}
		}

		if failed {
			if g.opts.Flags&gotess.WParentNever != 0 {
				g.debuglist = []twalker{{c, 0}}
				throwf("still confused")
			}

			g.hardParents++
			bestd = nearer[0]

			for _, ne1 := range nearer {
				if ne1 != bestd && g.beatsExhaustive(twalker{c, ne1}, twalker{c, bestd}) {
					bestd = ne1
				}
			}
		}

		if bestd == -1 {
			g.debuglist = []twalker{{c, 0}}
			throwf("should not happen")
		}
	}

	klog.V(3).Infof("set parent_dir to %d", bestd)
	c.parentDir = bestd

	if c.oldParentDir != mystery && c.oldParentDir != bestd && c == oc {
		// the old direction is now known worse; that is signal
		c.anyNearer = c.oldParentDir
		g.findNewShortcuts(c, c.dist, c, bestd, 0)
	}

	g.parentUpdates++

	return twalker{c, bestd}
}
