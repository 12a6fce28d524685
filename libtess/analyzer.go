package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// aidT keys analyzers: shape id plus the parent spin reduced mod the shape's
// cycle length.
type aidT struct {
	id   int
	spin int
}

// analyzer is a spread pattern: a tree of walker positions relative to a
// root walker, grown on demand until codes distinguish every conflict.
// Nodes are never removed, so reusing an analyzer across extensions is safe.
type analyzer struct {
	spread   []twalker
	parentID []int
	spin     []int
}

func (g *Gen) analyzerAddStep(a *analyzer, pid, s int) {
	cw := a.spread[pid]
	cw = cw.plus(s)
	g.tmove(cw.at, cw.spin)
	g.ufind(&cw)
	cw = g.wstep(cw)
	a.spread = append(a.spread, cw)
	a.parentID = append(a.parentID, pid)
	a.spin = append(a.spin, s)
}

func (g *Gen) getAid(cw twalker) aidT {
	g.ufind(&cw)
	ide := cw.at.id
	return aidT{ide, gmod(cw.toSpin(0), g.tiling.Shapes[ide].CycleLength)}
}

func (g *Gen) getAnalyzer(cw twalker) *analyzer {
	aid := g.getAid(cw)
	a := g.analyzers[aid]
	if a == nil {
		a = &analyzer{}
		g.analyzers[aid] = a
	}
	if len(a.spread) == 0 {
		a.spread = append(a.spread, cw)
		a.parentID = append(a.parentID, -1)
		a.spin = append(a.spin, -1)
		for i := 0; i < cw.at.typ; i++ {
			g.analyzerAddStep(a, 0, i)
		}
	}
	return a
}

// spreadAt instantiates an analyzer at a concrete walker: the first entry is
// cw itself, every later entry steps off its recorded parent entry.
func (g *Gen) spreadAt(a *analyzer, cw twalker) []twalker {
	n := len(a.spread)
	res := make([]twalker, 0, n)
	res = append(res, cw)
	for i := 1; i < n; i++ {
		r := res[a.parentID[i]]
		g.ufind(&r)
		res[a.parentID[i]] = r
		r1 := r.plus(a.spin[i])
		g.tmove(r1.at, r1.spin)
		g.ufind(&r1)
		res = append(res, g.wstep(r1))
	}
	return res
}

// extendAnalyzer splices the conflicting neighbor's path (entry id of the
// neighbor's analyzer) into the analyzer of cwTarget so that the two codes
// that disagreed become distinguishable at the top level.
func (g *Gen) extendAnalyzer(cwTarget twalker, dir, id, mism int) {
	g.ufind(&cwTarget)
	klog.V(2).Infof("extend called, dir = %d id = %d", dir, id)
	cwConflict := g.wstep(cwTarget.plus(dir))
	aTarget := g.getAnalyzer(cwTarget)
	aConflict := g.getAnalyzer(cwConflict)

	var idsToAdd []int
	k := id
	for k != 0 {
		idsToAdd = append(idsToAdd, aConflict.spin[k])
		k = aConflict.parentID[k]
	}

	gid := 1 + dir
	added := false
	for len(idsToAdd) > 0 {
		spin := idsToAdd[len(idsToAdd)-1]
		idsToAdd = idsToAdd[:len(idsToAdd)-1]
		nextGid := -1
		for i := range aTarget.parentID {
			if aTarget.parentID[i] == gid && aTarget.spin[i] == spin {
				nextGid = i
			}
		}
		if nextGid == -1 {
			nextGid = len(aTarget.parentID)
			g.analyzerAddStep(aTarget, gid, spin)
			added = true
		}
		gid = nextGid
	}
	if mism == 0 && !added {
		// in rare cases this happens due to unification or something
		throwRetry("no extension")
	}
}

// codeT identifies a tree-state: the analyzer key plus the classification of
// every spread position.
type codeT struct {
	aid     aidT
	classif []int
}

func (c codeT) key() string {
	b := make([]byte, 0, len(c.classif)+2)
	b = append(b, byte(c.aid.id), byte(c.aid.spin))
	for _, x := range c.classif {
		b = append(b, byte(x))
	}
	return string(b)
}

func (g *Gen) idAtSpin(cw twalker) codeT {
	var res codeT
	g.ufind(&cw)
	res.aid = g.getAid(cw)
	a := g.getAnalyzer(cw)
	sprawl := g.spreadAt(a, cw)
	for id, cs := range sprawl {
		g.beSolid(cs.at)
		g.beSolid(cw.at)
		g.ufind(&cw)
		g.ufind(&cs)
		var x int
		pid := a.parentID[id]
		if pid > -1 && res.classif[pid] != gotess.CChild {
			x = gotess.CIgnore
		} else if id == 0 {
			x = gotess.CChild
		} else {
			child := false
			if cs.at.dist != 0 {
				csd := g.getParentDir(&cs)
				child = cs == csd
			}
			if child {
				x = gotess.CChild
			} else {
				cs2 := g.wstep(cs)
				g.ufind(&cs)
				g.ufind(&cs2)
				g.beSolid(cs2.at)
				g.fixDistances(cs.at)
				y := cs.at.dist - cs.peek().dist

				if g.opts.Flags&gotess.WNoRelativeDistance != 0 {
					x = gotess.CEqual
				} else if y == 1 {
					x = gotess.CNephew
				} else if y == 0 {
					x = gotess.CEqual
				} else if y == -1 {
					x = gotess.CUncle
				} else {
					throwf("distance problem y=%d dist=%d dist2=%d", y, cs.at.dist, cs2.at.dist)
				}
				gs := g.getSide(cs)
				if gs == 0 && x == gotess.CUncle {
					x = gotess.CParent
				}
				if gs > 0 {
					x++
				}
			}
		}
		res.classif = append(res.classif, x)
	}
	return res
}

// getCode returns (canonical parent spin, tree-state id) for cw's tile,
// interning a fresh tree-state when the code is new.
func (g *Gen) getCode(cw *twalker) (int, int) {
	c := cw.at
	if c.code != mystery && c.parentDir != mystery {
		bestd := c.parentDir
		if bestd == -1 {
			bestd = 0
		}
		return bestd, c.code
	}

	g.beSolid(c)

	var cd twalker
	if c.dist == 0 {
		cd = twalker{c, 0}
	} else {
		cd = g.getParentDir(cw)
	}
	if cd.at != c {
		g.ufind(cw)
	}

	v := g.idAtSpin(cd)
	key := v.key()

	if id, ok := g.codeToID[key]; ok {
		cd.at.code = id
		return cd.spin, id
	}

	id := len(g.treestates)
	g.codeToID[key] = id
	if cd.at.code != mystery && (cd.at.code != id || cd.at.parentDir != cd.spin) {
		throwRetry("exit from get_code")
	}
	cd.at.code = id

	g.treestates = append(g.treestates, &treestate{
		id:        id,
		code:      v,
		whereSeen: *cw,
		isLive:    true,
	})

	return cd.spin, id
}
