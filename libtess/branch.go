package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// tsinfo is a walker position expressed in tree-state terms: state id plus
// the spin relative to the state's canonical walker.
type tsinfo struct {
	id   int
	spin int
}

func (g *Gen) getTsinfo(tw *twalker) tsinfo {
	d, id := g.getCode(tw)
	var spin int
	if d == -1 {
		spin = tw.spin
	} else {
		spin = gmod(tw.spin-d, tw.at.typ)
	}
	return tsinfo{id, spin}
}

func (g *Gen) getRule(tw twalker, s tsinfo) int {
	r := g.treestates[s.id].rules
	if len(r) == 0 {
		g.important = append(g.important, twalker{tw.at, 0})
		throwRetry("unknown rule in get_rule")
	}
	return r[s.spin]
}

// The deadstack registry is an ordered set of tsinfo sequences; a hash seen
// twice proves the boundary walk between two live children closes up.
func deadstackComparator(a, b interface{}) int {
	A := a.([]tsinfo)
	B := b.([]tsinfo)
	n := len(A)
	if len(B) < n {
		n = len(B)
	}
	for i := 0; i < n; i++ {
		if d := A[i].id - B[i].id; d != 0 {
			return d
		}
		if d := A[i].spin - B[i].spin; d != 0 {
			return d
		}
	}
	return len(A) - len(B)
}

// pushDeadstack records the tree-states popped while unwinding LEFT/RIGHT
// rules from w in the given direction, stopping at a root or a live child.
func (g *Gen) pushDeadstack(hash *[]tsinfo, w twalker, tsi tsinfo, dir int) {
	*hash = append(*hash, tsi)

	for {
		g.ufind(&w)
		if len(*hash) > 10000 {
			throwf("deadstack overflow")
		}
		tsi.spin += dir
		w = w.plus(dir)
		ts := g.treestates[tsi.id]
		if ts.isRoot {
			return
		}
		if tsi.spin == 0 || tsi.spin == len(ts.rules) {
			w = g.wstep(w)
			tsi = g.getTsinfo(&w)
			*hash = append(*hash, tsi)
		} else {
			if len(ts.rules) == 0 {
				throwRetry("empty rule")
			}
			r := ts.rules[tsi.spin]
			if r > 0 && g.treestates[r].isLive {
				return
			}
		}
	}
}

type conflictID struct {
	spin, expected int
	obsDir, obsID  int
}

// verifiedTreewalk is treewalk plus the check that the far side of the
// crossing carries the expected code; a mismatch is a branch conflict.
func (g *Gen) verifiedTreewalk(tw *twalker, id, dir int) {
	if id >= 0 {
		tw1 := g.wstep(*tw)
		d, obs := g.getCode(&tw1)
		if obs != id || d != tw1.spin {
			g.handleDistanceErrors()

			conflict := conflictID{g.wstep(*tw).spin, id, d, obs}

			if g.opts.Flags&gotess.WExamineAll != 0 || !g.branchConflictsSeen[conflict] {
				g.branchConflictsSeen[conflict] = true
				g.important = append(g.important, twalker{tw.at, 0})
				klog.V(2).Infof("branch conflict %v found", conflict)
			} else {
				klog.V(2).Infof("branch conflict %v found again", conflict)
			}
			g.debuglist = []twalker{*tw, g.wstep(*tw)}
			panic(verifyAdvanceFailed{})
		}
	}
	g.treewalk(tw, dir)
}

// examineBranch proves that the two boundary walks descending between
// adjacent live children of a state meet in a repeated deadstack.
func (g *Gen) examineBranch(id, left, right int) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(verifyAdvanceFailed); ok {
				if g.opts.Flags&gotess.WExamineOnce != 0 {
					throwRetry("advance failed")
				}
				return
			}
			panic(r)
		}
	}()

	rg := g.treestates[id].giver
	klog.V(2).Infof("need to examine branches (%d,%d) of %d", left, right, id)

	wl := rg.plus(left)
	wr := rg.plus(left + 1)

	var lstack, rstack []twalker

	steps := 0
	for {
		g.handleDistanceErrors()
		steps++
		if steps > g.opts.MaxExamineBranch {
			g.debuglist = []twalker{rg.plus(left), wl, wr}
			if len(g.branchConflictsSeen) > 0 {
				// may be not a real problem, but caused by incorrect detection of live branches
				throwRetry("max_examine_branch exceeded after a conflict")
			}
			throwf("max_examine_branch exceeded")
		}

		tsl := g.getTsinfo(&wl)
		tsr := g.getTsinfo(&wr)

		rl := g.getRule(wl, tsl)
		rr := g.getRule(wr, tsr)

		switch {
		case rl == gotess.DirRight && rr == gotess.DirLeft && len(lstack) == 0 && len(rstack) == 0:
			var hash []tsinfo
			g.pushDeadstack(&hash, wl, tsl, -1)
			hash = append(hash, tsinfo{-1, wl.at.dist - wr.at.dist})
			g.pushDeadstack(&hash, wr, tsr, +1)
			if _, found := g.verifiedBranches.Get(hash); found {
				return
			}
			g.verifiedBranches.Put(hash, nil)

			g.verifiedTreewalk(&wl, rl, -1)
			g.verifiedTreewalk(&wr, rr, +1)

		case rl == gotess.DirRight && len(lstack) > 0 && lstack[len(lstack)-1] == g.wstep(wl):
			lstack = lstack[:len(lstack)-1]
			g.verifiedTreewalk(&wl, rl, -1)

		case rr == gotess.DirLeft && len(rstack) > 0 && rstack[len(rstack)-1] == g.wstep(wr):
			rstack = rstack[:len(rstack)-1]
			g.verifiedTreewalk(&wr, rr, +1)

		case rl == gotess.DirLeft:
			lstack = append(lstack, wl)
			g.verifiedTreewalk(&wl, rl, -1)

		case rr == gotess.DirRight:
			rstack = append(rstack, wr)
			g.verifiedTreewalk(&wr, rr, +1)

		case rl != gotess.DirRight:
			g.verifiedTreewalk(&wl, rl, -1)

		case rr != gotess.DirRight:
			g.verifiedTreewalk(&wr, rr, +1)

		default:
			throwf("cannot advance while examining")
		}
	}
}

// findSingleLiveBranch marks the descent below a root state with a single
// live child: side classifications near it cannot use the fast climb.
func (g *Gen) findSingleLiveBranch(at twalker) {
	g.handleDistanceErrors()
	g.rulesIterationFor(&at)
	_, id := g.getCode(&at)
	t := at.at.typ
	r := g.treestates[id].rules
	q := 0
	if len(r) == 0 {
		g.important = append(g.important, twalker{at.at, 0})
		throwRetry("no giver in find_single_live_branch")
	}
	for i := 0; i < t; i++ {
		if r[i] >= 0 && g.treestates[r[i]].isLive {
			q++
		}
	}
	for i := 0; i < t; i++ {
		if r[i] < 0 {
			continue
		}
		g.singleLiveBranchCloseToRoot[at.at] = true
		if !g.treestates[r[i]].isLive || q == 1 {
			at1 := g.wstep(at.plus(i))
			g.findSingleLiveBranch(at1)
		}
	}
}
