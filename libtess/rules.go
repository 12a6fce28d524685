package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// treestate is one state of the automaton under construction.
type treestate struct {
	id               int
	known            bool
	rules            []int
	giver            twalker
	sid              int
	parentDir        int
	whereSeen        twalker
	code             codeT
	isLive           bool
	isPossibleParent bool
	isRoot           bool
	possibleParents  []gotess.ParentLink
}

// genRule computes the per-edge rule vector for the canonical walker of one
// tree-state: edge 0 is the parent, children get their child code, and the
// leftovers resolve to LEFT/RIGHT from the code's side bits.
func (g *Gen) genRule(cwmain twalker, id int) []int {
	var cids []int
	for a := 0; a < cwmain.at.typ; a++ {
		front := cwmain.plus(a)
		c1 := g.wstep(front)
		g.beSolid(c1.at)
		if a == 0 && cwmain.at.dist != 0 {
			cids = append(cids, gotess.DirParent)
			continue
		}
		if c1.at.dist <= cwmain.at.dist {
			cids = append(cids, gotess.DirUnknown)
			continue
		}
		d1, id1 := g.getCode(&c1)
		if g.tmove(c1.at, d1) != cwmain.at || c1.at.spin[d1] != front.spin {
			cids = append(cids, gotess.DirUnknown)
			continue
		}
		cids = append(cids, id1)
	}

	for i := range cids {
		if cids[i] != gotess.DirUnknown {
			continue
		}
		val := g.treestates[id].code.classif[i+1]
		if val < 2 || val >= 8 {
			g.debuglist = []twalker{cwmain}
			klog.V(2).Infof("i = %d val = %d", i, val)
			throwRetry("wrong code in gen_rule")
		}
		if val&1 != 0 {
			cids[i] = gotess.DirRight
		} else {
			cids[i] = gotess.DirLeft
		}
	}

	return cids
}

// rulesIterationFor computes the rule of cw's tree-state.  A disagreement
// with the stored rule pinpoints, position by position, where the analyzer
// is too coarse; extend it there and retry.
func (g *Gen) rulesIterationFor(cw *twalker) {
	g.ufind(cw)
	d, id := g.getCode(cw)
	cwmain := twalker{cw.at, d}
	g.ufind(&cwmain)

	cids := g.genRule(cwmain, id)
	ts := g.treestates[id]

	if !ts.known {
		ts.known = true
		ts.rules = cids
		ts.giver = cwmain
		ts.sid = cwmain.at.id
		ts.parentDir = cwmain.spin
		ts.isRoot = cw.at.dist == 0
		return
	}
	if intsEqual(ts.rules, cids) {
		return
	}

	g.handleDistanceErrors()
	r := ts.rules
	klog.V(2).Infof("merging %v vs %v", r, cids)

	mismatches := 0
	for z := range cids {
		if r[z] == cids[z] {
			continue
		}
		if r[z] < 0 || cids[z] < 0 {
			g.debuglist = []twalker{cwmain, ts.giver}
			throwf("neg rule mismatch")
		}

		c1 := g.treestates[r[z]].code.classif
		c2 := g.treestates[cids[z]].code.classif

		if len(c1) != len(c2) {
			throwf("length mismatch")
		}
		for k := range c1 {
			if c1[k] == gotess.CIgnore || c2[k] == gotess.CIgnore {
				continue
			}
			if c1[k] != c2[k] {
				klog.V(2).Infof("code mismatch (%d vs %d at position %d of %d)", c1[k], c2[k], k, len(c1))
				klog.V(2).Infof("cellcount = %d-%d codes discovered = %d", g.tcellcount, g.tunified, len(g.treestates))

				g.extendAnalyzer(cwmain, z, k, mismatches)
				mismatches++

				g.debuglist = []twalker{cwmain, ts.giver}

				if g.opts.Flags&gotess.WConflictAll == 0 {
					throwRetry("mismatch error")
				}
			}
		}
	}

	g.debuglist = []twalker{cwmain, ts.giver}

	if mismatches != 0 {
		throwRetry("mismatch error")
	}

	throwf("no mismatches?!")
}

// minimizeRules merges behavior-equivalent tree-states by partition
// refinement, then renumbers everything.
func (g *Gen) minimizeRules() {
	g.statesPremini = len(g.treestates)
	klog.V(2).Infof("minimizing %d states...", g.statesPremini)
	nextID := len(g.treestates)

	newID := make([]int, nextID)
	newIDOf := map[aidT]int{}
	newIDs := 0

	for id := 0; id < nextID; id++ {
		aid := g.getAid(g.treestates[id].giver)
		if _, ok := newIDOf[aid]; !ok {
			newIDOf[aid] = newIDs
			newIDs++
		}
		newID[id] = newIDOf[aid]
	}

	lastNewIDs := 0

	for newIDs > lastNewIDs && newIDs < nextID {
		lastNewIDs = newIDs

		hashes := map[string]int{}
		newIDs = 0

		lastNewID := make([]int, nextID)
		copy(lastNewID, newID)

		for id := 0; id < nextID; id++ {
			hash := make([]byte, 0, 4*(1+len(g.treestates[id].rules)))
			hash = appendInt(hash, lastNewID[id])
			for _, r := range g.treestates[id].rules {
				if r >= 0 {
					hash = appendInt(hash, lastNewID[r])
				} else {
					hash = appendInt(hash, r)
				}
			}
			h := string(hash)
			if _, ok := hashes[h]; !ok {
				hashes[h] = newIDs
				newIDs++
			}
			newID[id] = hashes[h]
		}
	}

	klog.V(2).Infof("final new_ids = %d / %d", newIDs, nextID)

	oldID := make([]int, newIDs)
	for i := range oldID {
		oldID[i] = -1
	}
	for i := 0; i < nextID; i++ {
		if oldID[newID[i]] == -1 {
			oldID[newID[i]] = i
		}
	}

	for i := 0; i < newIDs; i++ {
		g.treestates[i] = g.treestates[oldID[i]]
	}
	g.treestates = g.treestates[:newIDs]
	for i := 0; i < newIDs; i++ {
		g.treestates[i].id = i
	}
	for _, ts := range g.treestates {
		for ri, r := range ts.rules {
			if r >= 0 {
				ts.rules[ri] = newID[r]
			}
		}
	}

	for k, v := range g.codeToID {
		g.codeToID[k] = newID[v]
	}
	g.ruleRoot = newID[g.ruleRoot]
}

func appendInt(b []byte, v int) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (g *Gen) findPossibleParents() {
	for _, ts := range g.treestates {
		ts.isPossibleParent = false
		for _, r := range ts.rules {
			if r == gotess.DirParent {
				ts.isPossibleParent = true
			}
		}
	}
	for {
		changes := 0
		for _, ts := range g.treestates {
			ts.possibleParents = nil
		}
		for _, ts := range g.treestates {
			if !ts.isPossibleParent {
				continue
			}
			for rid, r := range ts.rules {
				if r >= 0 {
					g.treestates[r].possibleParents = append(g.treestates[r].possibleParents, gotess.ParentLink{State: ts.id, Edge: rid})
				}
			}
		}
		for _, ts := range g.treestates {
			if ts.isPossibleParent && len(ts.possibleParents) == 0 {
				ts.isPossibleParent = false
				changes++
			}
		}
		if changes == 0 {
			break
		}
	}

	pp := 0
	for _, ts := range g.treestates {
		if ts.isPossibleParent {
			pp++
		}
	}
	klog.V(2).Infof("%d of %d states are possible_parents", pp, len(g.treestates))
}
