package libtess

import (
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// shortcut records that two edge-walks from the same start meet: pre retraces
// the old nearer-path outward, post is the alternate path, delta relates
// their end spins.  Once learned it is replayed on every tile of the same
// shape, collapsing lazily duplicated cells before they cause more trouble.
type shortcut struct {
	pre     []int
	post    []int
	sample  *tcell
	delta   int
	lastDir int
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reverseInts(v []int) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func (g *Gen) shortcutFound(c *tcell, walkers, walkers2 []twalker, walkerdir, walkerdir2 []int, wpos int) {
	var pre []int
	for i := wpos; i >= 1; i-- {
		pre = append(pre, walkerdir[i])
	}
	reverseInts(pre)

	var post []int
	for i := len(walkers2) - 1; i >= 1; i-- {
		post = append(post, walkerdir2[i])
	}
	reverseInts(post)

	delta := walkers[wpos].toSpin(walkers2[len(walkers2)-1].spin)

	for _, s := range g.shortcuts[c.id] {
		if intsEqual(s.pre, pre) && intsEqual(s.post, post) {
			klog.V(3).Infof("already knew that %v ~ %v", pre, post)
			return
		}
	}

	klog.V(2).Infof("new shortcut found, pre = %v post = %v of type %d", pre, post, c.id)

	if len(pre) > 500 {
		g.debuglist = []twalker{{c, 0}}
		throwf("shortcut too long")
	}

	sh := &shortcut{
		pre:     pre,
		post:    post,
		sample:  c,
		delta:   delta,
		lastDir: c.anyNearer,
	}
	g.shortcuts[c.id] = append(g.shortcuts[c.id], sh)

	for c1 := g.firstTcell; c1 != nil; c1 = c1.next {
		if c1.id == c.id {
			g.lookForShortcutsAt(c1, sh)
		}
	}
}

// findNewShortcuts reacts to a solid error: the distance of c is about to
// drop to d via newdir.  BFS backward along anyNearer from both c and alt
// until the frontiers meet; the two meeting paths become a shortcut.
func (g *Gen) findNewShortcuts(c *tcell, d int, alt *tcell, newdir int, delta int) {
	if g.solidErrors == 0 {
		g.debuglist = nil
	}
	g.solidErrorsList = append(g.solidErrorsList, twalker{c, 0})
	g.solidErrors++
	g.allSolidErrors++
	g.checkTimeout()
	if g.opts.Flags&gotess.WNoShortcut != 0 {
		return
	}
	if g.opts.Flags&gotess.WKnownDistances != 0 {
		return
	}

	g.ufindc(&c)
	klog.V(2).Infof("solid %p changes %d to %d", c, c.dist, d)

	if newdir == c.anyNearer {
		klog.V(2).Infof("same direction")
		return
	}

	if c.dist == mystery {
		throwf("find_new_shortcuts with unknown distance")
	}

	seen := map[*tcell]int{c: 0}
	walkers := []twalker{{c, 0}}
	walkerdir := []int{-1}

	for j := 0; j < len(walkers); j++ {
		w := walkers[j]
		if w.at.dist == 0 {
			break
		}
		for s := 0; s < w.at.typ; s++ {
			w1 := w.plus(s)
			if w1.peek() != nil && w1.spin == w.at.anyNearer {
				if _, ok := seen[w1.peek()]; !ok {
					seen[w1.peek()] = len(walkers)
					walkers = append(walkers, g.wstep(w1))
					walkerdir = append(walkerdir, s)
				}
			}
		}
	}

	seen2 := map[*tcell]bool{}
	c.dist = d
	c.anyNearer = gmod(newdir, c.typ)
	g.fixDistances(c)

	walkers2 := []twalker{{alt, gmod(delta, alt.typ)}}
	walkerdir2 := []int{-1}
	for j := 0; j < len(walkers2); j++ {
		w := walkers2[j]
		if w.at.dist == 0 {
			break
		}
		for s := 0; s < w.at.typ; s++ {
			w1 := w.plus(s)
			g.ufind(&w1)
			if w1.spin != w.at.anyNearer {
				continue
			}
			if w1.peek() == nil {
				continue
			}
			if seen2[w1.peek()] {
				break
			}
			seen2[w1.peek()] = true
			walkers2 = append(walkers2, g.wstep(w1))
			walkerdir2 = append(walkerdir2, s)
			if wpos, ok := seen[w1.peek()]; ok {
				g.shortcutFound(c, walkers, walkers2, walkerdir, walkerdir2, wpos)
				return
			}
		}
	}
}

// lookForShortcutsAt replays one learned shortcut at c.  The smart mode walks
// the pre-path and then the post-path and unifies the two ends; it returns
// without unifying where the pre-path meets a missing edge, or where the
// post-path meets one while it can no longer reach a shorter distance, unless
// the matching LessSmart flag is set.  The plain mode insists the whole
// pre-path already exists.
func (g *Gen) lookForShortcutsAt(c *tcell, sh *shortcut) {
	if c.dist <= 0 {
		return
	}

	if g.opts.Flags&gotess.WNoSmartShortcuts == 0 {
		tw0 := twalker{c, 0}
		tw := twalker{c, 0}
		g.ufind(&tw)
		g.ufind(&tw0)

		for _, v := range sh.pre {
			tw = tw.plus(v)
			if tw.peek() == nil && g.opts.Flags&gotess.WLessSmartRetrace == 0 {
				return
			}
			g.ufind(&tw)
			tw = g.wstep(tw)
			g.calcDistances(tw.at)
		}

		moreSteps := len(sh.post)
		d := g.tiling.Shapes[c.id].CycleLength
		if gmod(sh.lastDir, d) < gmod(c.anyNearer, d) {
			moreSteps--
		}

		tw = tw.plus(sh.delta)

		for it := len(sh.post) - 1; it >= 0; it-- {
			v := sh.post[it]
			g.ufind(&tw)
			if tw.peek() == nil && tw.at.dist+moreSteps > c.dist && g.opts.Flags&gotess.WLessSmartAdvance == 0 {
				return
			}
			tw = g.wstep(tw)
			g.calcDistances(tw.at)
			moreSteps--
			tw = tw.plus(-v)
		}

		g.processFixQueue()
		if tw.at.dist < c.dist {
			klog.V(2).Infof("smart shortcut updated %d to %d", c.dist, tw.at.dist)
		}
		g.pushUnify(tw, tw0)
		g.processFixQueue()
		return
	}

	tw0 := twalker{c, 0}
	tw := twalker{c, 0}
	g.ufind(&tw)
	g.ufind(&tw0)

	for _, v := range sh.pre {
		tw = tw.plus(v)
		if tw.peek() == nil {
			return
		}
		if tw.peek().dist != tw.at.dist-1 {
			return
		}
		g.ufind(&tw)
		tw = g.wstep(tw)
	}

	var npath []*tcell
	g.ufind(&tw0)
	for _, v := range sh.post {
		npath = append(npath, tw0.at)
		tw0 = tw0.plus(v)
		g.ufind(&tw0)
		tw0 = g.wstep(tw0)
		g.calcDistances(tw0.at)
	}
	npath = append(npath, tw0.at)

	tw1 := tw.plus(sh.delta)
	if tw1.at.id != tw0.at.id {
		klog.Errorf("improper shortcut")
	} else {
		g.pushUnify(tw1, tw0)
	}
	g.processFixQueue()
	for _, t := range npath {
		g.ufindc(&t)
		g.fixDistances(t)
	}
}

func (g *Gen) lookForShortcuts(c *tcell) {
	if c.dist > 0 {
		for i := 0; i < len(g.shortcuts[c.id]); i++ {
			g.lookForShortcutsAt(c, g.shortcuts[c.id][i])
		}
	}
}
