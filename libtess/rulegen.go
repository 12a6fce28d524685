// Package libtess generates strict tree rules for arbitrary 2D tessellations:
// given a combinatorial tiling descriptor it produces a finite automaton that
// enumerates every cell of the universal cover exactly once along a spanning
// tree.  The tiling is materialized lazily as a graph of tcells; cells that
// turn out to be the same are unified, shortest-path distances are maintained
// through those unifications, and a per-shape analyzer is refined until every
// branch of the spanning tree verifies consistently.
package libtess

import (
	"fmt"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/hypertiles/gotess/gotess"
)

// Gen is one generator run.  All caches and tables hang off it so a restart
// is a clear, not a reconstruction.
type Gen struct {
	tiling *gotess.Tiling
	opts   gotess.Opts

	firstTcell *tcell
	tcellcount int
	tunified   int
	movecount  int64

	fixQueue []func()
	inFixing bool

	tOrigin   []twalker
	important []twalker
	cq        []twalker

	solidErrors     int
	allSolidErrors  int
	solidErrorsList []twalker
	noErrors        bool

	shortcuts map[int][]*shortcut

	sidecache                   map[twalker]int
	singleLiveBranchCloseToRoot map[*tcell]bool

	analyzers  map[aidT]*analyzer
	codeToID   map[string]int
	treestates []*treestate
	ruleRoot   int

	verifiedBranches    *redblacktree.Tree
	branchConflictsSeen map[conflictID]bool

	parentUpdates      int
	hardParents        int
	singleLiveBranches int
	doubleLiveBranches int
	statesPremini      int

	tryCount  int
	startTime time.Time

	bfsQueue []*tcell

	debuglist []twalker

	cellToTcell map[int]*tcell
	tcellToCell map[*tcell]int

	status string
}

// NewGen prepares a generator for the given tiling.  Run does the work.
func NewGen(t *gotess.Tiling, opts gotess.Opts) (*Gen, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, "bad tiling")
	}
	if opts.Flags&(gotess.WNumerical|gotess.WKnownStructure) != 0 && opts.Concrete == nil {
		return nil, errors.New("numerical mode needs a concrete model")
	}
	if opts.Flags&gotess.WKnownStructure != 0 && opts.Known == nil {
		return nil, errors.New("known-structure mode needs a prior rule table")
	}
	g := &Gen{
		tiling: t,
		opts:   opts,
	}
	g.clearAll()
	return g, nil
}

func (g *Gen) checkTimeout() {
	if time.Since(g.startTime) > g.opts.Timeout {
		throwSurrender("timeout")
	}
}

func (g *Gen) clearCodes() {
	g.treestates = nil
	g.codeToID = make(map[string]int)
	for c := g.firstTcell; c != nil; c = c.next {
		c.code = mystery
	}
}

func (g *Gen) cleanData() {
	g.analyzers = make(map[aidT]*analyzer)
	g.important = append([]twalker(nil), g.tOrigin...)
}

func (g *Gen) cleanParents() {
	g.cleanData()
	g.clearSidecache()
	for c := g.firstTcell; c != nil; c = c.next {
		c.parentDir = mystery
	}
}

func (g *Gen) clearTcellData() {
	for c := g.firstTcell; c != nil; c = c.next {
		c.isSolid = false
		c.parentDir = mystery
		c.code = mystery
		c.distanceFixed = false
	}
	g.inFixing = false
	g.fixQueue = nil
}

func (g *Gen) cleanup() {
	g.clearTcellData()
	g.analyzers = make(map[aidT]*analyzer)
	g.codeToID = make(map[string]int)
	g.important = nil
	g.shortcuts = make(map[int][]*shortcut)
	g.singleLiveBranchCloseToRoot = make(map[*tcell]bool)
}

func (g *Gen) clearAll() {
	g.treestates = nil
	g.firstTcell = nil
	g.tcellcount = 0
	g.tunified = 0
	g.tOrigin = nil
	g.sidecache = make(map[twalker]int)
	g.branchConflictsSeen = make(map[conflictID]bool)
	g.verifiedBranches = redblacktree.NewWith(deadstackComparator)
	g.cellToTcell = make(map[int]*tcell)
	g.tcellToCell = make(map[*tcell]int)
	g.cleanup()
}

// rulesIteration is one pass of the fixpoint loop: compute codes and rules
// for every important walker, settle liveness, verify branches, minimize.
func (g *Gen) rulesIteration() {
	g.tryCount++
	g.debuglist = nil

	if g.tryCount&(g.tryCount-1) == 0 && g.opts.Flags&gotess.WNoRestart == 0 {
		g.cleanData()
		g.cleanParents()
	}

	klog.V(2).Infof("attempt: %d", g.tryCount)

	g.clearCodes()
	g.parentUpdates = 0

	g.cq = append([]twalker(nil), g.important...)

	for i := range g.cq {
		g.rulesIterationFor(&g.cq[i])
	}

	g.handleDistanceErrors()
	klog.V(2).Infof("number of treestates = %d", len(g.treestates))
	_, g.ruleRoot = g.getCode(&g.tOrigin[0])
	klog.V(2).Infof("rule_root = %d", g.ruleRoot)

	for id := 0; id < len(g.treestates); id++ {
		if !g.treestates[id].known {
			ws := g.treestates[id].whereSeen
			g.rulesIterationFor(&ws)
		}
	}

	n := len(g.important)

	newDeadends := -1
	for newDeadends != 0 {
		newDeadends = 0
		for _, ts := range g.treestates {
			if !ts.known || !ts.isLive {
				continue
			}
			children := 0
			for _, i := range ts.rules {
				if i >= 0 && g.treestates[i].isLive {
					children++
				}
			}
			if children == 0 {
				ts.isLive = false
				newDeadends++
			}
		}
		klog.V(3).Infof("deadend states found: %d", newDeadends)
	}

	g.handleDistanceErrors()
	g.verifiedBranches = redblacktree.NewWith(deadstackComparator)

	q := len(g.singleLiveBranchCloseToRoot)

	g.singleLiveBranches = 0
	g.doubleLiveBranches = 0

	g.branchConflictsSeen = make(map[conflictID]bool)

	// dead roots -- some of their branches MUST live
	for id := 0; id < len(g.treestates); id++ {
		if g.treestates[id].isRoot && !g.treestates[id].isLive {
			r := g.treestates[id].rules
			for i := range r {
				if r[i] >= 0 {
					g.examineBranch(id, i, i)
					break
				}
			}
		}
	}

	for id := 0; id < len(g.treestates); id++ {
		if !g.treestates[id].isLive {
			continue
		}
		r := append([]int(nil), g.treestates[id].rules...)
		if len(r) == 0 {
			continue
		}
		lastLiveBranch := -1
		firstLiveBranch := -1
		qbranches := 0
		for i := range r {
			if r[i] >= 0 && g.treestates[r[i]].isLive {
				if firstLiveBranch == -1 {
					firstLiveBranch = i
				}
				if lastLiveBranch >= 0 {
					g.examineBranch(id, lastLiveBranch, i)
				}
				lastLiveBranch = i
				qbranches++
			}
		}
		if qbranches == 2 {
			g.doubleLiveBranches++
		}
		if firstLiveBranch == lastLiveBranch && g.treestates[id].isRoot {
			klog.V(2).Infof("for id %d we have a single live branch", id)
			g.singleLiveBranches++
			g.debuglist = []twalker{g.treestates[id].giver}
			g.findSingleLiveBranch(g.treestates[id].giver)
		}
		if len(g.singleLiveBranchCloseToRoot) != q {
			klog.V(2).Infof("changed single_live_branch_close_to_root from %d to %d", q, len(g.singleLiveBranchCloseToRoot))
			g.debuglist = []twalker{g.treestates[id].giver}
			g.clearSidecache()
			throwRetry("single live branch")
		}
		if g.treestates[id].isRoot {
			g.examineBranch(id, lastLiveBranch, firstLiveBranch)
		}
	}

	for id := 0; id < len(g.treestates); id++ {
		if g.treestates[id].giver.at == nil {
			g.important = append(g.important, g.treestates[id].whereSeen)
		}
	}

	g.handleDistanceErrors()
	if len(g.important) != n {
		throwRetry("need more rules after examine")
	}

	g.minimizeRules()
	g.findPossibleParents()

	if len(g.important) != n {
		throwRetry("need more rules after minimize")
	}
	g.handleDistanceErrors()
}

func (g *Gen) seedOrigins() {
	if g.opts.Flags&(gotess.WNumerical|gotess.WKnownStructure) != 0 {
		m := g.opts.Concrete
		s := m.Origin()
		c := g.genTcell(m.ShapeOf(s))
		g.cellToTcell[s] = c
		g.tcellToCell[c] = s
		c.dist = 0
		g.tOrigin = append(g.tOrigin, twalker{c, 0})

		if g.opts.Flags&gotess.WKnownStructure != 0 && g.opts.Flags&gotess.WSingleOrigin == 0 {
			if op, ok := m.(gotess.OriginProvider); ok {
				for _, s := range op.ExtraOrigins() {
					c := g.genTcell(m.ShapeOf(s))
					g.cellToTcell[s] = c
					g.tcellToCell[c] = s
					c.dist = 0
					g.tOrigin = append(g.tOrigin, twalker{c, 0})
				}
			}
		}
		return
	}
	if g.opts.Flags&gotess.WSingleOrigin != 0 {
		c := g.genTcell(g.opts.OriginID)
		c.dist = 0
		g.tOrigin = append(g.tOrigin, twalker{c, 0})
		return
	}
	for si := range g.tiling.Shapes {
		c := g.genTcell(si)
		c.dist = 0
		g.tOrigin = append(g.tOrigin, twalker{c, 0})
	}
}

// Run generates the rules.  It either returns the finished automaton or the
// *Retry, *Surrender or *Failure that stopped it; a partial table is never
// published.
func (g *Gen) Run() (rs *gotess.RuleSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case *Retry:
				g.status = fmt.Sprintf("too difficult: %s", e.Reason)
				err = e
			case *Surrender:
				g.status = fmt.Sprintf("too difficult: %s", e.Reason)
				err = e
			case *Failure:
				g.status = fmt.Sprintf("bug: %s", e.Reason)
				err = e
			default:
				panic(r)
			}
		}
	}()

	g.startTime = time.Now()
	g.clearAll()
	g.hardParents = 0
	g.singleLiveBranches = 0
	g.doubleLiveBranches = 0
	g.allSolidErrors = 0

	g.seedOrigins()

	g.bfsQueue = nil
	if g.opts.Flags&gotess.WBfs != 0 {
		for _, c := range g.tOrigin {
			g.bfsQueue = append(g.bfsQueue, c.at)
		}
	}

	g.tryCount = 0
	g.important = append([]twalker(nil), g.tOrigin...)

	for {
		g.checkTimeout()
		done := func() (done bool) {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(*Retry); ok && g.tryCount < g.opts.MaxRetries {
						return
					}
					panic(r)
				}
			}()
			g.rulesIteration()
			return true
		}()
		if done {
			break
		}
	}

	g.status = fmt.Sprintf("rules generated successfully: %d states using %d-%d cells",
		len(g.treestates), g.tcellcount, g.tunified)
	klog.V(1).Info(g.status)

	return g.exportRules(), nil
}

func (g *Gen) exportRules() *gotess.RuleSet {
	rs := &gotess.RuleSet{
		Name: g.tiling.Name,
		Root: g.ruleRoot,
	}
	for _, ts := range g.treestates {
		rs.States = append(rs.States, gotess.TreeState{
			ID:               ts.id,
			Sid:              ts.sid,
			ParentDir:        ts.parentDir,
			Rules:            append([]int(nil), ts.rules...),
			IsRoot:           ts.isRoot,
			IsLive:           ts.isLive,
			IsPossibleParent: ts.isPossibleParent,
			PossibleParents:  append([]gotess.ParentLink(nil), ts.possibleParents...),
		})
	}
	return rs
}

// Status is the human-readable outcome of the last Run.
func (g *Gen) Status() string { return g.status }

// Counters reports the run's diagnostics.
func (g *Gen) Counters() gotess.Counters {
	return gotess.Counters{
		TcellCount:         g.tcellcount,
		Unified:            g.tunified,
		MoveCount:          g.movecount,
		HardParents:        g.hardParents,
		SingleLiveBranches: g.singleLiveBranches,
		DoubleLiveBranches: g.doubleLiveBranches,
		StatesPremini:      g.statesPremini,
		AllSolidErrors:     g.allSolidErrors,
		ParentUpdates:      g.parentUpdates,
		Tries:              g.tryCount,
	}
}

// ShortcutCount returns how many shortcuts are currently learned for a shape.
func (g *Gen) ShortcutCount(shapeID int) int { return len(g.shortcuts[shapeID]) }

// Generate is the one-call entry point.
func Generate(t *gotess.Tiling, opts gotess.Opts) (*gotess.RuleSet, gotess.Counters, error) {
	g, err := NewGen(t, opts)
	if err != nil {
		return nil, gotess.Counters{}, err
	}
	rs, err := g.Run()
	if err != nil {
		return nil, g.Counters(), errors.Wrap(err, g.status)
	}
	return rs, g.Counters(), nil
}
