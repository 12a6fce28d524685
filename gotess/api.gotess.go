package gotess

import (
	"time"
)

const (
	// Mystery is the "unset" sentinel for distances, codes and directions.
	Mystery = 31999
)

// Special rule codes.  Non-negative rule entries are tree-state ids.
const (
	DirUnknown = -1
	DirLeft    = -4
	DirRight   = -5
	DirParent  = -6
)

// Classification codes used inside tree-state codes.  The low bit marks the
// right side of the tree.
const (
	CIgnore = 0
	CChild  = 1
	CUncle  = 2
	CEqual  = 4
	CNephew = 6
	CParent = 8
)

// Connection describes the gluing of one directed shape edge.
type Connection struct {
	Sid    int  // target shape
	Eid    int  // target edge
	Mirror bool // orientation-reversing gluing
}

// Shape is one tile type of a tessellation.
type Shape struct {
	ID            int
	Connections   []Connection // one per edge
	VertexValence []int        // tiles around the vertex right of each edge
	CycleLength   int          // rotational symmetry period, divides Size()
}

func (sh *Shape) Size() int { return len(sh.Connections) }

// Tiling is the combinatorial descriptor of a 2D tessellation.
type Tiling struct {
	Name   string
	Shapes []Shape
}

func (t *Tiling) Validate() error {
	if len(t.Shapes) == 0 {
		return ErrNoShapes
	}
	for si := range t.Shapes {
		sh := &t.Shapes[si]
		n := sh.Size()
		if n < 3 {
			return ErrBadShape
		}
		if len(sh.VertexValence) != n {
			return ErrBadValence
		}
		if sh.CycleLength <= 0 || n%sh.CycleLength != 0 {
			return ErrBadCycleLength
		}
		for _, co := range sh.Connections {
			if co.Sid < 0 || co.Sid >= len(t.Shapes) {
				return ErrBadConnection
			}
			if co.Eid < 0 || co.Eid >= t.Shapes[co.Sid].Size() {
				return ErrBadConnection
			}
		}
		for _, v := range sh.VertexValence {
			if v < 3 {
				return ErrBadValence
			}
		}
	}
	return nil
}

// Flags toggle the generator's alternate strategies.  They usually make
// things worse; the default of 0 is the strategy that works.
type Flags uint64

const (
	WNumerical          Flags = 1 << iota // build trees using the concrete-model oracle
	WNearSolid                            // a solid's pre-parent is not made solid along with it
	WNoShortcut                           // learn no shortcuts
	WNoRestart                            // do not restart at powers of two
	WNoSidecache                          // do not cache side computations
	WNoRelativeDistance                   // collapse EQUAL/NEPHEW/UNCLE in codes
	WExamineOnce                          // restart after the first branch conflict
	WExamineAll                           // record every branch conflict, even known ones
	WConflictAll                          // extend the analyzer at every mismatch
	WParentAlways                         // always run the exhaustive parent rule
	WParentReverse                        // accepted, but not read by the generator: no effect on the parent tie-break
	WParentSide                           // accepted, but not read by the generator: no effect on the parent tie-break
	WParentNever                          // never run the exhaustive parent rule
	WAlwaysClean                          // rebuild analyzers after any distance error
	WSingleOrigin                         // seed only one origin
	WSlowSide                             // disable the fast side climb
	WBfs                                  // assign distances by plain BFS
	WNumericalFix                         // verify vertex loops in numerical mode
	WKnownStructure                       // two-pass: reuse a prior run's table
	WKnownDistances                       // with WKnownStructure, trust its distances
	WNoSmartShortcuts                     // disable the smart shortcut replay
	WLessSmartRetrace                     // weaken the smart-retrace early exit
	WLessSmartAdvance                     // weaken the smart-advance early exit
)

// ConcreteModel is the numerical-generation oracle: an externally generated
// map that can answer movement queries for WNumerical runs.  Cells are opaque
// handles issued by the model.
type ConcreteModel interface {
	Origin() int
	ShapeOf(cell int) int
	Move(cell, dir int) (neighbor, reverseDir int)
	Distance(cell int) int
	StateOf(cell int) int // tree-state in the prior table; WKnownStructure only
}

// OriginProvider optionally lists extra distance-0 cells for multi-root
// known-structure runs.
type OriginProvider interface {
	ExtraOrigins() []int
}

// Opts configures one generator run.
type Opts struct {
	MaxRetries       int
	MaxTcellCount    int
	MaxAdvSteps      int
	MaxExamineBranch int
	MaxBdata         int
	MaxGetside       int
	Timeout          time.Duration

	Flags    Flags
	OriginID int // shape of the single origin with WSingleOrigin

	Concrete ConcreteModel // required for WNumerical / WKnownStructure
	Known    *RuleSet      // prior table for WKnownStructure
}

// DefaultOpts returns the budgets that work for every tessellation we know.
func DefaultOpts() Opts {
	return Opts{
		MaxRetries:       999,
		MaxTcellCount:    1000000,
		MaxAdvSteps:      100,
		MaxExamineBranch: 5040,
		MaxBdata:         1000,
		MaxGetside:       10000,
		Timeout:          60 * time.Second,
	}
}

// Counters reports what one run did.
type Counters struct {
	TcellCount         int   // tiles created
	Unified            int   // tiles united into other tiles
	MoveCount          int64 // edge traversals
	HardParents        int   // parents needing the exhaustive tie-break
	SingleLiveBranches int
	DoubleLiveBranches int
	StatesPremini      int // tree-states before minimization
	AllSolidErrors     int
	ParentUpdates      int
	Tries              int
}
