package libtess

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"

	"github.com/hypertiles/gotess/gotess"
)

// Textual tiling descriptor:
//
//	tiling "{7,3}"
//	shape 7 cycle 1 {
//	  edge 0 -> 0:0 valence 3
//	  ...
//	}
//
// and the persisted rule table:
//
//	rules "{7,3}"
//	root(0)
//	state(0, PARENT, 1, LEFT, RIGHT)

type tesFile struct {
	Name   string      `"tiling" @String`
	Shapes []*tesShape `@@*`
}

type tesShape struct {
	Size  int        `"shape" @Int`
	Cycle int        `"cycle" @Int`
	Edges []*tesEdge `"{" @@* "}"`
}

type tesEdge struct {
	Index   int  `"edge" @Int`
	Sid     int  `"-" ">" @Int`
	Eid     int  `":" @Int`
	Mirror  bool `@"*"?`
	Valence int  `"valence" @Int`
}

type rulesFile struct {
	Name   string       `"rules" @String`
	Root   int          `"root" "(" @Int ")"`
	States []*ruleState `@@*`
}

type ruleState struct {
	Sid   int      `"state" "(" @Int`
	Rules []string `("," @("PARENT" | "LEFT" | "RIGHT" | Int))* ")"`
}

var (
	parseTesFile   = participle.MustBuild[tesFile](participle.Unquote("String"))
	parseRulesFile = participle.MustBuild[rulesFile](participle.Unquote("String"))
)

// ParseTiling reads the textual descriptor form into a validated Tiling.
func ParseTiling(text string) (*gotess.Tiling, error) {
	tf, err := parseTesFile.ParseString("", text)
	if err != nil {
		return nil, err
	}

	t := &gotess.Tiling{Name: tf.Name}
	for si, ts := range tf.Shapes {
		sh := gotess.Shape{
			ID:            si,
			Connections:   make([]gotess.Connection, ts.Size),
			VertexValence: make([]int, ts.Size),
			CycleLength:   ts.Cycle,
		}
		if len(ts.Edges) != ts.Size {
			return nil, fmt.Errorf("shape %d: %d edges declared, %d listed", si, ts.Size, len(ts.Edges))
		}
		for _, e := range ts.Edges {
			if e.Index < 0 || e.Index >= ts.Size {
				return nil, fmt.Errorf("shape %d: edge index %d out of range", si, e.Index)
			}
			sh.Connections[e.Index] = gotess.Connection{Sid: e.Sid, Eid: e.Eid, Mirror: e.Mirror}
			sh.VertexValence[e.Index] = e.Valence
		}
		t.Shapes = append(t.Shapes, sh)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// FormatTiling writes a Tiling back out in the descriptor form ParseTiling reads.
func FormatTiling(out io.Writer, t *gotess.Tiling) error {
	if _, err := fmt.Fprintf(out, "tiling %q\n", t.Name); err != nil {
		return err
	}
	for si := range t.Shapes {
		sh := &t.Shapes[si]
		if _, err := fmt.Fprintf(out, "shape %d cycle %d {\n", sh.Size(), sh.CycleLength); err != nil {
			return err
		}
		for e, co := range sh.Connections {
			mirror := ""
			if co.Mirror {
				mirror = "*"
			}
			if _, err := fmt.Fprintf(out, "  edge %d -> %d:%d%s valence %d\n",
				e, co.Sid, co.Eid, mirror, sh.VertexValence[e]); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(out, "}\n"); err != nil {
			return err
		}
	}
	return nil
}

// ParseRules reads a persisted rule table.  Rule entries arrive in shape-edge
// order; the state's PARENT position becomes its ParentDir and the rules are
// rotated so the parent sits at tree edge 0, the orientation the generator
// emits.
func ParseRules(text string) (*gotess.RuleSet, error) {
	rf, err := parseRulesFile.ParseString("", text)
	if err != nil {
		return nil, err
	}

	rs := &gotess.RuleSet{Name: rf.Name, Root: rf.Root}
	for i, st := range rf.States {
		n := len(st.Rules)
		if n == 0 {
			return nil, fmt.Errorf("state %d has no rules", i)
		}
		raw := make([]int, n)
		qparent, sumparent := 0, 0
		for e, r := range st.Rules {
			switch r {
			case "PARENT":
				raw[e] = gotess.DirParent
				qparent++
				sumparent = e
			case "LEFT":
				raw[e] = gotess.DirLeft
			case "RIGHT":
				raw[e] = gotess.DirRight
			default:
				v, err := strconv.Atoi(r)
				if err != nil {
					return nil, fmt.Errorf("state %d: bad rule %q", i, r)
				}
				raw[e] = v
			}
		}
		if qparent > 1 {
			return nil, gotess.ErrMultipleParents
		}

		ts := gotess.TreeState{
			ID:     i,
			Sid:    st.Sid,
			IsRoot: qparent == 0,
		}
		if qparent == 1 {
			ts.ParentDir = sumparent
		}
		ts.Rules = make([]int, n)
		for a := 0; a < n; a++ {
			ts.Rules[a] = raw[(a+ts.ParentDir)%n]
		}
		rs.States = append(rs.States, ts)
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	rs.ComputePossibleParents()
	return rs, nil
}
