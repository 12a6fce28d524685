package gotess_test

import (
	"strings"
	"testing"

	"github.com/hypertiles/gotess/gotess"
)

func TestTilingValidate(t *testing.T) {
	for _, tiling := range []*gotess.Tiling{
		gotess.NewRegularTiling(7, 3),
		gotess.NewRegularTiling(5, 4),
		gotess.NewRegularTiling(3, 7),
		gotess.NewTriheptagonal(),
	} {
		if err := tiling.Validate(); err != nil {
			t.Fatalf("%s: %v", tiling.Name, err)
		}
	}

	bad := gotess.NewRegularTiling(7, 3)
	bad.Shapes[0].Connections[2].Sid = 5
	if err := bad.Validate(); err != gotess.ErrBadConnection {
		t.Fatalf("got %v, want ErrBadConnection", err)
	}

	bad = gotess.NewRegularTiling(7, 3)
	bad.Shapes[0].CycleLength = 2
	if err := bad.Validate(); err != gotess.ErrBadCycleLength {
		t.Fatalf("got %v, want ErrBadCycleLength", err)
	}
}

func TestWriteTextPlacesParent(t *testing.T) {
	rs := &gotess.RuleSet{
		Name: "toy",
		Root: 0,
		States: []gotess.TreeState{
			{ID: 0, Sid: 0, Rules: []int{1, 1, 1}, IsRoot: true},
			{ID: 1, Sid: 0, ParentDir: 2, Rules: []int{gotess.DirParent, gotess.DirLeft, gotess.DirRight}},
		},
	}
	if err := rs.Validate(); err != nil {
		t.Fatal(err)
	}

	b := strings.Builder{}
	if err := rs.WriteText(&b); err != nil {
		t.Fatal(err)
	}
	want := "rules \"toy\"\nroot(0)\nstate(0, 1, 1, 1)\nstate(0, LEFT, RIGHT, PARENT)\n"
	if b.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", b.String(), want)
	}
}

func TestComputePossibleParents(t *testing.T) {
	rs := &gotess.RuleSet{
		Name: "toy",
		Root: 0,
		States: []gotess.TreeState{
			{ID: 0, Sid: 0, Rules: []int{gotess.DirParent, 1, 0}},
			{ID: 1, Sid: 0, Rules: []int{gotess.DirParent, 0, 1}},
		},
	}
	rs.ComputePossibleParents()

	for _, ts := range rs.States {
		if !ts.IsPossibleParent {
			t.Fatalf("state %d should stay a possible parent", ts.ID)
		}
		if len(ts.PossibleParents) == 0 {
			t.Fatalf("state %d has no possible parents", ts.ID)
		}
	}
}
