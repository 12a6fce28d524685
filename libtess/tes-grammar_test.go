package libtess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypertiles/gotess/gotess"
)

func TestTilingTextRoundTrip(t *testing.T) {
	for _, tiling := range []*gotess.Tiling{
		gotess.NewRegularTiling(7, 3),
		gotess.NewRegularTiling(5, 4),
		gotess.NewTriheptagonal(),
	} {
		b := strings.Builder{}
		require.NoError(t, FormatTiling(&b, tiling))

		back, err := ParseTiling(b.String())
		require.NoError(t, err, b.String())
		require.Equal(t, tiling.Name, back.Name)
		require.Equal(t, tiling.Shapes, back.Shapes)
	}
}

func TestParseTilingErrors(t *testing.T) {
	_, err := ParseTiling(`tiling "x"`)
	require.Error(t, err) // no shapes

	_, err = ParseTiling(`tiling "x"
shape 3 cycle 1 {
  edge 0 -> 0:0 valence 7
}`)
	require.Error(t, err) // 3 edges declared, 1 listed

	_, err = ParseTiling(`tiling "x"
shape 3 cycle 2 {
  edge 0 -> 0:0 valence 7
  edge 1 -> 0:0 valence 7
  edge 2 -> 0:0 valence 7
}`)
	require.Error(t, err) // cycle must divide size
}

func TestParseRulesRotation(t *testing.T) {
	rs, err := ParseRules(`rules "toy"
root(0)
state(0, 1, 1, 1)
state(0, LEFT, PARENT, RIGHT)
`)
	require.NoError(t, err)
	require.Equal(t, 0, rs.Root)
	require.Len(t, rs.States, 2)

	require.True(t, rs.States[0].IsRoot)
	require.Equal(t, []int{1, 1, 1}, rs.States[0].Rules)

	// PARENT was at shape edge 1, so the state's rules rotate to start there
	ts := rs.States[1]
	require.False(t, ts.IsRoot)
	require.Equal(t, 1, ts.ParentDir)
	require.Equal(t, []int{gotess.DirParent, gotess.DirRight, gotess.DirLeft}, ts.Rules)
}

func TestParseRulesErrors(t *testing.T) {
	_, err := ParseRules(`rules "toy"
root(5)
state(0, 1, 1, 1)
`)
	require.Error(t, err) // root out of range

	_, err = ParseRules(`rules "toy"
root(0)
state(0, PARENT, PARENT, 0)
`)
	require.ErrorIs(t, err, gotess.ErrMultipleParents)

	_, err = ParseRules(`rules "toy"
root(0)
state(0, 7, 0, 0)
`)
	require.ErrorIs(t, err, gotess.ErrBadRule) // rule names a missing state
}
