package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hypertiles/gotess/gotess"
	"github.com/hypertiles/gotess/libtess"
	"github.com/hypertiles/gotess/libtess/catalog"
)

func TestCatalogRoundTrip(t *testing.T) {
	cat, err := catalog.OpenCatalog(catalog.Opts{}) // in-memory
	require.NoError(t, err)
	defer cat.Close()

	rs, _, err := libtess.Generate(gotess.NewRegularTiling(7, 3), gotess.DefaultOpts())
	require.NoError(t, err)

	added, err := cat.TryAddRules(rs)
	require.NoError(t, err)
	require.True(t, added)

	added, err = cat.TryAddRules(rs)
	require.NoError(t, err)
	require.False(t, added, "second add of the same name must be a no-op")

	require.EqualValues(t, 1, cat.NumTables())

	back, err := cat.LoadRules(rs.Name)
	require.NoError(t, err)
	require.Equal(t, rs.Root, back.Root)
	require.Len(t, back.States, len(rs.States))
	for i := range rs.States {
		require.Equal(t, rs.States[i].Sid, back.States[i].Sid)
		require.Equal(t, rs.States[i].ParentDir, back.States[i].ParentDir)
		require.Equal(t, rs.States[i].Rules, back.States[i].Rules)
		require.Equal(t, rs.States[i].PossibleParents, back.States[i].PossibleParents)
	}

	var names []string
	require.NoError(t, cat.Select(func(name string) bool {
		names = append(names, name)
		return true
	}))
	require.Equal(t, []string{rs.Name}, names)
}

func TestCatalogMissing(t *testing.T) {
	cat, err := catalog.OpenCatalog(catalog.Opts{})
	require.NoError(t, err)
	defer cat.Close()

	_, err = cat.LoadRules("no such tiling")
	require.Error(t, err)
}

func TestCatalogRejectsBrokenTable(t *testing.T) {
	cat, err := catalog.OpenCatalog(catalog.Opts{})
	require.NoError(t, err)
	defer cat.Close()

	_, err = cat.TryAddRules(&gotess.RuleSet{Name: "broken", Root: 3})
	require.Error(t, err)
}
