package prefabs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
)

func TestLoadEmbeddedGridSpecs(t *testing.T) {
	names := GridNames()
	require.Contains(t, names, "courtyard")
	require.Contains(t, names, "warehouse")

	cases := []struct {
		name   string
		lookup string
	}{
		{"bare_name", "courtyard"},
		{"with_extension", "courtyard.yaml"},
		{"with_directory", "grids/courtyard"},
		{"with_prefabs_prefix", "prefabs/grids/courtyard.yaml"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			spec, err := LoadGridSpec(c.lookup)
			require.NoError(t, err)
			assert.Equal(t, "courtyard", spec.Name)
			assert.Equal(t, navgrid.Dimensions{Width: 3, Height: 1, Depth: 3}, spec.NavDimensions())
			require.Len(t, spec.Holes, 1)

			guard, ok := spec.Agent("guard")
			require.True(t, ok)
			assert.Equal(t, 2.0, guard.Speed)
			assert.Len(t, guard.Patrol, 4)
			assert.Equal(t, BrainFSM, guard.Brain)
		})
	}

	_, err := LoadGridSpec("missing")
	require.Error(t, err)
}

func TestGridSpecBuild(t *testing.T) {
	spec, err := LoadGridSpec("courtyard")
	require.NoError(t, err)

	g, err := spec.Build()
	require.NoError(t, err)
	assert.Equal(t, 9, g.TileCount())
	assert.Equal(t, 8, g.LiveTileCount())

	_, err = g.TileAt(navgrid.Cell{X: 1, Z: 1})
	require.ErrorIs(t, err, navgrid.ErrTileRemoved)

	p, err := navgrid.FindPathCells(g, navgrid.Cell{}, navgrid.Cell{X: 2, Z: 2}, navgrid.ModeAStar)
	require.NoError(t, err)
	assert.True(t, p.Found)
	assert.Equal(t, 4, p.Len())
}

func TestWarehouseSpecRoutesAroundShelves(t *testing.T) {
	spec, err := LoadGridSpec("warehouse")
	require.NoError(t, err)
	g, err := spec.Build()
	require.NoError(t, err)

	forklift, ok := spec.Agent("forklift")
	require.True(t, ok)
	require.NotNil(t, forklift.FSM)
	assert.Equal(t, "patrol", forklift.FSM.Initial)
	require.Len(t, forklift.FSM.Transitions["chase"], 2)

	p, err := navgrid.FindPathCells(g, forklift.Patrol[0].Cell(), forklift.Patrol[1].Cell(), navgrid.ModeAStar)
	require.NoError(t, err)
	require.True(t, p.Found)
	// up the first aisle to z=7, across, back down to z=0 past the second shelf, then out
	assert.Equal(t, 2+7+4+7+3, p.Len())
}

func TestParseGridSpecDefaultsAndValidation(t *testing.T) {
	spec, err := ParseGridSpec([]byte("dimensions: {width: 2, depth: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Dimensions.Height)
	assert.Equal(t, Vec3Spec{X: 0.5, Y: 0.5, Z: 0.5}, spec.TileSize)

	cases := []struct {
		name string
		yaml string
	}{
		{"zero_width", "dimensions: {width: 0, depth: 2}\n"},
		{"hole_out_of_bounds", "dimensions: {width: 2, depth: 2}\nholes: [{x: 5, z: 0}]\n"},
		{"negative_tile_size", "dimensions: {width: 2, depth: 2}\ntile_size: {x: -1}\n"},
		{"negative_tile_depth", "dimensions: {width: 2, depth: 2}\ntile_size: {x: 0.5, z: -0.5}\n"},
		{"agent_without_name", "dimensions: {width: 2, depth: 2}\nagents: [{speed: 1}]\n"},
		{"agent_bad_mode", "dimensions: {width: 2, depth: 2}\nagents: [{name: a, mode: greedy}]\n"},
		{"patrol_out_of_bounds", "dimensions: {width: 2, depth: 2}\nagents: [{name: a, patrol: [{x: 9}]}]\n"},
		{"agent_bad_brain", "dimensions: {width: 2, depth: 2}\nagents: [{name: a, brain: utility}]\n"},
		{"transition_without_condition", "dimensions: {width: 2, depth: 2}\nagents: [{name: a, fsm: {initial: patrol, transitions: {patrol: [{to: chase}]}}}]\n"},
		{"transition_with_both", "dimensions: {width: 2, depth: 2}\nagents: [{name: a, fsm: {initial: patrol, transitions: {patrol: [{to: chase, when: has_target, script: x.tengo}]}}}]\n"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseGridSpec([]byte(c.yaml))
			require.ErrorIs(t, err, ErrInvalidSpec)
		})
	}

	_, err = ParseGridSpec([]byte("dimensions: [not, a, map]\n"))
	require.Error(t, err)
}

func TestPartialTileSizeDefaultsEachAxis(t *testing.T) {
	spec, err := ParseGridSpec([]byte("dimensions: {width: 3, depth: 3}\ntile_size: {x: 2}\n"))
	require.NoError(t, err)
	assert.Equal(t, Vec3Spec{X: 2, Y: 0.5, Z: 0.5}, spec.TileSize)

	g, err := spec.Build()
	require.NoError(t, err)

	for _, c := range []struct {
		cell navgrid.Cell
		want common.Vec3
	}{
		{navgrid.Cell{}, common.Vec3{}},
		{navgrid.Cell{Z: 1}, common.Vec3{Z: 1}},
		{navgrid.Cell{Z: 2}, common.Vec3{Z: 2}},
		{navgrid.Cell{X: 1, Z: 2}, common.Vec3{X: 4, Z: 2}},
	} {
		tile, err := g.TileAt(c.cell)
		require.NoError(t, err)
		assert.Equal(t, c.want, tile.Position, "cell %s", c.cell)
		assert.Equal(t, c.cell, g.WorldToGridCell(tile.Position))
	}
}

func TestValidateRejectsZeroTileSize(t *testing.T) {
	spec := GridSpec{
		Dimensions: DimensionsSpec{Width: 3, Height: 1, Depth: 3},
		TileSize:   Vec3Spec{X: 0.5},
	}
	require.ErrorIs(t, spec.Validate(), ErrInvalidSpec)

	spec.TileSize.Z = 0.5
	require.NoError(t, spec.Validate())

	spec.Dimensions.Height = 2
	require.ErrorIs(t, spec.Validate(), ErrInvalidSpec)
}

func TestDiskOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "grids"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grids", "courtyard.yaml"),
		[]byte("name: courtyard\ndimensions: {width: 5, depth: 1}\n"), 0o644))

	prev := DiskDir
	DiskDir = dir
	t.Cleanup(func() { DiskDir = prev })

	spec, err := LoadGridSpec("courtyard")
	require.NoError(t, err)
	assert.Equal(t, 5, spec.Dimensions.Width)

	_, ok := ModTime("grids/courtyard.yaml")
	assert.True(t, ok)
	_, ok = ModTime("grids/warehouse.yaml")
	assert.False(t, ok)

	spec, err = LoadGridSpecFile(filepath.Join(dir, "grids", "courtyard.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "courtyard", spec.Name)
}

func TestLoadScript(t *testing.T) {
	for _, name := range []string{"give_up", "give_up.tengo", "scripts/give_up.tengo", "prefabs/scripts/give_up.tengo"} {
		data, err := LoadScript(name)
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "result")
	}
}

func TestWatcherReportsSpecChanges(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcherWithDebounce(10*time.Millisecond, dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	specPath := filepath.Join(dir, "arena.yaml")
	require.NoError(t, os.WriteFile(specPath, []byte("dimensions: {width: 2, depth: 2}\n"), 0o644))

	select {
	case ch := <-w.Events:
		assert.Equal(t, specPath, ch.Path)
		assert.Equal(t, ChangeGridSpec, ch.Kind)
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for spec change")
	}

	scriptPath := filepath.Join(dir, "guard.tengo")
	require.NoError(t, os.WriteFile(scriptPath, []byte("result := true\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ch := <-w.Events:
			if ch.Path != scriptPath {
				continue
			}
			assert.Equal(t, ChangeScript, ch.Kind)
			require.NoError(t, w.Close())
			return
		case <-deadline:
			t.Fatal("timed out waiting for script change")
		}
	}
}
