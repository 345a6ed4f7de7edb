package navgrid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/common"
)

var unitTile = common.Vec3{X: 0.5, Y: 0.5, Z: 0.5}

func TestNewGridLayout(t *testing.T) {
	g, err := NewGrid(Dimensions{Width: 3, Height: 2, Depth: 4}, unitTile)
	require.NoError(t, err)

	require.Equal(t, 24, g.TileCount())
	require.Equal(t, 24, g.LiveTileCount())

	for idx := 0; idx < g.TileCount(); idx++ {
		tile, err := g.GetTile(idx)
		require.NoError(t, err)
		assert.Equal(t, idx, tile.ID)

		c, err := g.IndexToCell(idx)
		require.NoError(t, err)
		assert.Equal(t, c, tile.Cell)

		back, err := g.CellToIndex(c)
		require.NoError(t, err)
		assert.Equal(t, idx, back)
		assert.Equal(t, idx, c.Y*(3*4)+c.Z*3+c.X)
	}

	tile, err := g.GetTile3D(2, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, Cell{X: 2, Y: 1, Z: 3}, tile.Cell)
	assert.Equal(t, common.Vec3{X: 2, Y: 1, Z: 3}, tile.Position)
}

func TestNewGridRejectsBadDimensions(t *testing.T) {
	cases := []struct {
		name string
		dims Dimensions
		size common.Vec3
	}{
		{"zero_width", Dimensions{Width: 0, Height: 1, Depth: 3}, unitTile},
		{"negative_depth", Dimensions{Width: 3, Height: 1, Depth: -1}, unitTile},
		{"zero_height", Dimensions{Width: 3, Height: 0, Depth: 3}, unitTile},
		{"negative_tile", Dimensions{Width: 3, Height: 1, Depth: 3}, common.Vec3{X: -1}},
		{"zero_tile_depth", Dimensions{Width: 3, Height: 1, Depth: 3}, common.Vec3{X: 0.5}},
		{"zero_tile_width", Dimensions{Width: 3, Height: 1, Depth: 3}, common.Vec3{Z: 0.5}},
		{"zero_tile_height_on_layers", Dimensions{Width: 3, Height: 2, Depth: 3}, common.Vec3{X: 0.5, Z: 0.5}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewGrid(c.dims, c.size)
			require.ErrorIs(t, err, ErrInvalidDimensions)
		})
	}
}

func TestTilePositionsUseTileSpacing(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 2, Height: 1, Depth: 2}, common.Vec3{X: 1.5, Z: 2})
	want := []common.Vec3{
		{X: 0, Z: 0},
		{X: 3, Z: 0},
		{X: 0, Z: 4},
		{X: 3, Z: 4},
	}
	got := make([]common.Vec3, 0, 4)
	for _, tile := range g.Tiles() {
		got = append(got, tile.Position)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tile positions mismatch (-want +got):\n%s", diff)
	}
}

func TestAdjacencyIsFourConnectedAndSymmetric(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 4, Height: 2, Depth: 3}, unitTile)

	for _, tile := range g.Tiles() {
		for _, n := range tile.Neighbors() {
			other, err := g.GetTile(n)
			require.NoError(t, err)
			assert.Contains(t, other.Neighbors(), tile.ID, "link %d->%d not symmetric", tile.ID, n)

			d := common.AbsInt(tile.Cell.X-other.Cell.X) + common.AbsInt(tile.Cell.Z-other.Cell.Z)
			assert.Equal(t, 1, d, "link %d->%d is not axis-aligned", tile.ID, n)
			assert.Equal(t, tile.Cell.Y, other.Cell.Y, "link %d->%d crosses layers", tile.ID, n)
		}
	}

	corner, err := g.GetTile3D(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, corner.Degree())

	middle, err := g.GetTile3D(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, middle.Degree())

	// 2 layers * (3 rows * 3 horizontal + 4 cols * 2 vertical)
	assert.Len(t, g.Links(), 34)
}

func TestLookupsOutOfRange(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 3, Height: 1, Depth: 3}, unitTile)

	cases := []struct {
		name   string
		lookup func() error
	}{
		{"negative_index", func() error { _, err := g.GetTile(-1); return err }},
		{"index_past_end", func() error { _, err := g.GetTile(9); return err }},
		{"column_past_end", func() error { _, err := g.GetTile3D(3, 0, 0); return err }},
		{"row_negative", func() error { _, err := g.GetTile3D(0, -1, 0); return err }},
		{"layer_past_end", func() error { _, err := g.GetTile3D(0, 0, 1); return err }},
		{"index_to_cell", func() error { _, err := g.IndexToCell(100); return err }},
		{"remove_out_of_range", func() error { return g.RemoveTile(42) }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.lookup()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIndexOutOfRange), "got %v", err)
		})
	}
}

func TestWorldToGridCell(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 3, Height: 1, Depth: 3}, unitTile)

	cases := []struct {
		name string
		pos  common.Vec3
		want Cell
	}{
		{"origin", common.Vec3{}, Cell{}},
		{"exact_cell", common.Vec3{X: 2, Z: 1}, Cell{X: 2, Z: 1}},
		{"rounds_down", common.Vec3{X: 0.4, Z: 1.2}, Cell{X: 0, Z: 1}},
		{"rounds_up", common.Vec3{X: 1.6, Z: 0.51}, Cell{X: 2, Z: 1}},
		{"clamps_negative", common.Vec3{X: -50, Z: -0.2}, Cell{X: 0, Z: 0}},
		{"clamps_far_outside", common.Vec3{X: 1000, Y: 30, Z: 999}, Cell{X: 2, Z: 2}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, g.WorldToGridCell(c.pos))
		})
	}

	wide := MustNewGrid(Dimensions{Width: 4, Height: 1, Depth: 4}, common.Vec3{X: 1, Z: 1})
	assert.Equal(t, Cell{X: 2, Z: 1}, wide.WorldToGridCell(common.Vec3{X: 4.2, Z: 1.9}))
}

func TestRemoveTile(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 3, Height: 1, Depth: 3}, unitTile)

	center, err := g.GetTile3D(1, 1, 0)
	require.NoError(t, err)
	neighbors := center.Neighbors()
	require.Len(t, neighbors, 4)

	require.NoError(t, g.RemoveTile(center.ID))

	assert.Equal(t, 8, g.LiveTileCount())
	assert.Equal(t, 9, g.TileCount())
	assert.Equal(t, 4, center.Degree(), "lookups are snapshots")

	_, err = g.GetTile(center.ID)
	require.ErrorIs(t, err, ErrTileRemoved)

	for _, n := range neighbors {
		other, err := g.GetTile(n)
		require.NoError(t, err)
		assert.NotContains(t, other.Neighbors(), center.ID)
	}
	for _, tile := range g.Tiles() {
		assert.NotEqual(t, center.ID, tile.ID)
	}

	require.ErrorIs(t, g.RemoveTile(center.ID), ErrTileRemoved)
	require.ErrorIs(t, g.RemoveCell(Cell{X: 1, Z: 1}), ErrTileRemoved)
	require.ErrorIs(t, g.RemoveCell(Cell{X: 7}), ErrIndexOutOfRange)
}

func TestTileSnapshotsDuringRemoval(t *testing.T) {
	g := MustNewGrid(Dimensions{Width: 12, Height: 1, Depth: 12}, unitTile)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for x := 0; x < 12; x++ {
			_ = g.RemoveCell(Cell{X: x, Z: 6})
		}
	}()

	for i := 0; i < 50; i++ {
		for _, tile := range g.Tiles() {
			n := tile.Neighbors()
			require.Equal(t, len(n), tile.Degree())
			require.LessOrEqual(t, len(n), 4)
		}
	}
	<-done

	for _, tile := range g.Tiles() {
		for _, n := range tile.Neighbors() {
			other, err := g.GetTile(n)
			require.NoError(t, err)
			assert.NotEqual(t, 6, other.Cell.Z)
		}
	}
	assert.Equal(t, 12*11, g.LiveTileCount())
}

func TestModeParsing(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
	}{
		{"astar", ModeAStar},
		{"A*", ModeAStar},
		{"dijkstra", ModeUniformCost},
		{"uniform", ModeUniformCost},
		{"", ModeUniformCost},
	}
	for _, c := range cases {
		got, err := ParseMode(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseMode("greedy")
	require.Error(t, err)
	assert.Equal(t, "astar", ModeAStar.String())
	assert.Equal(t, "uniform", ModeUniformCost.String())
}
