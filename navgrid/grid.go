package navgrid

import (
	"fmt"
	"math"
	"sync"

	"github.com/milk9111/tilenav/common"
)

// Dimensions is the tile count along each axis. Height is the number of
// vertical layers and is 1 for flat grids.
type Dimensions struct {
	Width  int
	Height int
	Depth  int
}

func (d Dimensions) Count() int {
	return d.Width * d.Height * d.Depth
}

func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0 && d.Depth > 0
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Depth)
}

// Grid owns a dense arena of tiles in row-major order:
// index = y*(Width*Depth) + z*Width + x.
//
// Searches and enumeration hold the read lock; RemoveTile holds the write
// lock, so structural changes never interleave with a traversal. Tiles
// handed out by GetTile, TileAt and Tiles are snapshots.
type Grid struct {
	mu       sync.RWMutex
	dims     Dimensions
	tileSize common.Vec3
	tiles    []*Tile
	live     int

	// regions holds a component label per tile index, -1 for holes. Readers
	// fill it under regionMu while holding mu.RLock; RemoveTile drops it.
	regionMu    sync.Mutex
	regions     []int
	regionCount int
}

// NewGrid allocates, positions, and links every tile. tileSize is the
// half-extent of one tile; neighbouring tiles sit tileSize*2 apart.
func NewGrid(dims Dimensions, tileSize common.Vec3) (*Grid, error) {
	if !dims.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDimensions, dims)
	}
	// Y may be zero on a single layer; every other axis needs a spacing.
	if tileSize.X <= 0 || tileSize.Z <= 0 || tileSize.Y < 0 || (tileSize.Y == 0 && dims.Height > 1) {
		return nil, fmt.Errorf("%w: tile size %s", ErrInvalidDimensions, tileSize)
	}

	g := &Grid{
		dims:     dims,
		tileSize: tileSize,
		tiles:    make([]*Tile, dims.Count()),
	}

	for y := 0; y < dims.Height; y++ {
		for z := 0; z < dims.Depth; z++ {
			for x := 0; x < dims.Width; x++ {
				cell := Cell{X: x, Y: y, Z: z}
				id := g.index(cell)
				g.tiles[id] = &Tile{
					ID:       id,
					Cell:     cell,
					Position: g.cellToWorld(cell),
				}
			}
		}
	}
	g.live = len(g.tiles)

	// left, right, front, back within the same layer
	for _, t := range g.tiles {
		c := t.Cell
		t.neighbors = make([]int, 0, 4)
		if c.X > 0 {
			t.neighbors = append(t.neighbors, g.index(Cell{X: c.X - 1, Y: c.Y, Z: c.Z}))
		}
		if c.X < dims.Width-1 {
			t.neighbors = append(t.neighbors, g.index(Cell{X: c.X + 1, Y: c.Y, Z: c.Z}))
		}
		if c.Z < dims.Depth-1 {
			t.neighbors = append(t.neighbors, g.index(Cell{X: c.X, Y: c.Y, Z: c.Z + 1}))
		}
		if c.Z > 0 {
			t.neighbors = append(t.neighbors, g.index(Cell{X: c.X, Y: c.Y, Z: c.Z - 1}))
		}
	}

	logger.Debug("grid built", "dims", dims, "tiles", len(g.tiles))
	return g, nil
}

// MustNewGrid is NewGrid for fixtures; it panics on invalid input.
func MustNewGrid(dims Dimensions, tileSize common.Vec3) *Grid {
	g, err := NewGrid(dims, tileSize)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Grid) Dimensions() Dimensions {
	return g.dims
}

// TileSize returns the tile half-extent the grid was built with.
func (g *Grid) TileSize() common.Vec3 {
	return g.tileSize
}

// TileCount is Width*Height*Depth, holes included.
func (g *Grid) TileCount() int {
	return len(g.tiles)
}

// LiveTileCount is the number of tiles that have not been removed.
func (g *Grid) LiveTileCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.live
}

func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.dims.Width &&
		c.Y >= 0 && c.Y < g.dims.Height &&
		c.Z >= 0 && c.Z < g.dims.Depth
}

// CellToIndex maps a cell to its linear index.
func (g *Grid) CellToIndex(c Cell) (int, error) {
	if !g.InBounds(c) {
		return -1, fmt.Errorf("%w: cell %s outside %s", ErrIndexOutOfRange, c, g.dims)
	}
	return g.index(c), nil
}

// IndexToCell maps a linear index back to its cell.
func (g *Grid) IndexToCell(idx int) (Cell, error) {
	if idx < 0 || idx >= len(g.tiles) {
		return Cell{}, fmt.Errorf("%w: index %d outside [0,%d)", ErrIndexOutOfRange, idx, len(g.tiles))
	}
	return g.cell(idx), nil
}

// CellToWorld returns the world position of a cell, whether or not its tile
// still exists.
func (g *Grid) CellToWorld(c Cell) common.Vec3 {
	return g.cellToWorld(c)
}

// WorldToGridCell converts a world position to the nearest cell. Each axis is
// clamped into the grid, so positions outside the footprint resolve to the
// closest edge cell rather than failing.
func (g *Grid) WorldToGridCell(pos common.Vec3) Cell {
	return Cell{
		X: nearestCell(pos.X, g.tileSize.X, g.dims.Width),
		Y: nearestCell(pos.Y, g.tileSize.Y, g.dims.Height),
		Z: nearestCell(pos.Z, g.tileSize.Z, g.dims.Depth),
	}
}

// GetTile returns a snapshot of the tile at a linear index. Later removals
// are not reflected in it.
func (g *Grid) GetTile(idx int) (*Tile, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, err := g.tileByIndex(idx)
	if err != nil {
		return nil, err
	}
	return t.clone(), nil
}

// GetTile3D looks a tile up by column, row and layer.
func (g *Grid) GetTile3D(x, z, layer int) (*Tile, error) {
	return g.TileAt(Cell{X: x, Y: layer, Z: z})
}

// TileAt looks a tile up by cell.
func (g *Grid) TileAt(c Cell) (*Tile, error) {
	idx, err := g.CellToIndex(c)
	if err != nil {
		return nil, err
	}
	return g.GetTile(idx)
}

// RemoveTile unlinks a tile from all of its neighbours and empties its slot.
func (g *Grid) RemoveTile(idx int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, err := g.tileByIndex(idx)
	if err != nil {
		return err
	}
	for _, n := range t.neighbors {
		if other := g.tiles[n]; other != nil {
			other.unlink(idx)
		}
	}
	t.neighbors = nil
	g.tiles[idx] = nil
	g.live--
	g.dropRegions()

	logger.Debug("tile removed", "id", idx, "cell", t.Cell)
	return nil
}

// RemoveCell is RemoveTile addressed by cell.
func (g *Grid) RemoveCell(c Cell) error {
	idx, err := g.CellToIndex(c)
	if err != nil {
		return err
	}
	return g.RemoveTile(idx)
}

// ForEachTile visits every live tile in index order under the read lock.
// fn must not mutate the grid or keep the tile past its return.
func (g *Grid) ForEachTile(fn func(t *Tile)) {
	if fn == nil {
		return
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, t := range g.tiles {
		if t != nil {
			fn(t)
		}
	}
}

// Tiles returns snapshots of the live tiles in index order.
func (g *Grid) Tiles() []*Tile {
	out := make([]*Tile, 0, len(g.tiles))
	g.ForEachTile(func(t *Tile) {
		out = append(out, t.clone())
	})
	return out
}

// Link is an undirected adjacency between two tile ids, From < To.
type Link struct {
	From int
	To   int
}

// Links enumerates each live adjacency once.
func (g *Grid) Links() []Link {
	out := make([]Link, 0, len(g.tiles)*2)
	g.ForEachTile(func(t *Tile) {
		for _, n := range t.neighbors {
			if t.ID < n {
				out = append(out, Link{From: t.ID, To: n})
			}
		}
	})
	return out
}

func (g *Grid) index(c Cell) int {
	return c.Y*(g.dims.Width*g.dims.Depth) + c.Z*g.dims.Width + c.X
}

func (g *Grid) cell(idx int) Cell {
	layer := g.dims.Width * g.dims.Depth
	y := idx / layer
	rem := idx % layer
	return Cell{X: rem % g.dims.Width, Y: y, Z: rem / g.dims.Width}
}

func (g *Grid) cellToWorld(c Cell) common.Vec3 {
	return common.Vec3{
		X: float64(c.X) * g.tileSize.X * 2,
		Y: float64(c.Y) * g.tileSize.Y * 2,
		Z: float64(c.Z) * g.tileSize.Z * 2,
	}
}

// tileByIndex expects the caller to hold g.mu.
func (g *Grid) tileByIndex(idx int) (*Tile, error) {
	if idx < 0 || idx >= len(g.tiles) {
		return nil, fmt.Errorf("%w: index %d outside [0,%d)", ErrIndexOutOfRange, idx, len(g.tiles))
	}
	t := g.tiles[idx]
	if t == nil {
		return nil, fmt.Errorf("%w: index %d", ErrTileRemoved, idx)
	}
	return t, nil
}

func nearestCell(v, halfSize float64, n int) int {
	spacing := halfSize * 2
	if spacing > 0 {
		v /= spacing
	}
	v = common.Clamp(v, 0, float64(n-1))
	return int(math.Round(v))
}
