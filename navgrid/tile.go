package navgrid

import (
	"fmt"

	"github.com/milk9111/tilenav/common"
)

// Cell addresses a tile in grid space. Y is the vertical layer.
type Cell struct {
	X int
	Y int
	Z int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Tile is a single navigable node. Neighbours are ids into the owning grid's
// arena, never pointers.
type Tile struct {
	ID       int
	Cell     Cell
	Position common.Vec3

	neighbors []int
}

// Neighbors returns a copy of the tile's adjacency list.
func (t *Tile) Neighbors() []int {
	if t == nil || len(t.neighbors) == 0 {
		return nil
	}
	out := make([]int, len(t.neighbors))
	copy(out, t.neighbors)
	return out
}

// Degree is the number of live links from this tile.
func (t *Tile) Degree() int {
	if t == nil {
		return 0
	}
	return len(t.neighbors)
}

func (t *Tile) String() string {
	if t == nil {
		return "Tile <removed>"
	}
	return fmt.Sprintf("Tile %d", t.ID)
}

func (t *Tile) clone() *Tile {
	out := *t
	out.neighbors = t.Neighbors()
	return &out
}

func (t *Tile) unlink(id int) {
	for i, n := range t.neighbors {
		if n == id {
			t.neighbors = append(t.neighbors[:i], t.neighbors[i+1:]...)
			return
		}
	}
}
