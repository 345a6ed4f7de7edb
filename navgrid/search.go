package navgrid

import (
	"container/heap"
	"math"

	"github.com/milk9111/tilenav/common"
)

// moveCost is the cost of every link. Weighted terrain is not supported.
const moveCost = 1.0

// Path is the outcome of a search. When Found is false Waypoints and Cells
// are empty.
type Path struct {
	Found     bool
	Waypoints []common.Vec3
	Cells     []Cell
	Cost      float64
	// Expanded is the number of records settled by the search.
	Expanded int
}

// Len is the number of links walked along the path.
func (p Path) Len() int {
	if len(p.Cells) == 0 {
		return 0
	}
	return len(p.Cells) - 1
}

// SearchOptions parameterises Search.
type SearchOptions struct {
	// Heuristic defaults to ZeroHeuristic.
	Heuristic Heuristic
	// MaxExpanded stops the search after that many settled records. Zero
	// means unbounded.
	MaxExpanded int
}

// FindPath resolves two world positions to their nearest cells and searches
// between them.
func FindPath(g *Grid, start, end common.Vec3, mode Mode) (Path, error) {
	return FindPathCells(g, g.WorldToGridCell(start), g.WorldToGridCell(end), mode)
}

// FindPathCells searches between two cells with the given mode.
func FindPathCells(g *Grid, start, end Cell, mode Mode) (Path, error) {
	return Search(g, start, end, SearchOptions{Heuristic: mode.Heuristic()})
}

// Search runs a best-first search ordered by g+h. An unreachable goal is not
// an error: the returned Path has Found set to false. A goal in another
// region is rejected without expanding anything. Cells outside the grid
// fail with ErrIndexOutOfRange before any work is done.
func Search(g *Grid, start, end Cell, opts SearchOptions) (Path, error) {
	startIdx, err := g.CellToIndex(start)
	if err != nil {
		return Path{}, err
	}
	goalIdx, err := g.CellToIndex(end)
	if err != nil {
		return Path{}, err
	}
	h := opts.Heuristic
	if h == nil {
		h = ZeroHeuristic
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	startTile, goalTile := g.tiles[startIdx], g.tiles[goalIdx]
	if startTile == nil || goalTile == nil {
		logger.Debug("endpoint removed", "start", start, "goal", end)
		return Path{}, nil
	}
	if startIdx == goalIdx {
		return Path{
			Found:     true,
			Waypoints: []common.Vec3{startTile.Position},
			Cells:     []Cell{startTile.Cell},
		}, nil
	}
	if labels, _ := g.regionLabels(); labels[startIdx] != labels[goalIdx] {
		logger.Debug("goal in another region", "start", start, "goal", end)
		return Path{}, nil
	}

	records := make([]searchRecord, len(g.tiles))
	for i := range records {
		records[i] = searchRecord{tile: i, g: math.Inf(1), prev: -1, index: -1}
	}

	open := &openSet{}
	heap.Init(open)
	var seq uint64

	startRec := &records[startIdx]
	startRec.g = 0
	startRec.h = h(start, end)
	startRec.hSet = true
	startRec.seq = seq
	seq++
	heap.Push(open, startRec)

	expanded := 0
	for open.Len() > 0 {
		current := heap.Pop(open).(*searchRecord)
		current.settled = true
		expanded++

		if current.tile == goalIdx {
			path := g.reconstruct(records, startIdx, goalIdx)
			path.Expanded = expanded
			logger.Debug("path found", "start", start, "goal", end, "cost", path.Cost, "expanded", expanded)
			return path, nil
		}
		if opts.MaxExpanded > 0 && expanded >= opts.MaxExpanded {
			logger.Debug("search limit reached", "start", start, "goal", end, "expanded", expanded)
			return Path{Expanded: expanded}, ErrSearchLimit
		}

		for _, n := range g.tiles[current.tile].neighbors {
			neighborTile := g.tiles[n]
			if neighborTile == nil {
				continue
			}
			rec := &records[n]
			if rec.settled {
				continue
			}
			tentative := current.g + moveCost
			if tentative >= rec.g {
				continue
			}
			rec.g = tentative
			if !rec.hSet {
				rec.h = h(neighborTile.Cell, end)
				rec.hSet = true
			}
			rec.prev = current.tile
			if rec.index < 0 {
				rec.seq = seq
				seq++
				heap.Push(open, rec)
			} else {
				heap.Fix(open, rec.index)
			}
		}
	}

	logger.Debug("goal unreachable", "start", start, "goal", end, "expanded", expanded)
	return Path{Expanded: expanded}, nil
}

// reconstruct walks predecessors back from the goal. Callers hold g.mu.
func (g *Grid) reconstruct(records []searchRecord, startIdx, goalIdx int) Path {
	cells := make([]Cell, 0, 32)
	waypoints := make([]common.Vec3, 0, 32)
	for cur := goalIdx; cur != -1; cur = records[cur].prev {
		t := g.tiles[cur]
		cells = append(cells, t.Cell)
		waypoints = append(waypoints, t.Position)
		if cur == startIdx {
			break
		}
	}

	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
		waypoints[i], waypoints[j] = waypoints[j], waypoints[i]
	}

	return Path{
		Found:     true,
		Waypoints: waypoints,
		Cells:     cells,
		Cost:      records[goalIdx].g,
	}
}
