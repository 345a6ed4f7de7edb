package navgrid

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph exports the live tiles and links as a gonum graph. Node ids are tile
// ids. The result is a snapshot and does not track later removals.
func (g *Grid) Graph() *simple.UndirectedGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.graphLocked()
}

// graphLocked expects the caller to hold g.mu.
func (g *Grid) graphLocked() *simple.UndirectedGraph {
	out := simple.NewUndirectedGraph()
	for _, t := range g.tiles {
		if t != nil {
			out.AddNode(simple.Node(t.ID))
		}
	}
	for _, t := range g.tiles {
		if t == nil {
			continue
		}
		for _, n := range t.neighbors {
			if t.ID < n {
				out.SetEdge(out.NewEdge(simple.Node(t.ID), simple.Node(n)))
			}
		}
	}
	return out
}

// Connected reports whether any path joins a and b. Out-of-range or removed
// cells are never connected.
func (g *Grid) Connected(a, b Cell) bool {
	ai, err := g.CellToIndex(a)
	if err != nil {
		return false
	}
	bi, err := g.CellToIndex(b)
	if err != nil {
		return false
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.tiles[ai] == nil || g.tiles[bi] == nil {
		return false
	}
	labels, _ := g.regionLabels()
	return labels[ai] == labels[bi]
}

// Regions groups live tile ids into connected components. Components are
// ordered by their lowest tile id and ids within one are ascending.
func (g *Grid) Regions() [][]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	labels, count := g.regionLabels()
	out := make([][]int, count)
	for idx, l := range labels {
		if l >= 0 {
			out[l] = append(out[l], idx)
		}
	}
	return out
}

// regionLabels returns the cached component label of every tile index and
// the number of components, computing them on first use after a removal.
// Callers hold g.mu.
func (g *Grid) regionLabels() ([]int, int) {
	g.regionMu.Lock()
	defer g.regionMu.Unlock()
	if g.regions != nil {
		return g.regions, g.regionCount
	}

	raw := make([]int, len(g.tiles))
	for i := range raw {
		raw[i] = -1
	}
	for i, comp := range topo.ConnectedComponents(g.graphLocked()) {
		for _, n := range comp {
			raw[n.ID()] = i
		}
	}

	// relabel in index order so labels do not depend on gonum's ordering
	labels := make([]int, len(raw))
	seen := make(map[int]int)
	for idx, r := range raw {
		if r < 0 {
			labels[idx] = -1
			continue
		}
		l, ok := seen[r]
		if !ok {
			l = len(seen)
			seen[r] = l
		}
		labels[idx] = l
	}

	g.regions, g.regionCount = labels, len(seen)
	logger.Debug("regions computed", "regions", g.regionCount, "tiles", g.live)
	return g.regions, g.regionCount
}

// dropRegions expects the caller to hold g.mu for writing.
func (g *Grid) dropRegions() {
	g.regionMu.Lock()
	g.regions, g.regionCount = nil, 0
	g.regionMu.Unlock()
}
