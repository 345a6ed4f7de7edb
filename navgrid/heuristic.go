package navgrid

import (
	"fmt"
	"strings"

	"github.com/milk9111/tilenav/common"
)

// Mode selects the search heuristic.
type Mode int

const (
	// ModeUniformCost is Dijkstra-style search: the heuristic is always zero.
	ModeUniformCost Mode = iota
	// ModeAStar uses the Manhattan distance to the goal in cell units.
	ModeAStar
)

func (m Mode) String() string {
	switch m {
	case ModeUniformCost:
		return "uniform"
	case ModeAStar:
		return "astar"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Heuristic returns the mode's heuristic function.
func (m Mode) Heuristic() Heuristic {
	if m == ModeAStar {
		return ManhattanHeuristic
	}
	return ZeroHeuristic
}

// ParseMode accepts "uniform", "dijkstra", "ucs", "astar" and "a*".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uniform", "dijkstra", "ucs", "":
		return ModeUniformCost, nil
	case "astar", "a*":
		return ModeAStar, nil
	default:
		return 0, fmt.Errorf("navgrid: unknown search mode %q", s)
	}
}

// Heuristic estimates the remaining cost from a to b. It must never
// overestimate for searches to stay optimal.
type Heuristic func(a, b Cell) float64

func ZeroHeuristic(_, _ Cell) float64 {
	return 0
}

// ManhattanHeuristic is admissible and consistent on a 4-connected unit-cost
// grid.
func ManhattanHeuristic(a, b Cell) float64 {
	return float64(common.AbsInt(a.X-b.X) + common.AbsInt(a.Y-b.Y) + common.AbsInt(a.Z-b.Z))
}
