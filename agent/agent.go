package agent

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
	"github.com/milk9111/tilenav/prefabs"
)

// Agent is a point that walks grid paths. It is not safe for concurrent use.
type Agent struct {
	ID       uuid.UUID
	Name     string
	Position common.Vec3
	Speed    float64
	Mode     navgrid.Mode
	Follower *Follower
}

func New(name string, pos common.Vec3, speed, threshold float64, mode navgrid.Mode) *Agent {
	return &Agent{
		ID:       uuid.New(),
		Name:     name,
		Position: pos,
		Speed:    speed,
		Mode:     mode,
		Follower: NewFollower(threshold),
	}
}

// FromSpec creates an agent standing on its first patrol cell, or on the
// origin cell when it has no patrol.
func FromSpec(g *navgrid.Grid, spec prefabs.AgentSpec) (*Agent, error) {
	mode, err := navgrid.ParseMode(spec.Mode)
	if err != nil {
		return nil, fmt.Errorf("agent: %s: %w", spec.Name, err)
	}
	var start navgrid.Cell
	if len(spec.Patrol) > 0 {
		start = spec.Patrol[0].Cell()
	}
	if !g.InBounds(start) {
		return nil, fmt.Errorf("agent: %s: start %s: %w", spec.Name, start, navgrid.ErrIndexOutOfRange)
	}
	return New(spec.Name, g.CellToWorld(start), spec.Speed, spec.WaypointThreshold, mode), nil
}

// Cell returns the grid cell nearest to the agent.
func (a *Agent) Cell(g *navgrid.Grid) navgrid.Cell {
	return g.WorldToGridCell(a.Position)
}

// MoveTo plans a path to dst and hands it to the follower. An unreachable
// destination clears the current path.
func (a *Agent) MoveTo(g *navgrid.Grid, dst common.Vec3) (navgrid.Path, error) {
	path, err := navgrid.FindPath(g, a.Position, dst, a.Mode)
	if err != nil {
		return path, fmt.Errorf("agent: %s: move to %s: %w", a.Name, dst, err)
	}
	if !path.Found {
		a.Follower.Clear()
		return path, nil
	}
	a.Follower.SetPath(path.Waypoints)
	return path, nil
}

// Tick advances the agent along its path and reports whether it is still
// moving.
func (a *Agent) Tick(dt float64) bool {
	a.Position = a.Follower.Step(a.Position, a.Speed, dt)
	return a.Follower.Active()
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s(%s) at %s", a.Name, a.ID.String()[:8], a.Position)
}
