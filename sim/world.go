package sim

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/milk9111/tilenav/agent"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
	"github.com/milk9111/tilenav/prefabs"
)

var logger = log.WithPrefix("sim")

// SetLogger replaces the package logger. A nil logger is ignored.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	logger = l
}

// System updates a world once per tick.
type System interface {
	Update(w *World, dt float64)
}

type SystemFunc func(w *World, dt float64)

func (f SystemFunc) Update(w *World, dt float64) {
	f(w, dt)
}

// World owns a grid, the planners walking it and the systems that tick them.
// It is not safe for concurrent use.
type World struct {
	Grid *navgrid.Grid

	entities entityStore
	planners SparseSet[*agent.Planner]
	systems  []System
	events   EventQueue
	tick     int
}

// NewWorld creates a world over g. Without explicit systems it runs
// DefaultSystems.
func NewWorld(g *navgrid.Grid, systems ...System) *World {
	if len(systems) == 0 {
		systems = DefaultSystems()
	}
	w := &World{Grid: g}
	for _, s := range systems {
		w.AddSystem(s)
	}
	return w
}

// FromSpec builds the spec's grid and spawns a planner for every agent in
// declaration order.
func FromSpec(spec *prefabs.GridSpec) (*World, error) {
	g, err := spec.Build()
	if err != nil {
		return nil, err
	}
	w := NewWorld(g)
	for _, as := range spec.Agents {
		p, err := agent.NewPlanner(g, as)
		if err != nil {
			return nil, fmt.Errorf("sim: %s: %w", spec.Name, err)
		}
		w.Spawn(p)
	}
	return w, nil
}

func (w *World) AddSystem(s System) {
	if s == nil {
		return
	}
	w.systems = append(w.systems, s)
}

func (w *World) Spawn(p *agent.Planner) Entity {
	e := w.entities.create()
	w.planners.Set(e.id(), p)
	logger.Debug("spawned", "entity", e, "agent", p.Agent.Name)
	return e
}

// Despawn removes e. Stale or unknown handles return false.
func (w *World) Despawn(e Entity) bool {
	if !w.entities.destroy(e) {
		return false
	}
	w.planners.Remove(e.id())
	return true
}

func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

func (w *World) Planner(e Entity) (*agent.Planner, bool) {
	if !w.IsAlive(e) {
		return nil, false
	}
	return w.planners.Get(e.id())
}

// Entities returns the live entities ordered by slot id.
func (w *World) Entities() []Entity {
	ids := append([]uint32(nil), w.planners.IDs()...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = w.entities.handle(id)
	}
	return out
}

// Each visits live planners ordered by slot id.
func (w *World) Each(fn func(Entity, *agent.Planner)) {
	for _, e := range w.Entities() {
		p, _ := w.planners.Get(e.id())
		fn(e, p)
	}
}

func (w *World) Len() int {
	return w.planners.Len()
}

// SetTarget gives every planner the same target.
func (w *World) SetTarget(pos common.Vec3) {
	w.Each(func(_ Entity, p *agent.Planner) { p.SetTarget(pos) })
}

func (w *World) ClearTarget() {
	w.Each(func(_ Entity, p *agent.Planner) { p.ClearTarget() })
}

// Tick is the number of completed updates.
func (w *World) Tick() int {
	return w.tick
}

func (w *World) Events() *EventQueue {
	return &w.events
}

// Update runs every system once and returns the events they raised.
func (w *World) Update(dt float64) []Event {
	w.tick++
	for _, s := range w.systems {
		s.Update(w, dt)
	}
	return w.events.Drain()
}
