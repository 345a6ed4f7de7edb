package sim

import (
	"github.com/milk9111/tilenav/agent"
	"github.com/milk9111/tilenav/ai"
)

// DefaultSystems ticks planners and then reports state changes and arrivals.
func DefaultSystems() []System {
	return []System{
		NewPlannerSystem(),
		NewStateEventSystem(),
		NewArrivalSystem(),
	}
}

type PlannerSystem struct{}

func NewPlannerSystem() *PlannerSystem {
	return &PlannerSystem{}
}

func (s *PlannerSystem) Update(w *World, dt float64) {
	w.Each(func(_ Entity, p *agent.Planner) {
		p.Tick(dt)
	})
}

// StateEventSystem raises EventStateChanged when a planner's state differs
// from the one seen on the previous tick.
type StateEventSystem struct {
	last map[Entity]ai.StateID
}

func NewStateEventSystem() *StateEventSystem {
	return &StateEventSystem{last: map[Entity]ai.StateID{}}
}

func (s *StateEventSystem) Update(w *World, _ float64) {
	seen := make(map[Entity]bool, w.Len())
	w.Each(func(e Entity, p *agent.Planner) {
		seen[e] = true
		state := p.State()
		prev, ok := s.last[e]
		s.last[e] = state
		if !ok || prev == state {
			return
		}
		w.events.Push(Event{
			Tick:   w.tick,
			Entity: e,
			Kind:   EventStateChanged,
			From:   prev,
			To:     state,
			Cell:   p.Agent.Cell(w.Grid),
		})
	})
	for e := range s.last {
		if !seen[e] {
			delete(s.last, e)
		}
	}
}

// ArrivalSystem raises EventArrived when a planner's follower finishes its
// path.
type ArrivalSystem struct {
	moving map[Entity]bool
}

func NewArrivalSystem() *ArrivalSystem {
	return &ArrivalSystem{moving: map[Entity]bool{}}
}

func (s *ArrivalSystem) Update(w *World, _ float64) {
	seen := make(map[Entity]bool, w.Len())
	w.Each(func(e Entity, p *agent.Planner) {
		seen[e] = true
		active := p.Agent.Follower.Active()
		if s.moving[e] && !active {
			w.events.Push(Event{
				Tick:   w.tick,
				Entity: e,
				Kind:   EventArrived,
				Cell:   p.Agent.Cell(w.Grid),
			})
		}
		s.moving[e] = active
	})
	for e := range s.moving {
		if !seen[e] {
			delete(s.moving, e)
		}
	}
}
