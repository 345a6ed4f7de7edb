package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/tilenav/agent"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
	"github.com/milk9111/tilenav/prefabs"
)

func flatGrid(t *testing.T) *navgrid.Grid {
	t.Helper()
	return navgrid.MustNewGrid(navgrid.Dimensions{Width: 4, Height: 1, Depth: 4}, common.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
}

func newPlanner(t *testing.T, g *navgrid.Grid, name string) *agent.Planner {
	t.Helper()
	p, err := agent.NewPlanner(g, prefabs.AgentSpec{Name: name, Mode: "astar", Speed: 2, Brain: prefabs.BrainDecision})
	require.NoError(t, err)
	return p
}

func TestWorldEntityLifecycle(t *testing.T) {
	cases := []struct {
		name         string
		create       int
		destroyIndex int // -1 = none
	}{
		{"single", 1, 0},
		{"three_create_destroy_middle", 3, 1},
		{"none_destroy", 2, -1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := flatGrid(t)
			w := NewWorld(g)
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, w.Spawn(newPlanner(t, g, "a")))
			}
			require.Len(t, w.Entities(), c.create)

			if c.destroyIndex >= 0 {
				e := ents[c.destroyIndex]
				require.True(t, w.Despawn(e))
				assert.False(t, w.IsAlive(e))
				assert.False(t, w.Despawn(e))
				_, ok := w.Planner(e)
				assert.False(t, ok)
				assert.Len(t, w.Entities(), c.create-1)
			}
		})
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	g := flatGrid(t)
	w := NewWorld(g)

	first := w.Spawn(newPlanner(t, g, "first"))
	require.True(t, w.Despawn(first))

	second := w.Spawn(newPlanner(t, g, "second"))
	assert.Equal(t, first.id(), second.id())
	assert.NotEqual(t, first, second)
	assert.False(t, w.IsAlive(first))
	assert.True(t, second.Valid())
	assert.Equal(t, "1v1", second.String())

	p, ok := w.Planner(second)
	require.True(t, ok)
	assert.Equal(t, "second", p.Agent.Name)

	assert.False(t, Entity(0).Valid())
}

func TestSparseSetSwapRemove(t *testing.T) {
	var s SparseSet[string]
	s.Set(1, "a")
	s.Set(3, "c")
	s.Set(2, "b")
	s.Set(3, "C")
	require.Equal(t, 3, s.Len())

	require.True(t, s.Remove(1))
	assert.False(t, s.Remove(1))
	assert.False(t, s.Has(1))

	v, ok := s.Get(3)
	require.True(t, ok)
	assert.Equal(t, "C", v)
	v, ok = s.Get(2)
	require.True(t, ok)
	assert.Equal(t, "b", v)
	assert.ElementsMatch(t, []uint32{2, 3}, s.IDs())

	_, ok = s.Get(0)
	assert.False(t, ok)
	_, ok = s.Get(40)
	assert.False(t, ok)
}

func TestWorldUpdateRaisesEvents(t *testing.T) {
	g := flatGrid(t)
	w := NewWorld(g)
	e := w.Spawn(newPlanner(t, g, "hunter"))

	assert.Empty(t, w.Update(0.1))
	assert.Equal(t, 1, w.Tick())

	goal := navgrid.Cell{X: 3, Z: 3}
	w.SetTarget(g.CellToWorld(goal))

	var events []Event
	for i := 0; i < 200; i++ {
		events = append(events, w.Update(0.1)...)
		if len(events) >= 2 {
			break
		}
	}

	require.Len(t, events, 2)
	assert.Equal(t, EventStateChanged, events[0].Kind)
	assert.Equal(t, e, events[0].Entity)
	assert.Equal(t, agent.StatePatrol, events[0].From)
	assert.Equal(t, agent.StateChase, events[0].To)
	assert.Contains(t, events[0].String(), "patrol->chase")

	assert.Equal(t, EventArrived, events[1].Kind)
	assert.Equal(t, goal, events[1].Cell)

	w.ClearTarget()
	events = w.Update(0.1)
	require.Len(t, events, 1)
	assert.Equal(t, agent.StateChase, events[0].From)
	assert.Equal(t, agent.StatePatrol, events[0].To)
	assert.Zero(t, w.Events().Len())
}

func TestFromSpecSpawnsEveryAgent(t *testing.T) {
	spec, err := prefabs.LoadGridSpec("warehouse")
	require.NoError(t, err)

	w, err := FromSpec(spec)
	require.NoError(t, err)
	require.Equal(t, 1, w.Len())

	var names []string
	w.Each(func(_ Entity, p *agent.Planner) { names = append(names, p.Agent.Name) })
	assert.Equal(t, []string{"forklift"}, names)

	var ticks int
	w = NewWorld(w.Grid, SystemFunc(func(w *World, dt float64) { ticks++ }))
	w.Update(0.1)
	w.Update(0.1)
	assert.Equal(t, 2, ticks)
}
