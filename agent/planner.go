package agent

import (
	"fmt"
	"math"

	"github.com/milk9111/tilenav/ai"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
	"github.com/milk9111/tilenav/prefabs"
)

const (
	StatePatrol ai.StateID = "patrol"
	StateChase  ai.StateID = "chase"
)

const (
	// DefaultRepathTicks is how many ticks a path is trusted before it is
	// planned again toward the same goal.
	DefaultRepathTicks = 15

	spotScript = "has_target.tengo"
)

// Planner drives an agent between patrol points and chases a target once it
// is spotted. Distances are measured in tiles (Manhattan, layer included).
type Planner struct {
	Agent       *Agent
	Grid        *navgrid.Grid
	Patrol      []navgrid.Cell
	SightRange  float64
	RepathTicks int

	brain    string
	machine  *ai.Machine
	tree     ai.Behavior
	decision ai.Decision

	state       ai.StateID
	patrolIndex int
	target      *common.Vec3

	planned     bool
	reachable   bool
	goal        navgrid.Cell
	sinceRepath int
}

// NewPlanner builds the agent described by spec and the brain it names.
func NewPlanner(g *navgrid.Grid, spec prefabs.AgentSpec) (*Planner, error) {
	a, err := FromSpec(g, spec)
	if err != nil {
		return nil, err
	}

	p := &Planner{
		Agent:       a,
		Grid:        g,
		SightRange:  spec.SightRange,
		RepathTicks: DefaultRepathTicks,
		brain:       spec.Brain,
		state:       StatePatrol,
	}
	for _, c := range spec.Patrol {
		p.Patrol = append(p.Patrol, c.Cell())
	}

	switch spec.Brain {
	case prefabs.BrainFSM, "":
		p.brain = prefabs.BrainFSM
		err = p.buildMachine(spec.FSM)
	case prefabs.BrainTree:
		err = p.buildTree()
	case prefabs.BrainDecision:
		p.buildDecision()
	default:
		err = fmt.Errorf("%w: brain %q", ai.ErrUnknownState, spec.Brain)
	}
	if err != nil {
		return nil, fmt.Errorf("agent: %s: %w", spec.Name, err)
	}

	logger.Debug("planner ready", "agent", a.Name, "id", a.ID, "brain", p.brain, "patrol", len(p.Patrol))
	return p, nil
}

func (p *Planner) buildMachine(spec *prefabs.FSMSpec) error {
	m := ai.NewMachine(StatePatrol)
	m.AddState(StatePatrol, ai.StateDef{
		OnEnter: []ai.Action{p.replan, func() { p.patrolStep() }},
		While:   []ai.Action{func() { p.patrolStep() }},
	})
	m.AddState(StateChase, ai.StateDef{
		OnEnter: []ai.Action{p.replan, func() { p.chaseStep() }},
		While:   []ai.Action{func() { p.chaseStep() }},
		OnExit:  []ai.Action{p.Agent.Follower.Clear},
	})

	if spec == nil {
		m.AddTransition(StatePatrol, ai.Transition{To: StateChase, When: p.HasTarget, Name: "has_target"})
		m.AddTransition(StateChase, ai.Transition{To: StatePatrol, When: p.LostTarget, Name: "lost_target"})
		p.machine = m
		return m.Validate()
	}

	err := ai.ApplyFSMSpec(m, *spec, ai.FSMBindings{
		Guards: map[string]ai.Guard{
			"has_target":  p.HasTarget,
			"lost_target": p.LostTarget,
		},
		Vars: p.ScriptVars,
	})
	if err != nil {
		return err
	}
	p.machine = m
	return nil
}

// buildTree spots targets through the has_target script and falls back to
// patrolling.
func (p *Planner) buildTree() error {
	src, err := prefabs.LoadScript(spotScript)
	if err != nil {
		return fmt.Errorf("load %s: %w", spotScript, err)
	}
	spot, err := ai.CompileScript(spotScript, src, p.ScriptVars())
	if err != nil {
		return err
	}
	p.tree = ai.NewSelector(
		ai.NewSequence(spot.Behavior(p.ScriptVars), ai.BehaviorFunc(p.chaseStep)),
		ai.BehaviorFunc(p.patrolStep),
	)
	return nil
}

func (p *Planner) buildDecision() {
	p.decision = &ai.BoolDecision{
		Test:  p.HasTarget,
		True:  &ai.ActionDecision{Do: func() { p.chaseStep() }},
		False: &ai.ActionDecision{Do: func() { p.patrolStep() }},
	}
}

// Tick runs the brain once and then moves the agent.
func (p *Planner) Tick(dt float64) {
	p.sinceRepath++

	switch {
	case p.machine != nil:
		p.machine.Run()
	case p.tree != nil:
		p.tree.Run()
	case p.decision != nil:
		if _, err := ai.Evaluate(p.decision, 0); err != nil {
			logger.Error("decision failed", "agent", p.Agent.Name, "err", err)
		}
	}

	p.Agent.Tick(dt)
}

// State reports what the agent is currently doing.
func (p *Planner) State() ai.StateID {
	return p.state
}

func (p *Planner) Brain() string {
	return p.brain
}

// PatrolIndex is the index of the patrol point being walked to.
func (p *Planner) PatrolIndex() int {
	return p.patrolIndex
}

func (p *Planner) SetTarget(pos common.Vec3) {
	p.target = &pos
}

func (p *Planner) ClearTarget() {
	p.target = nil
}

func (p *Planner) Target() (common.Vec3, bool) {
	if p.target == nil {
		return common.Vec3{}, false
	}
	return *p.target, true
}

// TargetDistance is the tile distance to the target, or -1 without one.
func (p *Planner) TargetDistance() float64 {
	if p.target == nil {
		return -1
	}
	return navgrid.ManhattanHeuristic(p.Agent.Cell(p.Grid), p.Grid.WorldToGridCell(*p.target))
}

// HasTarget reports whether a target is set and within sight.
func (p *Planner) HasTarget() bool {
	if p.target == nil {
		return false
	}
	return p.TargetDistance() <= p.sightRange()
}

// sightRange is SightRange with zero or negative values read as unlimited.
func (p *Planner) sightRange() float64 {
	if p.SightRange <= 0 {
		return math.Inf(1)
	}
	return p.SightRange
}

// LostTarget reports whether the target has been cleared.
func (p *Planner) LostTarget() bool {
	return p.target == nil
}

// ScriptVars are the variables visible to condition scripts. has_target is
// true whenever a target is set, regardless of range. sight_range is +Inf
// when the agent has no sight limit.
func (p *Planner) ScriptVars() map[string]any {
	return map[string]any{
		"distance":    p.TargetDistance(),
		"sight_range": p.sightRange(),
		"has_target":  p.target != nil,
		"state":       string(p.state),
		"speed":       p.Agent.Speed,
	}
}

func (p *Planner) replan() {
	p.planned = false
}

func (p *Planner) patrolStep() ai.Status {
	p.setState(StatePatrol)
	if len(p.Patrol) == 0 {
		return ai.Failure
	}

	if !p.Agent.Follower.Active() && p.Agent.Cell(p.Grid) == p.Patrol[p.patrolIndex] {
		p.patrolIndex = (p.patrolIndex + 1) % len(p.Patrol)
		p.planned = false
	}
	if !p.goTo(p.Patrol[p.patrolIndex]) {
		return ai.Failure
	}
	return ai.Running
}

func (p *Planner) chaseStep() ai.Status {
	if p.target == nil {
		return ai.Failure
	}
	p.setState(StateChase)

	goal := p.Grid.WorldToGridCell(*p.target)
	if p.Agent.Cell(p.Grid) == goal && !p.Agent.Follower.Active() {
		return ai.Success
	}
	if !p.goTo(goal) {
		return ai.Failure
	}
	return ai.Running
}

func (p *Planner) setState(s ai.StateID) {
	if p.state == s {
		return
	}
	logger.Debug("state change", "agent", p.Agent.Name, "from", p.state, "to", s)
	p.state = s
	p.planned = false
}

// goTo keeps the follower on a path to goal, planning again when the goal
// changes or the current path is older than RepathTicks.
func (p *Planner) goTo(goal navgrid.Cell) bool {
	if p.planned && p.goal == goal && (p.RepathTicks <= 0 || p.sinceRepath < p.RepathTicks) {
		return p.reachable
	}

	from := p.Agent.Cell(p.Grid)
	p.planned, p.goal, p.sinceRepath = true, goal, 0

	path, err := navgrid.FindPathCells(p.Grid, from, goal, p.Agent.Mode)
	if err != nil || !path.Found {
		if err != nil {
			logger.Error("path search failed", "agent", p.Agent.Name, "err", err)
		} else {
			logger.Debug("goal unreachable", "agent", p.Agent.Name, "from", from, "goal", goal)
		}
		p.Agent.Follower.Clear()
		p.reachable = false
		return false
	}

	p.Agent.Follower.SetPath(path.Waypoints)
	p.reachable = true
	return true
}
