package ai

import (
	"fmt"

	"github.com/milk9111/tilenav/prefabs"
)

// ScriptLoader returns a script's source by name.
type ScriptLoader func(name string) ([]byte, error)

// FSMBindings resolves the names used in an FSM spec.
type FSMBindings struct {
	// Guards maps `when:` names to built-in conditions.
	Guards map[string]Guard
	// Vars supplies script variables. Its keys at compile time are the
	// variables scripts may reference.
	Vars func() map[string]any
	// Load defaults to prefabs.LoadScript.
	Load ScriptLoader
}

// ApplyFSMSpec sets the machine's initial state and appends the spec's
// transitions. States must already be registered on m.
func ApplyFSMSpec(m *Machine, spec prefabs.FSMSpec, b FSMBindings) error {
	if spec.Initial != "" {
		m.Initial = StateID(spec.Initial)
	}
	load := b.Load
	if load == nil {
		load = prefabs.LoadScript
	}

	var declared map[string]any
	if b.Vars != nil {
		declared = b.Vars()
	}
	compiled := map[string]*Script{}

	for from, ts := range spec.Transitions {
		for _, t := range ts {
			tr := Transition{To: StateID(t.To)}
			switch {
			case t.When != "":
				g, ok := b.Guards[t.When]
				if !ok {
					return fmt.Errorf("%w: %q (%s -> %s)", ErrUnknownCondition, t.When, from, t.To)
				}
				tr.When = g
				tr.Name = t.When
			case t.Script != "":
				s, ok := compiled[t.Script]
				if !ok {
					src, err := load(t.Script)
					if err != nil {
						return fmt.Errorf("ai: load script %s: %w", t.Script, err)
					}
					s, err = CompileScript(t.Script, src, declared)
					if err != nil {
						return err
					}
					compiled[t.Script] = s
				}
				tr.When = s.Guard(b.Vars)
				tr.Name = t.Script
			default:
				return fmt.Errorf("%w: transition %s -> %s has no condition", ErrUnknownCondition, from, t.To)
			}
			m.AddTransition(StateID(from), tr)
		}
	}

	return m.Validate()
}
