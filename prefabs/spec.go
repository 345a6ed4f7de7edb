package prefabs

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
)

var ErrInvalidSpec = errors.New("prefabs: invalid spec")

// Agent brains.
const (
	BrainFSM      = "fsm"
	BrainTree     = "tree"
	BrainDecision = "decision"
)

// defaultTileHalfSize gives unit spacing between tile centres.
const defaultTileHalfSize = 0.5

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

type GridSpec struct {
	Name       string         `yaml:"name"`
	Dimensions DimensionsSpec `yaml:"dimensions"`
	TileSize   Vec3Spec       `yaml:"tile_size"`
	Holes      []CellSpec     `yaml:"holes"`
	Agents     []AgentSpec    `yaml:"agents"`
}

type DimensionsSpec struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`
}

type Vec3Spec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vec3Spec) Vec3() common.Vec3 {
	return common.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// CellSpec addresses a tile; Y is the layer and defaults to 0.
type CellSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

func (c CellSpec) Cell() navgrid.Cell {
	return navgrid.Cell{X: c.X, Y: c.Y, Z: c.Z}
}

type AgentSpec struct {
	Name              string     `yaml:"name"`
	Speed             float64    `yaml:"speed"`
	WaypointThreshold float64    `yaml:"waypoint_threshold"`
	Mode              string     `yaml:"mode"`
	Brain             string     `yaml:"brain"`
	SightRange        float64    `yaml:"sight_range"`
	Patrol            []CellSpec `yaml:"patrol"`
	FSM               *FSMSpec   `yaml:"fsm"`
}

// FSMSpec describes a guarded state machine. Each transition names either a
// built-in condition (When) or a tengo script (Script).
type FSMSpec struct {
	Initial     string                      `yaml:"initial"`
	Transitions map[string][]TransitionSpec `yaml:"transitions"`
}

type TransitionSpec struct {
	To     string `yaml:"to"`
	When   string `yaml:"when"`
	Script string `yaml:"script"`
}

// LoadGridSpec loads grids/<name>.yaml, preferring an on-disk copy under
// DiskDir over the embedded one. The extension is optional.
func LoadGridSpec(name string) (*GridSpec, error) {
	file := gridFileName(name)
	spec, err := LoadSpec[GridSpec](file)
	if err != nil {
		return nil, err
	}
	spec.applyDefaults(name)
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: validate %s: %w", file, err)
	}
	return &spec, nil
}

// ParseGridSpec decodes a spec from raw YAML.
func ParseGridSpec(data []byte) (*GridSpec, error) {
	var spec GridSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal grid spec: %w", err)
	}
	spec.applyDefaults("")
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: validate grid spec: %w", err)
	}
	return &spec, nil
}

func (s *GridSpec) applyDefaults(name string) {
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if s.Dimensions.Height == 0 {
		s.Dimensions.Height = 1
	}
	for _, v := range []*float64{&s.TileSize.X, &s.TileSize.Y, &s.TileSize.Z} {
		if *v == 0 {
			*v = defaultTileHalfSize
		}
	}
	for i := range s.Agents {
		a := &s.Agents[i]
		if a.Speed <= 0 {
			a.Speed = 1
		}
		if a.WaypointThreshold <= 0 {
			a.WaypointThreshold = 0.3
		}
		if a.Mode == "" {
			a.Mode = "astar"
		}
		if a.Brain == "" {
			a.Brain = BrainFSM
		}
	}
}

func (s *GridSpec) NavDimensions() navgrid.Dimensions {
	return navgrid.Dimensions{Width: s.Dimensions.Width, Height: s.Dimensions.Height, Depth: s.Dimensions.Depth}
}

// Validate checks dimensions, hole and patrol cells, and agent modes.
func (s *GridSpec) Validate() error {
	dims := s.NavDimensions()
	if !dims.Valid() {
		return fmt.Errorf("%w: dimensions %s", ErrInvalidSpec, dims)
	}
	if s.TileSize.X <= 0 || s.TileSize.Z <= 0 || s.TileSize.Y < 0 || (s.TileSize.Y == 0 && dims.Height > 1) {
		return fmt.Errorf("%w: tile_size %s must be positive", ErrInvalidSpec, s.TileSize.Vec3())
	}
	inBounds := func(c CellSpec) bool {
		return c.X >= 0 && c.X < dims.Width && c.Y >= 0 && c.Y < dims.Height && c.Z >= 0 && c.Z < dims.Depth
	}
	for i, h := range s.Holes {
		if !inBounds(h) {
			return fmt.Errorf("%w: hole %d at %s outside %s", ErrInvalidSpec, i, h.Cell(), dims)
		}
	}
	for _, a := range s.Agents {
		if a.Name == "" {
			return fmt.Errorf("%w: agent without name", ErrInvalidSpec)
		}
		if _, err := navgrid.ParseMode(a.Mode); err != nil {
			return fmt.Errorf("%w: agent %s: %v", ErrInvalidSpec, a.Name, err)
		}
		switch a.Brain {
		case BrainFSM, BrainTree, BrainDecision:
		default:
			return fmt.Errorf("%w: agent %s: unknown brain %q", ErrInvalidSpec, a.Name, a.Brain)
		}
		for i, p := range a.Patrol {
			if !inBounds(p) {
				return fmt.Errorf("%w: agent %s patrol point %d at %s outside %s", ErrInvalidSpec, a.Name, i, p.Cell(), dims)
			}
		}
		if a.FSM != nil {
			for from, ts := range a.FSM.Transitions {
				for _, t := range ts {
					if t.To == "" {
						return fmt.Errorf("%w: agent %s transition from %s has no target", ErrInvalidSpec, a.Name, from)
					}
					if (t.When == "") == (t.Script == "") {
						return fmt.Errorf("%w: agent %s transition %s->%s needs exactly one of when/script", ErrInvalidSpec, a.Name, from, t.To)
					}
				}
			}
		}
	}
	return nil
}

// Build creates the grid and removes every hole. Duplicate holes are
// tolerated.
func (s *GridSpec) Build() (*navgrid.Grid, error) {
	g, err := navgrid.NewGrid(s.NavDimensions(), s.TileSize.Vec3())
	if err != nil {
		return nil, fmt.Errorf("prefabs: build %s: %w", s.Name, err)
	}
	for _, h := range s.Holes {
		if err := g.RemoveCell(h.Cell()); err != nil && !errors.Is(err, navgrid.ErrTileRemoved) {
			return nil, fmt.Errorf("prefabs: build %s: %w", s.Name, err)
		}
	}
	logger.Debug("grid spec built", "name", s.Name, "dims", s.NavDimensions(), "holes", len(s.Holes))
	return g, nil
}

// Agent returns the named agent spec.
func (s *GridSpec) Agent(name string) (AgentSpec, bool) {
	for _, a := range s.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentSpec{}, false
}

func gridFileName(name string) string {
	clean := cleanPrefabPath(name)
	if !strings.HasPrefix(clean, "grids/") {
		clean = "grids/" + clean
	}
	if !isSpecFile(clean) {
		clean += ".yaml"
	}
	return clean
}
