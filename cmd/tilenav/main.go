package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/milk9111/tilenav/agent"
	"github.com/milk9111/tilenav/ai"
	"github.com/milk9111/tilenav/common"
	"github.com/milk9111/tilenav/navgrid"
	"github.com/milk9111/tilenav/prefabs"
	"github.com/milk9111/tilenav/sim"
)

const (
	exitOK     = 0
	exitError  = 1
	exitNoPath = 2
)

var logger = log.WithPrefix("tilenav")

type options struct {
	grid  string
	from  string
	to    string
	astar bool
	mode  string
	cells bool
	watch bool
	debug bool
	list  bool
	agent string
	ticks int
	dt    float64
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tilenav", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.grid, "grid", "courtyard", "grid spec name under prefabs/grids, or a path to a .yaml file")
	fs.StringVar(&opts.from, "from", "0,0,0", "start position x,y,z (or x,z)")
	fs.StringVar(&opts.to, "to", "", "goal position x,y,z (or x,z); defaults to the far corner of layer 0. With -agent, the target to chase")
	fs.BoolVar(&opts.astar, "astar", false, "use A* (shorthand for -mode astar)")
	fs.StringVar(&opts.mode, "mode", "uniform", "search mode: uniform or astar")
	fs.BoolVar(&opts.cells, "cells", false, "treat -from and -to as cell coordinates instead of world positions")
	fs.BoolVar(&opts.watch, "watch", false, "re-run the query whenever the grid spec changes on disk")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&opts.list, "list", false, "list the embedded grid specs and exit")
	fs.StringVar(&opts.agent, "agent", "", "simulate the named agent from the grid spec (or \"all\") instead of answering a path query")
	fs.IntVar(&opts.ticks, "ticks", 100, "ticks to simulate with -agent")
	fs.Float64Var(&opts.dt, "dt", 0.1, "seconds per simulated tick")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	setupLogging(stderr, opts.debug)

	if opts.list {
		for _, name := range prefabs.GridNames() {
			fmt.Fprintln(stdout, name)
		}
		return exitOK
	}

	code := execute(opts, stdout)
	if !opts.watch {
		return code
	}
	return watch(ctx, opts, stdout)
}

func setupLogging(w io.Writer, debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	base := log.NewWithOptions(w, log.Options{Level: level, ReportTimestamp: true})

	logger = base.WithPrefix("tilenav")
	navgrid.SetLogger(base.WithPrefix("navgrid"))
	prefabs.SetLogger(base.WithPrefix("prefabs"))
	ai.SetLogger(base.WithPrefix("ai"))
	agent.SetLogger(base.WithPrefix("agent"))
	sim.SetLogger(base.WithPrefix("sim"))
}

func execute(opts options, w io.Writer) int {
	spec, err := loadSpec(opts.grid)
	if err != nil {
		logger.Error("load grid spec", "grid", opts.grid, "err", err)
		return exitError
	}
	g, err := spec.Build()
	if err != nil {
		logger.Error("build grid", "grid", spec.Name, "err", err)
		return exitError
	}
	switch opts.agent {
	case "":
	case "all":
		return simulateAll(spec, opts, w)
	default:
		return simulate(spec, g, opts, w)
	}
	return query(g, opts, w)
}

func loadSpec(grid string) (*prefabs.GridSpec, error) {
	ext := strings.ToLower(filepath.Ext(grid))
	if ext == ".yaml" || ext == ".yml" {
		if _, err := os.Stat(grid); err == nil {
			return prefabs.LoadGridSpecFile(grid)
		}
	}
	return prefabs.LoadGridSpec(grid)
}

func searchMode(opts options) (navgrid.Mode, error) {
	if opts.astar {
		return navgrid.ModeAStar, nil
	}
	return navgrid.ParseMode(opts.mode)
}

func toCell(v common.Vec3) navgrid.Cell {
	return navgrid.Cell{X: int(math.Round(v.X)), Y: int(math.Round(v.Y)), Z: int(math.Round(v.Z))}
}

func query(g *navgrid.Grid, opts options, w io.Writer) int {
	mode, err := searchMode(opts)
	if err != nil {
		logger.Error("bad mode", "err", err)
		return exitError
	}
	from, err := common.ParseVec3(opts.from)
	if err != nil {
		logger.Error("bad -from", "err", err)
		return exitError
	}
	to, err := queryGoal(g, opts)
	if err != nil {
		logger.Error("bad -to", "err", err)
		return exitError
	}

	var path navgrid.Path
	if opts.cells {
		path, err = navgrid.FindPathCells(g, toCell(from), toCell(to), mode)
	} else {
		path, err = navgrid.FindPath(g, from, to, mode)
	}
	if err != nil {
		logger.Error("search", "err", err)
		return exitError
	}
	if !path.Found {
		fmt.Fprintf(w, "no path (%s, expanded %d, %d regions)\n", mode, path.Expanded, len(g.Regions()))
		return exitNoPath
	}

	for i, wp := range path.Waypoints {
		fmt.Fprintf(w, "%d %s %s\n", i, path.Cells[i], wp)
	}
	fmt.Fprintf(w, "cost %g expanded %d mode %s\n", path.Cost, path.Expanded, mode)
	return exitOK
}

// queryGoal parses -to, falling back to the far corner of layer 0 in the
// coordinate space -cells selects.
func queryGoal(g *navgrid.Grid, opts options) (common.Vec3, error) {
	if opts.to != "" {
		return common.ParseVec3(opts.to)
	}
	d := g.Dimensions()
	far := navgrid.Cell{X: d.Width - 1, Z: d.Depth - 1}
	if opts.cells {
		return common.Vec3{X: float64(far.X), Z: float64(far.Z)}, nil
	}
	return g.CellToWorld(far), nil
}

func parseTarget(g *navgrid.Grid, opts options) (common.Vec3, bool, error) {
	if opts.to == "" {
		return common.Vec3{}, false, nil
	}
	target, err := common.ParseVec3(opts.to)
	if err != nil {
		return common.Vec3{}, false, err
	}
	if opts.cells {
		target = g.CellToWorld(toCell(target))
	}
	return target, true, nil
}

func simulate(spec *prefabs.GridSpec, g *navgrid.Grid, opts options, w io.Writer) int {
	as, ok := spec.Agent(opts.agent)
	if !ok {
		logger.Error("unknown agent", "grid", spec.Name, "agent", opts.agent)
		return exitError
	}
	p, err := agent.NewPlanner(g, as)
	if err != nil {
		logger.Error("create planner", "err", err)
		return exitError
	}
	target, ok, err := parseTarget(g, opts)
	if err != nil {
		logger.Error("bad -to", "err", err)
		return exitError
	}
	if ok {
		p.SetTarget(target)
	}

	lastCell := p.Agent.Cell(g)
	lastState := p.State()
	fmt.Fprintf(w, "%s %s %s %s\n", p.Agent.ID, p.Brain(), lastState, lastCell)
	for i := 1; i <= opts.ticks; i++ {
		p.Tick(opts.dt)
		cell, state := p.Agent.Cell(g), p.State()
		if cell == lastCell && state == lastState {
			continue
		}
		fmt.Fprintf(w, "%d %s %s %s\n", i, state, cell, p.Agent.Position)
		lastCell, lastState = cell, state
	}
	return exitOK
}

// simulateAll ticks every agent in the spec together and prints the events
// they raise.
func simulateAll(spec *prefabs.GridSpec, opts options, w io.Writer) int {
	world, err := sim.FromSpec(spec)
	if err != nil {
		logger.Error("create world", "err", err)
		return exitError
	}
	target, ok, err := parseTarget(world.Grid, opts)
	if err != nil {
		logger.Error("bad -to", "err", err)
		return exitError
	}
	if ok {
		world.SetTarget(target)
	}

	world.Each(func(e sim.Entity, p *agent.Planner) {
		fmt.Fprintf(w, "%s %s %s %s\n", e, p.Agent.Name, p.Brain(), p.Agent.Cell(world.Grid))
	})
	for i := 0; i < opts.ticks; i++ {
		for _, evt := range world.Update(opts.dt) {
			fmt.Fprintln(w, evt)
		}
	}
	return exitOK
}

// watch re-runs the query after every grid spec or script change until ctx
// is cancelled.
func watch(ctx context.Context, opts options, w io.Writer) int {
	var dirs []string
	if info, err := os.Stat(prefabs.DiskDir); err == nil && info.IsDir() {
		for _, sub := range []string{"grids", "scripts"} {
			dir := filepath.Join(prefabs.DiskDir, sub)
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
	}
	if _, err := os.Stat(opts.grid); err == nil {
		dirs = append(dirs, filepath.Dir(opts.grid))
	}
	if len(dirs) == 0 {
		logger.Error("nothing to watch", "disk_dir", prefabs.DiskDir, "grid", opts.grid)
		return exitError
	}

	watcher, err := prefabs.NewWatcher(dirs...)
	if err != nil {
		logger.Error("start watcher", "err", err)
		return exitError
	}
	defer watcher.Close()
	logger.Info("watching", "dirs", dirs)

	for {
		select {
		case <-ctx.Done():
			return exitOK
		case change, ok := <-watcher.Events:
			if !ok {
				return exitOK
			}
			logger.Info("reloading", "path", change.Path, "kind", change.Kind)
			execute(opts, w)
		case err, ok := <-watcher.Errors:
			if !ok {
				return exitOK
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}
