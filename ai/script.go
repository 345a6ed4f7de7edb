package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// DefaultScriptTimeout bounds a single script evaluation.
const DefaultScriptTimeout = 50 * time.Millisecond

// Script is a compiled tengo program that decides by assigning a boolean to
// the global `result`. Variables must be declared at compile time.
type Script struct {
	Name    string
	Timeout time.Duration

	compiled *tengo.Compiled
	vars     map[string]bool
}

// CompileScript compiles src with the given variables declared at their
// initial values. Scripts may call log(msg) and import the tengo stdlib.
func CompileScript(name string, src []byte, vars map[string]any) (*Script, error) {
	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	declared := make(map[string]bool, len(vars))
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := script.Add(k, vars[k]); err != nil {
			return nil, fmt.Errorf("ai: script %s: declare %s: %w", name, k, err)
		}
		declared[k] = true
	}
	if err := script.Add("log", &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		logger.Info(strings.Join(parts, " "), "script", name)
		return tengo.UndefinedValue, nil
	}}); err != nil {
		return nil, fmt.Errorf("ai: script %s: declare log: %w", name, err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("ai: script %s: compile: %w", name, err)
	}
	return &Script{
		Name:     name,
		Timeout:  DefaultScriptTimeout,
		compiled: compiled,
		vars:     declared,
	}, nil
}

// Eval runs the script with vars and returns the truthiness of `result`.
// Variables that were not declared at compile time are rejected.
func (s *Script) Eval(ctx context.Context, vars map[string]any) (bool, error) {
	for k, v := range vars {
		if !s.vars[k] {
			return false, fmt.Errorf("ai: script %s: undeclared variable %q", s.Name, k)
		}
		if err := s.compiled.Set(k, v); err != nil {
			return false, fmt.Errorf("ai: script %s: set %s: %w", s.Name, k, err)
		}
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	if err := s.compiled.RunContext(ctx); err != nil {
		return false, fmt.Errorf("ai: script %s: run: %w", s.Name, err)
	}
	if !s.compiled.IsDefined("result") {
		return false, nil
	}
	return s.compiled.Get("result").Bool(), nil
}

// Guard adapts the script to an FSM guard. Evaluation errors are logged and
// treated as false.
func (s *Script) Guard(vars func() map[string]any) Guard {
	return func() bool {
		var in map[string]any
		if vars != nil {
			in = vars()
		}
		ok, err := s.Eval(context.Background(), in)
		if err != nil {
			logger.Error("script guard failed", "script", s.Name, "err", err)
			return false
		}
		return ok
	}
}

// Behavior adapts the script to a behaviour tree condition leaf.
func (s *Script) Behavior(vars func() map[string]any) Behavior {
	return Condition(s.Guard(vars))
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
