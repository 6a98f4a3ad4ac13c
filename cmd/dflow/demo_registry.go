package main

import (
	"context"
	"fmt"
	"math"
	"strings"

	dflow "github.com/dflow-run/dflow"
)

// bindDemoCallables registers a small built-in arithmetic/string
// callable set on e (Math.PI, Math.E, Math.sin, Math.cos, sum, double,
// toString, concat). A real deployment would bind its own domain
// callables instead; this exists so `dflow run` has something to
// execute against a bare persisted graph.
func bindDemoCallables(e *dflow.Engine) error {
	bindings := []struct {
		name  string
		arity int
		fn    dflow.SyncFunc
	}{
		{"Math.PI", 0, func(ctx context.Context, receiver any, args []any) (any, error) {
			return math.Pi, nil
		}},
		{"Math.E", 0, func(ctx context.Context, receiver any, args []any) (any, error) {
			return math.E, nil
		}},
		{"Math.sin", 1, func(ctx context.Context, receiver any, args []any) (any, error) {
			return math.Sin(toFloat(args[0])), nil
		}},
		{"Math.cos", 1, func(ctx context.Context, receiver any, args []any) (any, error) {
			return math.Cos(toFloat(args[0])), nil
		}},
		{"sum", 2, func(ctx context.Context, receiver any, args []any) (any, error) {
			return toFloat(args[0]) + toFloat(args[1]), nil
		}},
		{"double", 1, func(ctx context.Context, receiver any, args []any) (any, error) {
			return toFloat(args[0]) * 2, nil
		}},
		{"toString", 1, func(ctx context.Context, receiver any, args []any) (any, error) {
			return fmt.Sprintf("%v", args[0]), nil
		}},
		{"concat", 2, func(ctx context.Context, receiver any, args []any) (any, error) {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("%v", args[0]))
			sb.WriteString(fmt.Sprintf("%v", args[1]))
			return sb.String(), nil
		}},
	}

	for _, b := range bindings {
		if err := e.SetFuncWithArity(b.name, b.fn, b.arity); err != nil {
			if _, isOverride := err.(*dflow.NodeOverrideError); isOverride {
				continue
			}
			return err
		}
	}
	return nil
}

// toFloat coerces an arg pulled off the output cache (opaque any) into
// a float64, via dflow.SafeTypeAssertion rather than a bare type
// assertion — an upstream node commonly hands back an int literal
// where a float64 is expected, and a panic here would take down the
// whole run instead of just this node's output.
func toFloat(v any) float64 {
	if f, err := dflow.SafeTypeAssertion[float64](v); err == nil {
		return f
	}
	if n, err := dflow.SafeTypeAssertion[int](v); err == nil {
		return float64(n)
	}
	return 0
}
