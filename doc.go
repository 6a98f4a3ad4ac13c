// Package dflow is a minimal dataflow programming engine: a directed
// graph of named nodes connected by pipes, executed once per run in
// dependency order, each node's inputs fed from the outputs of its
// upstream nodes.
//
// # Overview
//
// A graph is built on an *Engine:
//
//	e := dflow.NewEngine("demo")
//
//	_ = e.SetFuncWithArity("Math.PI", dflow.SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
//	    return math.Pi, nil
//	}), 0)
//	_ = e.SetFuncWithArity("Math.sin", dflow.SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
//	    return math.Sin(args[0].(float64)), nil
//	}), 1)
//
//	id1 := e.AddNode("Math.PI", dflow.NewNodeID())
//	id2 := e.AddNode("Math.sin", dflow.NewNodeID())
//	_ = e.AddPipe(dflow.Pipe{From: dflow.Pin{Node: id1}, To: dflow.Pin{Node: id2}})
//
//	if err := e.Run(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Pins and positions
//
// A node's default (position-0) output/input is addressed by its bare
// NodeId; additional positions use (NodeId, position) pairs, canonicalized
// to the same PinId string form either way:
//
//	dflow.PinToPinID(dflow.Pin{Node: id})               // == id
//	dflow.PinToPinID(dflow.Pin{Node: id, Position: 1})   // == id + ",1"
//
// # Sub-graphs
//
// A Template (just a GraphValue) registered with SetNodeGraph becomes a
// reusable nested graph: the engine materializes a fresh child instance
// the first time a node bound to that Name is dispatched, injects the
// parent's argument values into the child's declared Args markers, runs
// the child to completion, and projects its declared Outs markers back
// into the parent's output cache.
//
// # Async callables
//
// A callable registered as an AsyncFunc suspends the driver on a
// channel receive before the next node dispatches; HasAsyncNodes reports
// whether any such callable is bound. Run and RunAsync share one driver,
// and a purely synchronous graph never enters a wait primitive on either.
//
// # Extensions
//
// Cross-cutting concerns — logging, metrics, dependency-graph debug
// dumps — are implemented purely as Extension values wrapping dispatch,
// never inside the core:
//
//	e := dflow.NewEngine("demo",
//	    dflow.WithExtension(extensions.NewLoggingExtension(slog.Default())),
//	)
//
// # Errors
//
// The four graph error kinds implement error and json.Marshaler,
// producing a wire shape of {errorName, ...payload}: BrokenPipeError,
// NodeExecutionError, NodeNotFoundError, NodeOverrideError. Errors from
// SetNodeFunc's compiler path, and ctx.Err() when Run stops on a done
// context, are plain errors without that wire shape.
package dflow
