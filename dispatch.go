package dflow

import (
	"context"
	"sync"
	"time"
)

// argSlicePool recycles the per-dispatch argument-value slice. Every
// scheduled node with a bound callable or a sub-graph template goes
// through borrowArgSlice/releaseArgSlice once per Run(), so a hot re-run of the same graph reuses the same backing
// arrays instead of allocating len(args) slices per dispatch. Adapted
// from the teacher's PoolManager (pool_manager.go): Get-or-New, reset
// the reused value to its zero length before handing it out, Put back
// after truncating to zero so no stale argument value is retained
// across dispatches.
var argSlicePool = sync.Pool{
	New: func() any {
		s := make([]any, 0, 8)
		return &s
	},
}

func borrowArgSlice(n int) []any {
	ptr := argSlicePool.Get().(*[]any)
	s := *ptr
	if cap(s) < n {
		argSlicePool.Put(ptr)
		return make([]any, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = nil
	}
	return s
}

func releaseArgSlice(s []any) {
	for i := range s {
		s[i] = nil
	}
	s = s[:0]
	argSlicePool.Put(&s)
}

// dispatchCallable invokes a bound callable per spec.md §4.4: sync
// callables run inline, async callables are awaited via a select on
// their result channel and the run context's cancellation — the select
// half of the teacher's executeFlow pattern (flow.go); the dispatcher
// starts no goroutine itself, since that is the idiomatic Go shape for "the scheduler awaits the
// result before proceeding".
func dispatchCallable(ctx context.Context, bf *funcBinding, receiver any, args []any) (any, error) {
	switch fn := bf.callable.(type) {
	case SyncFunc:
		return fn(ctx, receiver, args)
	case AsyncFunc:
		ch := fn(ctx, receiver, args)
		select {
		case res := <-ch:
			return res.Value, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case GeneratorFunc, AsyncGeneratorFunc:
		// Recognized, never executed (spec.md §4.4, §6.1 non-goal).
		return nil, nil
	default:
		return nil, nil
	}
}

// dispatch runs one scheduled node's work (spec.md §4.6): materialize a
// sub-graph instance if applicable, dispatch the bound callable, then
// dispatch the sub-graph — mirroring whichever was written last if a
// Name is bound to both (spec.md §9 open question b, carried forward
// as discouraged-but-permitted).
func (e *Engine) dispatch(ctx context.Context, nodeId NodeId, parentId NodeId) error {
	e.mu.RLock()
	node, ok := e.nodes[nodeId]
	if !ok {
		e.mu.RUnlock()
		return nil
	}
	name := node.Name
	bf, hasFunc := e.funcs[name]
	tmpl, hasTemplate := e.graphs[name]
	exts := make([]Extension, len(e.extensions))
	copy(exts, e.extensions)
	e.mu.RUnlock()

	rec := DispatchRecord{NodeId: nodeId, Name: name, ParentId: parentId, Start: time.Now(), Status: DispatchRunning}

	if hasTemplate {
		if err := e.materializeSubgraph(nodeId, name, tmpl); err != nil {
			rec.End, rec.Status, rec.Err = time.Now(), DispatchFailed, err
			e.trace.add(rec)
			return NewNodeExecutionError(nodeId, name, err)
		}
	}

	op := &DispatchOp{NodeId: nodeId, Name: name, Engine: e}
	next := func() (any, error) {
		return e.dispatchOnce(ctx, nodeId, name, bf, hasFunc, tmpl, hasTemplate)
	}
	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		inner := next
		next = func() (any, error) { return ext.Wrap(ctx, inner, op) }
	}

	result, err := next()

	rec.End = time.Now()
	if err != nil {
		rec.Status = DispatchFailed
		rec.Err = err
		for _, ext := range exts {
			ext.OnError(err, op)
		}
	} else if !hasFunc && !hasTemplate {
		rec.Status = DispatchSkipped
	} else {
		rec.Status = DispatchSuccess
	}
	e.trace.add(rec)

	if err != nil {
		if _, isNodeExec := err.(*NodeExecutionError); isNodeExec {
			return err
		}
		return NewNodeExecutionError(nodeId, name, err)
	}

	_ = result
	return nil
}

// dispatchOnce performs the actual callable-then-subgraph work for one
// node, without trace/extension bookkeeping (handled by the caller).
func (e *Engine) dispatchOnce(ctx context.Context, nodeId NodeId, name string, bf *funcBinding, hasFunc bool, tmpl *Template, hasTemplate bool) (any, error) {
	var argVals []any
	if hasFunc && bf.callable != nil || hasTemplate {
		argNames, err := e.argNamesFor(nodeId)
		if err != nil {
			return nil, err
		}
		argVals = borrowArgSlice(len(argNames))
		defer releaseArgSlice(argVals)
		e.fillArgValues(argNames, nodeId, argVals)
	}

	var result any
	if hasFunc && bf.callable != nil {
		receiver := e.receiverFor(nodeId, name)
		val, err := dispatchCallable(ctx, bf, receiver, argVals)
		if err != nil {
			return nil, err
		}
		result = val
		e.outputCache.Store(PinToPinID(Pin{Node: nodeId}), val)
	}

	if hasTemplate {
		e.mu.RLock()
		child := e.subgraphs[nodeId]
		e.mu.RUnlock()
		if child != nil {
			if err := e.runSubgraph(ctx, nodeId, name, tmpl, child, argVals); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
