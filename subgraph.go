package dflow

import "context"

// materializeSubgraph builds the child Engine for a sub-graph-owning
// node the first time it's dispatched, per spec.md §4.5. Materialization
// is idempotent per NodeId: a second call for the same node is a no-op,
// so re-running a graph that already has live children never rebuilds
// them (and never loses whatever state they accumulated in their own
// output caches).
func (e *Engine) materializeSubgraph(nodeId NodeId, name string, tmpl *Template) error {
	e.mu.Lock()
	if _, exists := e.subgraphs[nodeId]; exists {
		e.mu.Unlock()
		return nil
	}

	child := NewEngine(tmpl.Name)
	for _, n := range tmpl.Nodes {
		child.addNodeLocked(n.Name, n.ID)
	}
	for _, p := range tmpl.Pipes {
		if err := child.addPipeLocked(Pipe{From: p.From, To: p.To}); err != nil {
			e.mu.Unlock()
			return err
		}
	}
	for _, argName := range tmpl.Args {
		child.ioMarkers[argName] = true
	}
	child.args = append([]string(nil), tmpl.Args...)
	for _, outName := range tmpl.Outs {
		child.ioMarkers[outName] = true
	}
	child.outs = append([]string(nil), tmpl.Outs...)

	// Function inheritance (spec.md §4.5): every binding not shadowed by
	// one of the template's own I/O markers is snapshotted into the
	// child, so later mutation of the parent's table can't reach back
	// into an already-materialized instance.
	for fname, bf := range e.funcs {
		if child.ioMarkers[fname] {
			continue
		}
		if _, shadowed := child.funcs[fname]; shadowed {
			continue
		}
		child.funcs[fname] = bf.snapshot()
	}
	for gname, gtmpl := range e.graphs {
		if child.ioMarkers[gname] {
			continue
		}
		if _, shadowed := child.graphs[gname]; shadowed {
			continue
		}
		child.graphs[gname] = gtmpl
	}
	child.compiler = e.compiler

	e.subgraphs[nodeId] = child
	e.mu.Unlock()
	return nil
}

// runSubgraph executes a materialized sub-graph instance to completion
// and copies its declared outputs back into the parent's output cache,
// per spec.md §4.5:
//  1. inject each arg value at pin_to_pin_id([subId, position]) in the
//     child's own output cache, one entry per declared Args position;
//  2. run the child to completion;
//  3. for each declared Outs name, resolve its marker node's single
//     inbound pipe inside the child and copy that value out, written at
//     pin_to_pin_id([graphId, position]) in the parent — "position" here
//     is the Outs index, not the marker node's own pin.
func (e *Engine) runSubgraph(ctx context.Context, graphId NodeId, name string, tmpl *Template, child *Engine, argVals []any) error {
	for position, argName := range tmpl.Args {
		var val any
		if position < len(argVals) {
			val = argVals[position]
		}
		nodeId := nodeIdForMarker(tmpl, argName)
		if nodeId == "" {
			continue
		}
		child.outputCache.Store(PinToPinID(Pin{Node: nodeId, Position: position}), val)
	}

	childErr := child.Run(ctx)
	e.trace.adoptChildRecords(graphId, child.Trace().Records())
	if childErr != nil {
		return NewNodeExecutionError(graphId, name, childErr)
	}

	for position, outName := range tmpl.Outs {
		nodeId := nodeIdForMarker(tmpl, outName)
		if nodeId == "" {
			continue
		}
		pipe := child.PipeOfTarget(PinToPinID(Pin{Node: nodeId}))
		if pipe == nil {
			continue
		}
		val, _ := child.outputCache.Load(PinToPinID(pipe.From))
		e.outputCache.Store(PinToPinID(Pin{Node: graphId, Position: position}), val)
	}

	return nil
}

// nodeIdForMarker finds the NodeId of the template node bound to an
// I/O marker Name. A template is expected to declare exactly one node
// per Args/Outs entry; if more than one shares the name the first in
// declaration order wins.
func nodeIdForMarker(tmpl *Template, name string) NodeId {
	for _, n := range tmpl.Nodes {
		if n.Name == name {
			return n.ID
		}
	}
	return ""
}
