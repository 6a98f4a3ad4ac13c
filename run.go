package dflow

import "context"

// HasAsyncNodes reports whether any bound callable reachable from this
// engine — including inside registered sub-graph templates, recursively
// — is an AsyncFunc or AsyncGeneratorFunc. It is informational: Run
// does not consult it, since dispatch only waits on a result channel
// when the callable being dispatched is itself an AsyncFunc.
func (e *Engine) HasAsyncNodes() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasAsyncNodesLocked(make(map[*Template]bool))
}

func (e *Engine) hasAsyncNodesLocked(visited map[*Template]bool) bool {
	for _, bf := range e.funcs {
		switch bf.variant {
		case VariantAsync, VariantAsyncGenerator:
			return true
		}
	}
	for _, tmpl := range e.graphs {
		if visited[tmpl] {
			continue
		}
		visited[tmpl] = true
		if templateHasAsyncNodes(tmpl, visited) {
			return true
		}
	}
	for _, child := range e.subgraphs {
		if child.hasAsyncNodesLocked(visited) {
			return true
		}
	}
	return false
}

// templateHasAsyncNodes inspects a not-yet-materialized Template by the
// only thing it carries: its node/pipe shape gives no variant
// information until bound, so an un-materialized template is
// conservatively treated as synchronous — its variants become knowable
// once a parent's funcs are inherited into a live child, which
// hasAsyncNodesLocked covers via e.subgraphs.
func templateHasAsyncNodes(tmpl *Template, visited map[*Template]bool) bool {
	return false
}

// Run executes the graph to completion in Schedule order (spec.md §4.6):
// each node is materialized (if it owns a sub-graph) and dispatched in
// turn; the first NodeExecutionError returned by any dispatch aborts the
// run and is returned to the caller. If ctx is done before a node is
// dispatched, the run stops there and ctx.Err() is returned as is.
// Run never spawns a goroutine itself
// — dispatch's own select handles any per-node async wait.
func (e *Engine) Run(ctx context.Context) error {
	e.trace.reset()
	for _, ext := range e.extensionsSnapshot() {
		if err := ext.OnRunStart(e); err != nil {
			return err
		}
	}

	nodes := e.scheduledNodes()
	var runErr error
	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := e.dispatch(ctx, n.ID, ""); err != nil {
			runErr = err
			break
		}
	}

	for _, ext := range e.extensionsSnapshot() {
		if err := ext.OnRunEnd(e, runErr); err != nil && runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// RunAsync runs a graph that may contain async callables. It shares
// Run's driver: dispatch only awaits a result channel when the callable
// being dispatched is itself an AsyncFunc, so there is no separate
// async-aware loop to maintain — RunAsync exists as its own name so
// callers can signal intent (spec.md §4.6/§5) without Run itself ever
// needing to branch on HasAsyncNodes.
func (e *Engine) RunAsync(ctx context.Context) error {
	return e.Run(ctx)
}

func (e *Engine) extensionsSnapshot() []Extension {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Extension, len(e.extensions))
	copy(out, e.extensions)
	return out
}

func (e *Engine) scheduledNodes() []Node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	nodes := make([]Node, 0, len(e.insertionOrder))
	for _, id := range e.insertionOrder {
		if n, ok := e.nodes[id]; ok {
			nodes = append(nodes, *n)
		}
	}
	pipes := e.pipesSnapshotLocked()
	return Schedule(nodes, pipes)
}

// DependencyGraph exports a parent->children adjacency view of the
// current pipe set (child = the node fed by parent), for diagnostic
// rendering by extensions such as a dependency-tree debug dump.
func (e *Engine) DependencyGraph() map[NodeId][]NodeId {
	e.mu.RLock()
	defer e.mu.RUnlock()
	graph := make(map[NodeId][]NodeId)
	for target, source := range e.pipes {
		parent := PinIDToPin(source).Node
		child := PinIDToPin(target).Node
		graph[parent] = append(graph[parent], child)
	}
	return graph
}

// NodeName returns the Name bound to a NodeId, if present.
func (e *Engine) NodeName(id NodeId) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, ok := e.nodes[id]
	if !ok {
		return "", false
	}
	return n.Name, true
}

func (e *Engine) pipesSnapshotLocked() []Pipe {
	pipes := make([]Pipe, 0, len(e.pipes))
	for target, source := range e.pipes {
		pipes = append(pipes, Pipe{From: PinIDToPin(source), To: PinIDToPin(target)})
	}
	return pipes
}
