package dflow

import (
	"fmt"
	"sort"
	"sync"
)

// Node associates a NodeId with a Name. Name later resolves to a bound
// callable, a sub-graph template, an I/O marker, or nothing at all
// (spec.md §3, §9 open question c).
type Node struct {
	ID   NodeId
	Name string
}

// NodeValue / PipeValue / GraphValue are the persistence format of
// spec.md §6.2. GraphValue also doubles as a sub-graph Template: a
// template is exactly "an engine losslessly expressed as an object".
type NodeValue struct {
	ID   NodeId `json:"id"`
	Name string `json:"name"`
}

type PipeValue struct {
	From Pin `json:"from"`
	To   Pin `json:"to"`
}

type GraphValue struct {
	Name  string      `json:"name"`
	Args  []string    `json:"args,omitempty"`
	Outs  []string    `json:"outs,omitempty"`
	Nodes []NodeValue `json:"nodes"`
	Pipes []PipeValue `json:"pipes"`
}

// Template is a named, reusable GraphValue registered with SetNodeGraph.
type Template = GraphValue

// GraphDelta is a bulk set of nodes and pipes, used by Insert and as the
// return value of Delete (spec.md §4.2).
type GraphDelta struct {
	Nodes []NodeValue
	Pipes []PipeValue
}

type funcBinding struct {
	name     string
	args     []string
	callable Callable
	variant  Variant
}

// snapshot makes a shallow, independent copy of the binding — used by
// function inheritance (spec.md §4.5) so mutating the parent's table
// later cannot affect an already-materialized child.
func (b *funcBinding) snapshot() *funcBinding {
	argsCopy := make([]string, len(b.args))
	copy(argsCopy, b.args)
	return &funcBinding{name: b.name, args: argsCopy, callable: b.callable, variant: b.variant}
}

// Engine is the graph store and run driver described across spec.md
// §4.2-§4.6: it owns nodes, pipes, callable/sub-graph/I-O tables, the
// per-pin output cache, and (when materialized) child engines for
// sub-graph instances.
type Engine struct {
	mu sync.RWMutex

	name string

	nodes          map[NodeId]*Node
	insertionOrder []NodeId
	pipes          map[PinId]PinId // target -> source

	funcs  map[string]*funcBinding
	graphs map[string]*Template

	ioMarkers map[string]bool // names registered via SetNodeArg/SetNodeOut
	args      []string        // this graph's own formal argument names, in order
	outs      []string        // this graph's own formal output names, in order

	contextByName map[string]any
	contextByNode map[NodeId]any

	outputCache sync.Map // PinId -> any

	subgraphs map[NodeId]*Engine // materialized sub-graph instances, keyed by owning node

	compiler   Compiler
	extensions []Extension

	trace *DispatchTrace
}

// EngineOption configures a new Engine.
type EngineOption func(*Engine)

// WithExtension registers an Extension on construction.
func WithExtension(ext Extension) EngineOption {
	return func(e *Engine) { e.extensions = append(e.extensions, ext) }
}

// WithCompiler sets the Compiler used by SetNodeFunc.
func WithCompiler(c Compiler) EngineOption {
	return func(e *Engine) { e.compiler = c }
}

// WithContextForName seeds the context map's Name-keyed entry.
func WithContextForName(name string, receiver any) EngineOption {
	return func(e *Engine) { e.contextByName[name] = receiver }
}

// WithContextForNode seeds the context map's NodeId-keyed entry.
func WithContextForNode(id NodeId, receiver any) EngineOption {
	return func(e *Engine) { e.contextByNode[id] = receiver }
}

// NewEngine creates an empty, Ready engine (spec.md §4.5 state machine).
func NewEngine(name string, opts ...EngineOption) *Engine {
	e := &Engine{
		name:          name,
		nodes:         make(map[NodeId]*Node),
		pipes:         make(map[PinId]PinId),
		funcs:         make(map[string]*funcBinding),
		graphs:        make(map[string]*Template),
		ioMarkers:     make(map[string]bool),
		contextByName: make(map[string]any),
		contextByNode: make(map[NodeId]any),
		subgraphs:     make(map[NodeId]*Engine),
		trace:         newDispatchTrace(),
	}
	for _, opt := range opts {
		opt(e)
	}
	sort.SliceStable(e.extensions, func(i, j int) bool {
		return e.extensions[i].Order() < e.extensions[j].Order()
	})
	return e
}

// AddNode inserts (id, name) into the node map and returns id. No
// validation is performed that name already resolves to anything —
// spec.md §4.2: "a node may be added for a name that is later bound."
func (e *Engine) AddNode(name string, id NodeId) NodeId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addNodeLocked(name, id)
	return id
}

func (e *Engine) addNodeLocked(name string, id NodeId) {
	if _, exists := e.nodes[id]; !exists {
		e.insertionOrder = append(e.insertionOrder, id)
	}
	e.nodes[id] = &Node{ID: id, Name: name}
}

// DelNode removes a node and, as a side effect, every pipe referencing
// it as an endpoint.
func (e *Engine) DelNode(id NodeId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delNodeLocked(id)
}

func (e *Engine) delNodeLocked(id NodeId) {
	if _, exists := e.nodes[id]; !exists {
		return
	}
	delete(e.nodes, id)
	delete(e.subgraphs, id)
	for i, nid := range e.insertionOrder {
		if nid == id {
			e.insertionOrder = append(e.insertionOrder[:i], e.insertionOrder[i+1:]...)
			break
		}
	}
	for target, source := range e.pipes {
		tPin := PinIDToPin(target)
		sPin := PinIDToPin(PinId(source))
		if tPin.Node == id || sPin.Node == id {
			delete(e.pipes, target)
		}
	}
}

// AddPipe stores from->to, failing with *BrokenPipeError if either
// endpoint's NodeId is absent (spec.md §3 invariants, §4.2).
func (e *Engine) AddPipe(pipe Pipe) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addPipeLocked(pipe)
}

func (e *Engine) addPipeLocked(pipe Pipe) error {
	if _, ok := e.nodes[pipe.From.Node]; !ok {
		return &BrokenPipeError{Pipe: pipe}
	}
	if _, ok := e.nodes[pipe.To.Node]; !ok {
		return &BrokenPipeError{Pipe: pipe}
	}
	e.pipes[PinToPinID(pipe.To)] = PinToPinID(pipe.From)
	return nil
}

// DelPipe removes the mapping whose key is PinToPinID(to), if any.
func (e *Engine) DelPipe(to Pin) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pipes, PinToPinID(to))
}

// Delete performs the atomic bulk deletion of spec.md §4.2: the listed
// nodes are removed first; every pipe whose source or target now refers
// to a missing node is collected as a cascade; then the explicitly
// listed pipes are removed too. The full set actually removed — listed
// plus cascaded — is returned.
func (e *Engine) Delete(nodeIds []NodeId, pipeTargets []Pin) GraphDelta {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removedNodes []NodeValue
	for _, id := range nodeIds {
		if n, ok := e.nodes[id]; ok {
			removedNodes = append(removedNodes, NodeValue{ID: n.ID, Name: n.Name})
			delete(e.nodes, id)
			delete(e.subgraphs, id)
			for i, nid := range e.insertionOrder {
				if nid == id {
					e.insertionOrder = append(e.insertionOrder[:i], e.insertionOrder[i+1:]...)
					break
				}
			}
		}
	}

	removed := make(map[PinId]bool)
	var removedPipes []PipeValue
	for target, source := range e.pipes {
		tPin, sPin := PinIDToPin(target), PinIDToPin(source)
		if _, tOk := e.nodes[tPin.Node]; tOk {
			if _, sOk := e.nodes[sPin.Node]; sOk {
				continue
			}
		}
		removedPipes = append(removedPipes, PipeValue{From: sPin, To: tPin})
		removed[target] = true
	}

	for _, to := range pipeTargets {
		target := PinToPinID(to)
		if removed[target] {
			continue
		}
		if source, ok := e.pipes[target]; ok {
			removedPipes = append(removedPipes, PipeValue{From: PinIDToPin(source), To: PinIDToPin(target)})
			removed[target] = true
		}
	}

	for target := range removed {
		delete(e.pipes, target)
	}

	return GraphDelta{Nodes: removedNodes, Pipes: removedPipes}
}

// Insert performs bulk insertion: all nodes first, then all pipes.
// Pipe insertion failures propagate as *BrokenPipeError.
func (e *Engine) Insert(delta GraphDelta) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range delta.Nodes {
		e.addNodeLocked(n.Name, n.ID)
	}
	for _, p := range delta.Pipes {
		if err := e.addPipeLocked(Pipe{From: p.From, To: p.To}); err != nil {
			return err
		}
	}
	return nil
}

// SetFunc binds an already-compiled Callable to name. When args is nil
// the binding starts with zero declared arguments — Go closures carry
// no reflectable arity, so callers that want spec.md's "synthesize
// arg0..argN-1" behavior should pass SyntheticArgNames(n) explicitly
// (or call SetFuncWithArity).
func (e *Engine) SetFunc(name string, callable Callable, args []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isNameTakenLocked(name) {
		return &NodeOverrideError{NodeName: name}
	}
	if args == nil {
		args = []string{}
	}
	e.funcs[name] = &funcBinding{name: name, args: args, callable: callable, variant: ClassifyCallable(callable)}
	return nil
}

// SyntheticArgNames returns ["arg0", ..., "arg{n-1}"], the synthesized
// argument-name list of spec.md §3/§4.2 for native callables of known
// arity n.
func SyntheticArgNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("arg%d", i)
	}
	return names
}

// SetFuncWithArity is SetFunc with args synthesized from a declared
// arity, for native callables whose caller knows their positional count.
func (e *Engine) SetFuncWithArity(name string, callable Callable, arity int) error {
	return e.SetFunc(name, callable, SyntheticArgNames(arity))
}

// SetNodeFunc compiles code via the configured Compiler, choosing the
// factory variant from ClassifyCode (spec.md §4.2, §6.1), and binds the
// result to name.
func (e *Engine) SetNodeFunc(name string, args []string, code string) error {
	e.mu.Lock()
	if e.isNameTakenLocked(name) {
		e.mu.Unlock()
		return &NodeOverrideError{NodeName: name}
	}
	compiler := e.compiler
	e.mu.Unlock()

	if compiler == nil {
		return &errNoCompiler{name: name}
	}

	variant := ClassifyCode(code)
	var callable Callable
	var err error
	switch variant {
	case VariantAsync:
		callable, err = compiler.CompileAsync(args, code)
	case VariantGenerator:
		callable, err = compiler.CompileGenerator(args, code)
	case VariantAsyncGenerator:
		callable, err = compiler.CompileAsyncGenerator(args, code)
	default:
		callable, err = compiler.CompilePlain(args, code)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isNameTakenLocked(name) {
		return &NodeOverrideError{NodeName: name}
	}
	if args == nil {
		args = []string{}
	}
	e.funcs[name] = &funcBinding{name: name, args: args, callable: callable, variant: variant}
	return nil
}

// SetNodeArg registers name as a formal input marker of this graph.
func (e *Engine) SetNodeArg(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isNameTakenLocked(name) {
		return &NodeOverrideError{NodeName: name}
	}
	e.ioMarkers[name] = true
	e.args = append(e.args, name)
	return nil
}

// SetNodeOut registers name as a formal output marker of this graph,
// with the single ["out"] argument-name list per spec.md §4.2.
func (e *Engine) SetNodeOut(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isNameTakenLocked(name) {
		return &NodeOverrideError{NodeName: name}
	}
	e.ioMarkers[name] = true
	e.outs = append(e.outs, name)
	e.funcs[name] = &funcBinding{name: name, args: []string{"out"}}
	return nil
}

// SetNodeGraph registers a sub-graph template under name.
func (e *Engine) SetNodeGraph(name string, tmpl Template) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isNameTakenLocked(name) {
		return &NodeOverrideError{NodeName: name}
	}
	tmpl.Name = name
	e.graphs[name] = &tmpl
	return nil
}

// isNameTakenLocked enforces spec.md §3: Name is unique within a graph
// across {I/O markers, callable bindings, sub-graph templates}.
func (e *Engine) isNameTakenLocked(name string) bool {
	if e.ioMarkers[name] {
		return true
	}
	if _, ok := e.funcs[name]; ok {
		return true
	}
	if _, ok := e.graphs[name]; ok {
		return true
	}
	return false
}

// PipeOfTarget returns the unique Pipe whose To has PinId == id, if any.
func (e *Engine) PipeOfTarget(id PinId) *Pipe {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pipeOfTargetLocked(id)
}

func (e *Engine) pipeOfTargetLocked(id PinId) *Pipe {
	source, ok := e.pipes[id]
	if !ok {
		return nil
	}
	pipe := Pipe{From: PinIDToPin(source), To: PinIDToPin(id)}
	return &pipe
}

// ArgValues returns, for each position in [0, |args(name)|), either the
// output cache value at the inbound pipe's source PinId, or nil when no
// inbound pipe exists (spec.md §4.2 — arg_values tolerates a missing
// pipe rather than failing).
func (e *Engine) ArgValues(nodeId NodeId) ([]any, error) {
	argNames, err := e.argNamesFor(nodeId)
	if err != nil {
		return nil, err
	}
	values := make([]any, len(argNames))
	e.fillArgValues(argNames, nodeId, values)
	return values, nil
}

// argNamesFor resolves nodeId's declared argument-name list.
func (e *Engine) argNamesFor(nodeId NodeId) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	node, ok := e.nodes[nodeId]
	if !ok {
		return nil, &NodeNotFoundError{NodeId: nodeId}
	}
	return e.argNamesForLocked(node.Name), nil
}

// fillArgValues writes nodeId's current argument values into dst, which
// must already be sized len(argNames) — the shared body behind both
// ArgValues and dispatch's pooled hot path (dispatch.go).
func (e *Engine) fillArgValues(argNames []string, nodeId NodeId, dst []any) {
	for position := range argNames {
		target := PinToPinID(Pin{Node: nodeId, Position: position})
		pipe := e.PipeOfTarget(target)
		if pipe == nil {
			dst[position] = nil
			continue
		}
		val, _ := e.outputCache.Load(PinToPinID(pipe.From))
		dst[position] = val
	}
}

// argNamesForLocked returns the declared argument-name list for a Name,
// across callable bindings and sub-graph templates (which use their own
// Args list). Unknown names have no arguments.
func (e *Engine) argNamesForLocked(name string) []string {
	if bf, ok := e.funcs[name]; ok {
		return bf.args
	}
	if tmpl, ok := e.graphs[name]; ok {
		return tmpl.Args
	}
	return nil
}

// Name returns the engine's own name, used in Summary() (spec.md §6.3).
func (e *Engine) Name() string {
	return e.name
}

// OutputCache returns the engine's per-pin output cache, keyed by PinId.
func (e *Engine) OutputCache() *sync.Map {
	return &e.outputCache
}
