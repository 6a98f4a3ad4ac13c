package dflow

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes a Pin per spec.md §6.2: position 0 collapses to a
// bare NodeId string; any other position becomes a [nodeId, position]
// array, matching the same collapsing rule PinToPinID uses for PinId.
func (p Pin) MarshalJSON() ([]byte, error) {
	if p.Position == 0 {
		return json.Marshal(string(p.Node))
	}
	return json.Marshal([]any{string(p.Node), p.Position})
}

// UnmarshalJSON decodes a Pin from either wire shape.
func (p *Pin) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		p.Node = NodeId(asString)
		p.Position = 0
		return nil
	}

	var asPair []json.RawMessage
	if err := json.Unmarshal(data, &asPair); err != nil {
		return fmt.Errorf("pin: neither a string nor a [nodeId, position] pair: %s", data)
	}
	if len(asPair) != 2 {
		return fmt.Errorf("pin: expected 2 elements, got %d", len(asPair))
	}
	var node string
	if err := json.Unmarshal(asPair[0], &node); err != nil {
		return err
	}
	var pos int
	if err := json.Unmarshal(asPair[1], &pos); err != nil {
		return err
	}
	p.Node = NodeId(node)
	p.Position = pos
	return nil
}

// Serialize produces the persistence-format GraphValue for this engine
// (spec.md §6.2): nodes in insertion order, pipes in the engine's
// internal (unordered) map order, own Args/Outs in declaration order.
// Sub-graph templates and callable bindings are not serialized — a
// GraphValue only records graph shape, matching what SetNodeGraph
// consumes as a Template.
func (e *Engine) Serialize() GraphValue {
	e.mu.RLock()
	defer e.mu.RUnlock()

	nodes := make([]NodeValue, 0, len(e.insertionOrder))
	for _, id := range e.insertionOrder {
		if n, ok := e.nodes[id]; ok {
			nodes = append(nodes, NodeValue{ID: n.ID, Name: n.Name})
		}
	}

	pipes := make([]PipeValue, 0, len(e.pipes))
	for target, source := range e.pipes {
		pipes = append(pipes, PipeValue{From: PinIDToPin(source), To: PinIDToPin(target)})
	}

	return GraphValue{
		Name:  e.name,
		Args:  append([]string(nil), e.args...),
		Outs:  append([]string(nil), e.outs...),
		Nodes: nodes,
		Pipes: pipes,
	}
}

// Deserialize builds a fresh Engine from a persisted GraphValue, per
// spec.md §6.2: nodes and pipes are restored as a GraphDelta insertion,
// and Args/Outs reconstruct the I/O marker set and ordering. Callable
// bindings and sub-graph templates must be re-registered by the caller
// (SetFunc/SetNodeGraph/...) — they are not part of the wire format.
func Deserialize(gv GraphValue, opts ...EngineOption) (*Engine, error) {
	e := NewEngine(gv.Name, opts...)
	delta := GraphDelta{Nodes: gv.Nodes, Pipes: gv.Pipes}
	if err := e.Insert(delta); err != nil {
		return nil, err
	}
	e.mu.Lock()
	for _, argName := range gv.Args {
		e.ioMarkers[argName] = true
	}
	e.args = append([]string(nil), gv.Args...)
	for _, outName := range gv.Outs {
		e.ioMarkers[outName] = true
	}
	e.outs = append([]string(nil), gv.Outs...)
	e.mu.Unlock()
	return e, nil
}

// Summary renders the one-line diagnostic string of spec.md §6.3:
// "Dflow name={name} args={|args|} nodes={|nodes|} pipes={|pipes|} outs={|outs|}".
func (e *Engine) Summary() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fmt.Sprintf("Dflow name=%s args=%d nodes=%d pipes=%d outs=%d",
		e.name, len(e.args), len(e.nodes), len(e.pipes), len(e.outs))
}
