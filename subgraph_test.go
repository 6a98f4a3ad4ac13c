package dflow

import (
	"context"
	"testing"
)

func doubleTemplate() Template {
	inputID := NodeId("input")
	doubleID := NodeId("double-node")
	outputID := NodeId("output")
	return Template{
		Name: "graph",
		Args: []string{"input"},
		Outs: []string{"output"},
		Nodes: []NodeValue{
			{ID: inputID, Name: "input"},
			{ID: doubleID, Name: "double"},
			{ID: outputID, Name: "output"},
		},
		Pipes: []PipeValue{
			{From: Pin{Node: inputID}, To: Pin{Node: doubleID}},
			{From: Pin{Node: doubleID}, To: Pin{Node: outputID}},
		},
	}
}

func TestSubgraphMaterializationIsIdempotent(t *testing.T) {
	e := NewEngine("outer")
	_ = e.SetFuncWithArity("double", SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
		return args[0].(int) * 2, nil
	}), 1)
	_ = e.SetNodeGraph("graph", doubleTemplate())

	nodeId := e.AddNode("graph", NewNodeID())

	if err := e.materializeSubgraph(nodeId, "graph", e.graphs["graph"]); err != nil {
		t.Fatalf("materializeSubgraph: %v", err)
	}
	first := e.subgraphs[nodeId]

	if err := e.materializeSubgraph(nodeId, "graph", e.graphs["graph"]); err != nil {
		t.Fatalf("materializeSubgraph (second call): %v", err)
	}
	if e.subgraphs[nodeId] != first {
		t.Error("expected materialization to be idempotent per NodeId")
	}
}

func TestSubgraphInheritanceIsIsolatedFromParentMutation(t *testing.T) {
	e := NewEngine("outer")
	_ = e.SetFuncWithArity("double", constFunc(1), 0)
	_ = e.SetNodeGraph("graph", doubleTemplate())

	nodeId := e.AddNode("graph", NewNodeID())
	_ = e.materializeSubgraph(nodeId, "graph", e.graphs["graph"])

	child := e.subgraphs[nodeId]
	originalCallable := child.funcs["double"].callable

	// Mutate the parent's binding in place after materialization
	// (invariant 6). SetFunc cannot do this: "double" is already bound, so
	// it would fail with NodeOverrideError.
	e.funcs["double"].callable = constFunc(999)

	if child.funcs["double"].callable == nil {
		t.Fatal("child lost its inherited binding")
	}
	if &child.funcs["double"].callable == &e.funcs["double"].callable {
		t.Error("child and parent must not share the same binding")
	}
	// The snapshot still holds the callable bound at materialization time,
	// unaffected by the parent's later mutation.
	v, err := originalCallable.(SyncFunc)(context.Background(), nil, nil)
	if err != nil || v != 1 {
		t.Fatalf("original callable = %v, %v, want 1, nil", v, err)
	}
	got, err := child.funcs["double"].callable.(SyncFunc)(context.Background(), nil, nil)
	if err != nil || got != 1 {
		t.Errorf("child's inherited callable = %v, %v, want 1, nil (parent mutation must not reach the child)", got, err)
	}
}

func TestSubgraphShadowsInheritedNameWithOwnIOMarker(t *testing.T) {
	e := NewEngine("outer")
	_ = e.SetFuncWithArity("input", constFunc("shadowed"), 0) // name collides with the template's own arg marker
	_ = e.SetNodeGraph("graph", doubleTemplate())

	nodeId := e.AddNode("graph", NewNodeID())
	_ = e.materializeSubgraph(nodeId, "graph", e.graphs["graph"])

	child := e.subgraphs[nodeId]
	if _, inherited := child.funcs["input"]; inherited {
		t.Error("expected the template's own \"input\" marker to shadow the inherited callable of the same name")
	}
}

func TestRunSubgraphProjectsOutputToParent(t *testing.T) {
	e := NewEngine("outer")
	_ = e.SetFuncWithArity("double", SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
		return args[0].(int) * 2, nil
	}), 1)
	_ = e.SetNodeGraph("graph", doubleTemplate())
	_ = e.SetFuncWithArity("seven", constFunc(7), 0)

	seedId := e.AddNode("seven", NewNodeID())
	graphId := e.AddNode("graph", NewNodeID())
	if err := e.AddPipe(Pipe{From: Pin{Node: seedId}, To: Pin{Node: graphId}}); err != nil {
		t.Fatalf("AddPipe: %v", err)
	}

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	v, _ := e.outputCache.Load(PinToPinID(Pin{Node: graphId}))
	if v.(int) != 14 {
		t.Errorf("output_cache[graphId] = %v, want 14", v)
	}
}

func TestRunSubgraphNestsChildDispatchesInParentTrace(t *testing.T) {
	e := NewEngine("outer")
	_ = e.SetFuncWithArity("double", SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
		return args[0].(int) * 2, nil
	}), 1)
	_ = e.SetNodeGraph("graph", doubleTemplate())
	_ = e.SetFuncWithArity("seven", constFunc(7), 0)

	seedId := e.AddNode("seven", NewNodeID())
	graphId := e.AddNode("graph", NewNodeID())
	_ = e.AddPipe(Pipe{From: Pin{Node: seedId}, To: Pin{Node: graphId}})

	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	children := e.Trace().Children(graphId)
	if len(children) != 3 {
		t.Fatalf("expected 3 nested dispatch records (input, double, output), got %d: %+v", len(children), children)
	}
	for _, rec := range children {
		if rec.ParentId != graphId {
			t.Errorf("record %+v: ParentId = %v, want %v", rec, rec.ParentId, graphId)
		}
	}
}
