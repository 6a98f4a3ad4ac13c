package dflow

import (
	"context"
	"testing"
)

func TestAddNodeAndDelNodeCascadesPipes(t *testing.T) {
	e := NewEngine("g")
	a := e.AddNode("a", NewNodeID())
	b := e.AddNode("b", NewNodeID())
	if err := e.AddPipe(Pipe{From: Pin{Node: a}, To: Pin{Node: b}}); err != nil {
		t.Fatalf("AddPipe: %v", err)
	}

	e.DelNode(a)

	if e.PipeOfTarget(PinToPinID(Pin{Node: b})) != nil {
		t.Error("expected pipe targeting b to be removed once a is deleted")
	}
}

func TestAddPipeRejectsMissingEndpoints(t *testing.T) {
	e := NewEngine("g")
	b := e.AddNode("b", NewNodeID())

	err := e.AddPipe(Pipe{From: Pin{Node: "ghost"}, To: Pin{Node: b}})
	if _, ok := err.(*BrokenPipeError); !ok {
		t.Fatalf("expected *BrokenPipeError, got %v", err)
	}
}

func TestDeleteCascadesPipesAtomically(t *testing.T) {
	e := NewEngine("g")
	a := e.AddNode("a", NewNodeID())
	b := e.AddNode("b", NewNodeID())
	c := e.AddNode("c", NewNodeID())
	_ = e.AddPipe(Pipe{From: Pin{Node: a}, To: Pin{Node: b}})
	_ = e.AddPipe(Pipe{From: Pin{Node: b}, To: Pin{Node: c}})

	delta := e.Delete([]NodeId{b}, nil)

	if len(delta.Nodes) != 1 || delta.Nodes[0].ID != b {
		t.Fatalf("expected deleted node set {b}, got %+v", delta.Nodes)
	}
	if len(delta.Pipes) != 2 {
		t.Fatalf("expected both pipes touching b to be cascaded, got %d", len(delta.Pipes))
	}
	if e.PipeOfTarget(PinToPinID(Pin{Node: c})) != nil {
		t.Error("expected pipe b->c removed as part of cascade")
	}
}

func TestInsertRoundTripsWithDelete(t *testing.T) {
	e := NewEngine("g")
	a := e.AddNode("a", NewNodeID())
	b := e.AddNode("b", NewNodeID())
	_ = e.AddPipe(Pipe{From: Pin{Node: a}, To: Pin{Node: b}})

	delta := e.Delete([]NodeId{a, b}, nil)
	if err := e.Insert(delta); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if e.PipeOfTarget(PinToPinID(Pin{Node: b})) == nil {
		t.Error("expected pipe a->b restored after re-insertion")
	}
}

func TestSetFuncRejectsNameCollisionAcrossKinds(t *testing.T) {
	e := NewEngine("g")
	if err := e.SetNodeArg("x"); err != nil {
		t.Fatalf("SetNodeArg: %v", err)
	}
	err := e.SetFuncWithArity("x", constFunc(1), 0)
	if _, ok := err.(*NodeOverrideError); !ok {
		t.Fatalf("expected *NodeOverrideError, got %v", err)
	}
}

func TestArgValuesUsesUndefinedForUnfedPosition(t *testing.T) {
	e := NewEngine("g")
	_ = e.SetFuncWithArity("sum", SyncFunc(func(ctx context.Context, receiver any, args []any) (any, error) {
		return args, nil
	}), 2)
	id := e.AddNode("sum", NewNodeID())

	vals, err := e.ArgValues(id)
	if err != nil {
		t.Fatalf("ArgValues: %v", err)
	}
	if len(vals) != 2 || vals[0] != nil || vals[1] != nil {
		t.Errorf("expected [nil, nil], got %+v", vals)
	}
}

func TestArgValuesUnknownNodeFails(t *testing.T) {
	e := NewEngine("g")
	_, err := e.ArgValues("ghost")
	if _, ok := err.(*NodeNotFoundError); !ok {
		t.Fatalf("expected *NodeNotFoundError, got %v", err)
	}
}

func TestSummaryCountsZeroForAbsentArgsAndOuts(t *testing.T) {
	e := NewEngine("empty")
	if got, want := e.Summary(), "Dflow name=empty args=0 nodes=0 pipes=0 outs=0"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
