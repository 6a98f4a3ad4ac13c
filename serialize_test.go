package dflow

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestPinMarshalCollapsesPositionZero(t *testing.T) {
	data, err := json.Marshal(Pin{Node: "a"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"a"` {
		t.Errorf("Marshal(position 0) = %s, want %q", data, `"a"`)
	}
}

func TestPinMarshalPairForNonZeroPosition(t *testing.T) {
	data, err := json.Marshal(Pin{Node: "a", Position: 1})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["a",1]` {
		t.Errorf("Marshal(position 1) = %s, want %q", data, `["a",1]`)
	}
}

func TestPinUnmarshalRoundTrip(t *testing.T) {
	for _, p := range []Pin{{Node: "a"}, {Node: "a", Position: 0}, {Node: "a", Position: 2}} {
		data, _ := json.Marshal(p)
		var got Pin
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if got.Node != p.Node || got.Position != p.Position {
			t.Errorf("round trip of %+v = %+v", p, got)
		}
	}
}

func TestSerializeThenDeserializeIsStructurallyEqual(t *testing.T) {
	e := NewEngine("test")
	_ = e.SetFuncWithArity("Math.PI", constFunc(3.14), 0)
	_ = e.SetFuncWithArity("Math.sin", constFunc(0.0), 1)
	id1 := e.AddNode("Math.PI", NewNodeID())
	id2 := e.AddNode("Math.sin", NewNodeID())
	_ = e.AddPipe(Pipe{From: Pin{Node: id1}, To: Pin{Node: id2}})

	gv := e.Serialize()
	restored, err := Deserialize(gv)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !reflect.DeepEqual(gv, restored.Serialize()) {
		t.Errorf("round-trip mismatch:\n%+v\n%+v", gv, restored.Serialize())
	}
}

func TestSerializeIsIdempotent(t *testing.T) {
	e := NewEngine("test")
	id := e.AddNode("x", NewNodeID())
	_ = id

	first := e.Serialize()
	second := e.Serialize()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Serialize() not idempotent: %+v != %+v", first, second)
	}
}

func TestJSONRoundTripOfGraphValue(t *testing.T) {
	gv := GraphValue{
		Name: "g",
		Nodes: []NodeValue{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}},
		Pipes: []PipeValue{{From: Pin{Node: "a"}, To: Pin{Node: "b"}}},
	}
	data, err := json.Marshal(gv)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded GraphValue
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(gv, decoded) {
		t.Errorf("round trip mismatch: %+v != %+v", gv, decoded)
	}
}
