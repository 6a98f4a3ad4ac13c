package dflow

import (
	"encoding/json"
	"fmt"
	"runtime/debug"
)

// BrokenPipeError is raised by AddPipe/Insert when a pipe references a
// NodeId that does not exist in the graph at insertion time.
type BrokenPipeError struct {
	Pipe Pipe
}

func (e *BrokenPipeError) Error() string {
	return fmt.Sprintf("broken pipe: %+v", e.Pipe)
}

func (e *BrokenPipeError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorName string `json:"errorName"`
		Pipe      Pipe   `json:"pipe"`
	}{"DflowErrorBrokenPipe", e.Pipe})
}

// NodeExecutionError wraps any error a callable or sub-graph run raises,
// identifying the offending node. StackTrace is captured for local
// debugging only and is not part of the wire shape (spec.md §6.4).
type NodeExecutionError struct {
	NodeId           NodeId
	NodeName         string
	NodeErrorMessage string
	StackTrace       []byte
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q (%s) failed: %s", e.NodeId, e.NodeName, e.NodeErrorMessage)
}

func (e *NodeExecutionError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorName        string `json:"errorName"`
		NodeId           NodeId `json:"nodeId"`
		NodeName         string `json:"nodeName"`
		NodeErrorMessage string `json:"nodeErrorMessage"`
	}{"DflowErrorNodeExecution", e.NodeId, e.NodeName, e.NodeErrorMessage})
}

// NewNodeExecutionError builds a NodeExecutionError from a lower-level
// cause, capturing a stack trace the way the teacher's CreateResolveError did.
func NewNodeExecutionError(nodeId NodeId, nodeName string, cause error) *NodeExecutionError {
	return &NodeExecutionError{
		NodeId:           nodeId,
		NodeName:         nodeName,
		NodeErrorMessage: cause.Error(),
		StackTrace:       debug.Stack(),
	}
}

// NodeNotFoundError is raised when an operation references a NodeId
// absent from the graph (e.g. ArgValues).
type NodeNotFoundError struct {
	NodeId NodeId
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found: %q", e.NodeId)
}

func (e *NodeNotFoundError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorName string `json:"errorName"`
		NodeId    NodeId `json:"nodeId"`
	}{"DflowErrorNodeNotFound", e.NodeId})
}

// NodeOverrideError is raised when a Name that is already bound (as a
// callable, sub-graph template, or I/O marker) is bound again.
type NodeOverrideError struct {
	NodeName string
}

func (e *NodeOverrideError) Error() string {
	return fmt.Sprintf("name already bound: %q", e.NodeName)
}

func (e *NodeOverrideError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ErrorName string `json:"errorName"`
		NodeName  string `json:"nodeName"`
	}{"DflowErrorNodeOverride", e.NodeName})
}

// SafeTypeAssertion performs a safe type assertion with a descriptive
// error rather than a panic, for opaque Any values pulled from the
// output cache — e.g. cmd/dflow's demo callable registry uses it to
// coerce an argument value without risking a panic that would take
// down the whole run. Mirrors the teacher's errors.go helper of the
// same name.
func SafeTypeAssertion[T any](value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("type assertion error: expected %T, got %T (value: %v)", zero, value, value)
	}
	return typed, nil
}
