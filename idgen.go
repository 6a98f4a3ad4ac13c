package dflow

import "github.com/google/uuid"

// NewNodeID generates a fresh NodeId. The core never calls this itself
// — spec.md §3 says NodeIds are "generated externally" — it exists as a
// convenience for callers who don't want to invent their own scheme.
func NewNodeID() NodeId {
	return NodeId(uuid.NewString())
}
