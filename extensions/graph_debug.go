package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"

	dflow "github.com/dflow-run/dflow"
)

// GraphDebugExtension logs a rendering of the node dependency graph
// when a dispatch fails. Adapted from the teacher's GraphDebugExtension
// (extensions/graph_debug.go), generalized from executor dependents to
// dflow's node/pipe adjacency.
//
// Usage:
//
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewGraphDebugExtension(handler)
//
//	handler := extensions.NewSilentHandler() // for tests
//	ext := extensions.NewGraphDebugExtension(handler)
type GraphDebugExtension struct {
	dflow.BaseExtension
	logger *slog.Logger
}

// NewGraphDebugExtension creates a new graph debug extension.
func NewGraphDebugExtension(logHandler slog.Handler) *GraphDebugExtension {
	return &GraphDebugExtension{
		BaseExtension: dflow.NewBaseExtension("graph-debug"),
		logger:        slog.New(logHandler),
	}
}

// OnError logs the dependency graph when a dispatch fails.
func (e *GraphDebugExtension) OnError(err error, op *dflow.DispatchOp) {
	graphOutput := e.formatDependencyGraph(op.Engine, op.NodeId, err)

	e.logger.Error("Node Dispatch Error",
		"nodeId", op.NodeId,
		"name", op.Name,
		"error", err.Error(),
		"dependency_graph", graphOutput,
	)
}

func (e *GraphDebugExtension) nameOf(eng *dflow.Engine, id dflow.NodeId) string {
	if name, ok := eng.NodeName(id); ok {
		return fmt.Sprintf("%s (%s)", name, id)
	}
	return string(id)
}

func (e *GraphDebugExtension) tryFormatHorizontalTree(eng *dflow.Engine, graph map[dflow.NodeId][]dflow.NodeId, failedNode dflow.NodeId) string {
	parents := make(map[dflow.NodeId][]dflow.NodeId)
	allNodes := make(map[dflow.NodeId]bool)
	for parent, children := range graph {
		allNodes[parent] = true
		for _, child := range children {
			allNodes[child] = true
			parents[child] = append(parents[child], parent)
		}
	}

	var roots []dflow.NodeId
	for node := range allNodes {
		if len(parents[node]) == 0 {
			roots = append(roots, node)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return e.nameOf(eng, roots[i]) < e.nameOf(eng, roots[j]) })

	if len(roots) == 0 {
		return ""
	}

	var rootNode *tree.Tree
	if len(roots) == 1 {
		rootNode = e.buildTree(eng, roots[0], graph, failedNode, make(map[dflow.NodeId]bool))
	} else {
		rootNode = tree.NewTree(tree.NodeString("Dependencies"))
		for _, root := range roots {
			childTree := e.buildTree(eng, root, graph, failedNode, make(map[dflow.NodeId]bool))
			if childTree != nil {
				e.addTreeAsChild(rootNode, childTree)
			}
		}
	}
	if rootNode == nil {
		return ""
	}
	return rootNode.String()
}

func (e *GraphDebugExtension) buildTree(eng *dflow.Engine, nodeId dflow.NodeId, graph map[dflow.NodeId][]dflow.NodeId, failedNode dflow.NodeId, visited map[dflow.NodeId]bool) *tree.Tree {
	if visited[nodeId] {
		return nil
	}
	visited[nodeId] = true

	label := e.nameOf(eng, nodeId)
	if nodeId == failedNode {
		label += " [FAILED]"
	}

	node := tree.NewTree(tree.NodeString(label))

	children := append([]dflow.NodeId(nil), graph[nodeId]...)
	sort.Slice(children, func(i, j int) bool { return e.nameOf(eng, children[i]) < e.nameOf(eng, children[j]) })
	for _, child := range children {
		childTree := e.buildTree(eng, child, graph, failedNode, visited)
		if childTree != nil {
			e.addTreeAsChild(node, childTree)
		}
	}
	return node
}

func (e *GraphDebugExtension) addTreeAsChild(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		e.addTreeAsChild(newChild, grandchild)
	}
}

func (e *GraphDebugExtension) formatDependencyGraph(eng *dflow.Engine, failedNode dflow.NodeId, failedErr error) string {
	var sb strings.Builder
	graph := eng.DependencyGraph()

	if len(graph) == 0 {
		sb.WriteString("\n(empty - no pipes in this graph)")
		return sb.String()
	}

	if horizontal := e.tryFormatHorizontalTree(eng, graph, failedNode); horizontal != "" {
		sb.WriteString("\n")
		sb.WriteString(horizontal)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\nError Details:\n  Node: %s\n  Error: %v\n", e.nameOf(eng, failedNode), failedErr))
	return sb.String()
}

// SilentHandler is a slog.Handler that discards all output, for tests
// that want a GraphDebugExtension without console noise.
type SilentHandler struct{}

func NewSilentHandler() *SilentHandler { return &SilentHandler{} }

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool    { return false }
func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error { return nil }
func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler             { return h }
func (h *SilentHandler) WithGroup(name string) slog.Handler                  { return h }

// HumanHandler formats GraphDebug log records for terminal readability.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{writer: writer, level: level}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Message == "Node Dispatch Error" {
		return h.handleDispatchError(record)
	}
	if _, err := fmt.Fprintf(h.writer, "[%s] %s\n", record.Level, record.Message); err != nil {
		return err
	}
	var writeErr error
	record.Attrs(func(a slog.Attr) bool {
		if _, err := fmt.Fprintf(h.writer, "  %s: %v\n", a.Key, a.Value); err != nil {
			writeErr = err
			return false
		}
		return true
	})
	return writeErr
}

func (h *HumanHandler) handleDispatchError(record slog.Record) error {
	var nodeId, name, errMsg, graph string
	record.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "nodeId":
			nodeId = a.Value.String()
		case "name":
			name = a.Value.String()
		case "error":
			errMsg = a.Value.String()
		case "dependency_graph":
			graph = a.Value.String()
		}
		return true
	})

	lines := []string{
		"",
		strings.Repeat("=", 70),
		"[GraphDebug] Node Dispatch Error",
		strings.Repeat("=", 70),
		fmt.Sprintf("\nFailed Node: %s (%s)", name, nodeId),
		fmt.Sprintf("Error: %s", errMsg),
		fmt.Sprintf("\nDependency Graph:%s", graph),
		strings.Repeat("=", 70),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(h.writer, line); err != nil {
			return err
		}
	}
	return nil
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *HumanHandler) WithGroup(name string) slog.Handler       { return h }
