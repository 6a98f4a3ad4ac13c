package dflow

import "context"

// Extension hooks into node dispatch the way the teacher's Extension
// hooked into executor resolution and flow execution. Logging, metrics,
// and debug-graph rendering are all implemented purely as extensions —
// the core never logs or collects metrics itself.
type Extension interface {
	Name() string
	// Order determines extension execution order (lower = earlier).
	Order() int

	// Wrap intercepts a single node dispatch.
	Wrap(ctx context.Context, next func() (any, error), op *DispatchOp) (any, error)
	// OnError is notified after a dispatch fails. op.Engine.Trace() holds
	// the records of the dispatches that finished before this one; the
	// failing dispatch's own record is added after OnError returns.
	OnError(err error, op *DispatchOp)

	// OnRunStart / OnRunEnd bracket a whole Run() call.
	OnRunStart(e *Engine) error
	OnRunEnd(e *Engine, err error) error
}

// DispatchOp describes the node dispatch an Extension is wrapping.
type DispatchOp struct {
	NodeId NodeId
	Name   string
	Engine *Engine
}

// BaseExtension provides no-op defaults so concrete extensions only
// need to override the hooks they care about.
type BaseExtension struct {
	ExtName string
}

func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{ExtName: name}
}

func (b *BaseExtension) Name() string { return b.ExtName }
func (b *BaseExtension) Order() int   { return 100 }

func (b *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *DispatchOp) (any, error) {
	return next()
}

func (b *BaseExtension) OnError(err error, op *DispatchOp)         {}
func (b *BaseExtension) OnRunStart(e *Engine) error                { return nil }
func (b *BaseExtension) OnRunEnd(e *Engine, err error) error       { return nil }
