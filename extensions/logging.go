// Package extensions collects dflow.Extension implementations: logging,
// Prometheus metrics, and dependency-graph debug rendering. None of
// this is reachable from the core — an engine that registers no
// extension neither logs nor emits a metric.
package extensions

import (
	"context"
	"log/slog"
	"time"

	dflow "github.com/dflow-run/dflow"
)

// LoggingExtension logs every node dispatch through log/slog. Adapted
// from the teacher's fmt.Printf-based LoggingExtension (extensions/logging.go),
// generalized to structured logging since the core never logs on its own.
type LoggingExtension struct {
	dflow.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a LoggingExtension writing through logger.
func NewLoggingExtension(logger *slog.Logger) *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: dflow.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *dflow.DispatchOp) (any, error) {
	start := time.Now()
	e.logger.Debug("dispatch starting", "nodeId", op.NodeId, "name", op.Name)

	result, err := next()

	duration := time.Since(start)
	if err != nil {
		e.logger.Error("dispatch failed", "nodeId", op.NodeId, "name", op.Name, "duration", duration, "error", err)
	} else {
		e.logger.Debug("dispatch completed", "nodeId", op.NodeId, "name", op.Name, "duration", duration)
	}

	return result, err
}

func (e *LoggingExtension) OnRunStart(eng *dflow.Engine) error {
	e.logger.Info("run starting", "graph", eng.Name())
	return nil
}

func (e *LoggingExtension) OnRunEnd(eng *dflow.Engine, err error) error {
	if err != nil {
		e.logger.Error("run failed", "graph", eng.Name(), "error", err)
	} else {
		e.logger.Info("run completed", "graph", eng.Name())
	}
	return nil
}
