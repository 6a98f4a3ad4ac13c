package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	dflow "github.com/dflow-run/dflow"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <graph.json>",
		Short: "Load a persisted graph, bind demo callables, and run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(args[0])
			if err != nil {
				return err
			}
			if err := bindDemoCallables(e); err != nil {
				return fmt.Errorf("binding demo callables: %w", err)
			}

			if err := e.Run(context.Background()); err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			fmt.Println(e.Summary())
			for _, rec := range e.Trace().Records() {
				val, _ := e.OutputCache().Load(dflow.PinToPinID(dflow.Pin{Node: rec.NodeId}))
				fmt.Printf("  %s (%s) = %v [%s]\n", rec.Name, rec.NodeId, val, rec.Status)
			}
			return nil
		},
	}
}

func loadEngine(path string) (*dflow.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var gv dflow.GraphValue
	if err := json.Unmarshal(data, &gv); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return dflow.Deserialize(gv)
}
