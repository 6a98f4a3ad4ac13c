package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <graph.json>",
		Short: "Print a graph's summary string without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(args[0])
			if err != nil {
				return err
			}
			fmt.Println(e.Summary())
			return nil
		},
	}
}
