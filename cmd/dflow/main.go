// Command dflow is a batch runner for persisted dflow graphs: it loads
// a graph JSON file (spec.md §6.2), binds a small built-in demo
// callable registry, runs the graph, and prints the summary string plus
// the resulting output cache. It has no front end and serves nothing —
// it is not the excluded canvas server (spec.md §1 non-goal c).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dflow",
		Short: "Run and inspect dflow dataflow graphs",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newSummaryCmd())
	return root
}
