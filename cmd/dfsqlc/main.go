// Command dfsqlc is a thin front end over the dataflow-plan-to-SQL
// compiler: it turns a small JSON semantic-model catalog and a
// requested set of metrics into a dataflow plan, compiles it, and
// prints the resulting SQL plan tree and output instance set.
//
// It is a demonstration harness, not a query engine: the plan it builds
// covers read-source, aggregate-measures, compute-metrics,
// filter-elements and write-to-result-table. Everything downstream of
// the compiler (SQL text rendering, execution) is out of scope, the
// same way it is for the compiler package itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dfsqlc:", err)
		os.Exit(1)
	}
}

// Execute builds the root command and runs it against os.Args.
func Execute() error {
	root := newRootCommand()
	root.AddCommand(newCompileCommand())
	root.AddCommand(newVersionCommand())
	return root.Execute()
}

func newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dfsqlc",
		Short: "Compile dataflow plans to SQL plan trees",
		Long: `dfsqlc builds a dataflow plan from a semantic-model catalog and a
requested metric list, runs it through the plan walker, and prints the
resulting SQL plan tree alongside the instance set it produces.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dfsqlc version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
