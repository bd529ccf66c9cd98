// Command optimizer runs the parallel asynchronous particle swarm
// optimizer against a fixed benchmark problem and prints the best value
// and position it found.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "optimizer fork_count iter_per_task [thread_count]",
		Short:   "Run the parallel asynchronous particle swarm optimizer",
		Args:    cobra.RangeArgs(2, 3),
		Version: "0.1.0",
		RunE:    runOptimizer,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	return cmd
}
