package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lchhh1203/papso/executor"
	"github.com/lchhh1203/papso/fitness"
	"github.com/lchhh1203/papso/nursery"
	"github.com/lchhh1203/papso/papso"
	papsorand "github.com/lchhh1203/papso/rand"
	"github.com/lchhh1203/papso/vec"
)

// swarmConfig matches the template parameters the source benchmark binds
// the optimizer to at compile time (neighbor_size=2, swarm_size=80,
// iteration=5000): out of scope for the CLI to override, since changing
// them is a recompile in the source and spec.md's CLI surface never
// exposes them either.
var swarmConfig = papso.Config{
	NeighborSize: 2,
	SwarmSize:    80,
	Iterations:   5000,
}

// problem is the default benchmark the CLI optimizes, matching the
// source's main.cpp: Rosenbrock, the third entry in test_functions.
func problem() (papso.Problem, string) {
	bench := fitness.NewRosenbrock(30)
	lo, hi := bench.Bounds()
	return papso.Problem{
		Function:  bench.Query,
		Min:       lo,
		Max:       hi,
		Dimension: bench.Dims(),
	}, bench.Name()
}

func runOptimizer(cmd *cobra.Command, args []string) error {
	forkCount, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("fork_count: %w", err)
	}
	if forkCount < 1 {
		return fmt.Errorf("fork_count: %d, want >= 1", forkCount)
	}
	iterPerTask, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("iter_per_task: %w", err)
	}
	threadCount := forkCount
	if len(args) == 3 {
		threadCount, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("thread_count: %w", err)
		}
	}
	if threadCount < 1 {
		threadCount = runtime.NumCPU()
	}

	prob, name := problem()

	etor := executor.New(executor.Options{Parallelism: threadCount, EnableStealing: true})
	defer etor.Shutdown()

	rgens := make([]papsorand.Source, forkCount)
	for i := range rgens {
		rgens[i] = rand.New(rand.NewSource(int64(i) + 1))
	}

	result, err := papso.ParallelAsync(etor, forkCount, iterPerTask, prob, swarmConfig, rgens)
	if err != nil {
		return fmt.Errorf("start optimization: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var (
		value    float64
		position vec.Vec
	)
	runErr := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) {
		n.Go(func() error {
			v, pos, err := result.Get(ctx)
			if err != nil {
				return err
			}
			value, position = v, pos
			return nil
		})
	})
	if runErr != nil {
		return fmt.Errorf("optimize %s: %w", name, runErr)
	}

	fmt.Printf("%s: best=%g position=%v (forks=%d, threads=%d, iter/task=%d)\n",
		name, value, position, forkCount, threadCount, iterPerTask)
	return nil
}
