// Package papso implements the parallel asynchronous particle swarm
// optimizer: a ring-topology (lbest) swarm partitioned into subswarms, each
// driven by its own chain of executor tasks that re-fork themselves one
// iteration chunk at a time until the configured iteration count is
// reached.
package papso

import (
	"errors"
	"fmt"

	"github.com/lchhh1203/papso/executor"
	"github.com/lchhh1203/papso/rand"
)

// ErrInvalidForkCount is returned by ParallelAsync when forkCount is less
// than one, or when rgens doesn't carry at least one random source per
// fork (after forkCount is rounded down to the swarm size).
var ErrInvalidForkCount = errors.New("papso: invalid fork count")

// ParallelAsync starts an optimization run and returns immediately with a
// Result the caller can block on. forkCount subswarms are carved out of
// the swarm (rounded down to the swarm size if it's larger — one particle
// per fork in that case, per the source's documented behavior) and
// dispatched onto etor, each processing iterPerTask iterations at a time
// before re-submitting itself for the next chunk.
//
// rgens supplies one random source per fork; it must have at least
// forkCount entries (after rounding). rgens[0] is also used to seed the
// initial swarm. forkCount must be at least one and rgens must carry
// enough sources, or ParallelAsync returns ErrInvalidForkCount before
// touching rgens or the swarm.
func ParallelAsync(etor *executor.Executor, forkCount, iterPerTask int, problem Problem, cfg Config, rgens []rand.Source) (*Result, error) {
	if forkCount < 1 {
		return nil, fmt.Errorf("%w: fork_count=%d, want >= 1", ErrInvalidForkCount, forkCount)
	}
	if forkCount > cfg.SwarmSize {
		forkCount = cfg.SwarmSize
	}
	if len(rgens) < forkCount {
		return nil, fmt.Errorf("%w: %d random source(s) for %d fork(s)", ErrInvalidForkCount, len(rgens), forkCount)
	}

	state, err := newState(problem, cfg, iterPerTask)
	if err != nil {
		return nil, err
	}

	state.initialize(rgens[0])

	forkSize := cfg.SwarmSize / forkCount
	state.forks.Add(int64(forkCount))
	for i := 0; i < forkCount; i++ {
		subswarm := Range{First: forkSize * i, Second: forkSize * (i + 1)}
		if i == forkCount-1 {
			subswarm.Second = cfg.SwarmSize
		}
		if subswarm.Len() == 0 {
			// With forkCount <= SwarmSize, forkSize is at least 1 and the
			// last range absorbs the remainder, so no range is empty here.
			// An empty range would contribute nothing and must still
			// retire its fork-count slot.
			if state.forks.Add(-1) == 0 {
				close(state.done)
			}
			continue
		}

		iterRange := state.makeIterationRange(0)
		rgen := rgens[i%len(rgens)]
		etor.Execute(func(h *executor.WorkerHandle) {
			state.runFork(subswarm, iterRange, rgen, h)
		})
	}

	return &Result{state: state}, nil
}

// runFork processes one iteration chunk of one subswarm, then either
// re-submits itself (LIFO, onto the same worker) for the next chunk or
// retires its fork-count slot. Retiring the last outstanding fork closes
// state.done. The increment for the next chunk's fork-count slot happens
// before this chunk's own slot is retired, so the count never observes a
// spurious transition to zero while a continuation is still in flight —
// the same ordering the source's fork_tracer relies on.
func (s *State) runFork(subswarm, iterRange Range, rgen rand.Source, h *executor.WorkerHandle) {
	for i := iterRange.First; i < iterRange.Second; i++ {
		for j := subswarm.First; j < subswarm.Second; j++ {
			lbest := s.getLBest(j, subswarm)
			s.moveParticle(j, lbest.value(), rgen)
			lbest.release()
			s.evaluateParticle(j)
		}
	}

	if iterRange.Second < s.cfg.Iterations {
		next := s.makeIterationRange(iterRange.Second)
		s.forks.Add(1)
		h.Execute(func(h *executor.WorkerHandle) {
			s.runFork(subswarm, next, rgen, h)
		})
	}

	if s.forks.Add(-1) == 0 {
		close(s.done)
	}
}
