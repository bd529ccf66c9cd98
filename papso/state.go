package papso

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/lchhh1203/papso/rand"
	"github.com/lchhh1203/papso/spmcbuf"
	"github.com/lchhh1203/papso/vec"
)

// ErrNeighborhoodTooLarge is returned by newState (and so by ParallelAsync)
// when Config.NeighborSize
// exceeds Config.SwarmSize: a neighborhood can never be larger than the
// swarm it's drawn from.
var ErrNeighborhoodTooLarge = errors.New("papso: neighbor size exceeds swarm size")

// Clerc-Kennedy constriction coefficients.
const (
	inertia     = 0.7298
	accelerator = 1.49618
)

// Problem is the objective this run optimizes: a re-entrant function
// evaluated over a position vector, and the box constraint every
// coordinate is confined to. This is the Go analogue of the source's
// optimization_problem_t.
type Problem struct {
	// Function computes the objective value at pos. It must be safe to
	// call concurrently from any number of goroutines and must not retain
	// or mutate pos.
	Function func(pos vec.Vec) float64
	// Min, Max bound every coordinate of the search space.
	Min, Max float64
	// Dimension is the number of coordinates in a position/velocity
	// vector.
	Dimension int
}

// Config holds the swarm-shape parameters that are compile-time template
// arguments in the source (neighbor_size, swarm_size, iteration) but are
// ordinary runtime fields here.
type Config struct {
	SwarmSize    int
	NeighborSize int
	Iterations   int
}

// State is the mutable swarm plus its cross-subswarm publication channels:
// the Go analogue of basic_papso. It is only ever constructed through
// ParallelAsync; a Result holds it to read the final bests once the run
// completes.
type State struct {
	problem     Problem
	cfg         Config
	iterPerTask int

	particles     []Particle
	bestValues    []*publishedBest
	bestPositions []*spmcbuf.Buffer[vec.Vec]

	forks atomic.Int64
	done  chan struct{}
}

func newState(problem Problem, cfg Config, iterPerTask int) (*State, error) {
	if cfg.NeighborSize > cfg.SwarmSize {
		return nil, fmt.Errorf("%w: neighbor_size=%d swarm_size=%d", ErrNeighborhoodTooLarge, cfg.NeighborSize, cfg.SwarmSize)
	}
	return &State{
		problem:     problem,
		cfg:         cfg,
		iterPerTask: iterPerTask,
		done:        make(chan struct{}),
	}, nil
}

// initialize allocates the swarm and gives every particle a random
// position and velocity from the problem's domain, evaluating it exactly
// once so best_value starts out meaningful rather than carrying the
// source's uninitialized first pass (see DESIGN.md).
func (s *State) initialize(rgen rand.Source) {
	n := s.cfg.SwarmSize
	s.particles = make([]Particle, n)
	s.bestValues = make([]*publishedBest, n)
	s.bestPositions = make([]*spmcbuf.Buffer[vec.Vec], n)

	randCoord := func() float64 {
		return s.problem.Min + rgen.Float64()*(s.problem.Max-s.problem.Min)
	}

	for i := range s.particles {
		p := &s.particles[i]
		p.Position = vec.New(s.problem.Dimension)
		p.Velocity = vec.New(s.problem.Dimension)
		for d := 0; d < s.problem.Dimension; d++ {
			p.Position[d] = randCoord()
			p.Velocity[d] = (randCoord() - p.Position[d]) / 2
		}
		p.Value = s.problem.Function(p.Position)
		p.BestValue = p.Value
		p.BestPosition = p.Position.Copy()

		s.bestValues[i] = newPublishedBest()
		s.bestValues[i].Store(p.BestValue)
		s.bestPositions[i] = spmcbuf.New[vec.Vec](spmcbuf.DefaultAssociativity)
		s.bestPositions[i].Put(p.BestPosition.Copy())
	}
}

// evaluateParticle re-evaluates the particle at idx and, if it improved on
// its personal best, updates and publishes the new best value/position for
// every other subswarm to see.
func (s *State) evaluateParticle(idx int) {
	p := &s.particles[idx]
	p.Value = s.problem.Function(p.Position)
	if p.Value < p.BestValue {
		p.BestValue = p.Value
		p.BestPosition.Replace(p.Position)

		s.bestValues[idx].Store(p.Value)
		s.bestPositions[idx].Put(p.BestPosition.Copy())
	}
}

// updateGBest scans every particle's published best value and returns the
// index of the global best. Safe to call while forks are still running:
// it reads only bestValues and bestPositions, the eventually-consistent
// published channels, never the particles themselves.
func (s *State) updateGBest() (idx int, value float64, position vec.Vec) {
	idx = 0
	value = s.bestValues[0].Load()
	for i := 1; i < len(s.bestValues); i++ {
		if v := s.bestValues[i].Load(); v < value {
			idx, value = i, v
		}
	}
	v := s.bestPositions[idx].Get()
	position = v.Value().Copy()
	v.Release()
	return idx, value, position
}

// makeIterationRange returns the next iteration chunk starting at first,
// clipped to the configured total iteration count.
func (s *State) makeIterationRange(first int) Range {
	last := first + s.iterPerTask
	if last > s.cfg.Iterations {
		last = s.cfg.Iterations
	}
	return Range{First: first, Second: last}
}
