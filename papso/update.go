package papso

import (
	"github.com/lchhh1203/papso/rand"
	"github.com/lchhh1203/papso/spmcbuf"
	"github.com/lchhh1203/papso/vec"
)

// lbestHandle is the neighborhood-best position a particle moves toward,
// plus whatever cleanup reading it required. When the chosen neighbor
// belongs to the caller's own subswarm range, no cleanup is needed — the
// caller already owns exclusive access to that data this iteration. When
// the neighbor belongs to a different, possibly concurrently running
// subswarm, the value came from a spmcbuf snapshot that must be released.
//
// This is the Go shape of the source's get_lbest, which returns a
// std::variant<const vec_t*, buffer_t::viewer> for exactly the same
// reason: a local read needs no synchronization, a cross-subswarm read
// does.
type lbestHandle struct {
	vec    vec.Vec
	viewer *spmcbuf.Viewer[vec.Vec]
}

func (h lbestHandle) value() vec.Vec {
	return h.vec
}

func (h lbestHandle) release() {
	if h.viewer != nil {
		h.viewer.Release()
	}
}

// getLBest finds the best-performing particle in idx's ring neighborhood
// of configured size, preferring a direct, synchronization-free read when
// the neighbor falls inside subswarm (this fork's own range) and falling
// back to the published, eventually-consistent channel otherwise.
func (s *State) getLBest(idx int, subswarm Range) lbestHandle {
	n := s.cfg.SwarmSize
	maxOffset := s.cfg.NeighborSize / 2

	lbestIdx := idx
	lbestVal := s.particles[idx].BestValue

	for offset := -maxOffset; offset <= maxOffset; offset++ {
		neighbor := (idx + n + offset) % n

		var v float64
		if subswarm.Contains(neighbor) {
			v = s.particles[neighbor].BestValue
		} else {
			v = s.bestValues[neighbor].Load()
		}
		if v < lbestVal {
			lbestVal = v
			lbestIdx = neighbor
		}
	}

	if subswarm.Contains(lbestIdx) {
		return lbestHandle{vec: s.particles[lbestIdx].BestPosition}
	}
	viewer := s.bestPositions[lbestIdx].Get()
	return lbestHandle{vec: viewer.Value(), viewer: &viewer}
}

// moveParticle applies the Clerc-Kennedy constriction update to the
// particle at idx, then confines it to the problem's box, zeroing any
// velocity component that carried it past the boundary.
func (s *State) moveParticle(idx int, lbest vec.Vec, rgen rand.Source) {
	p := &s.particles[idx]
	for d := range p.Position {
		vi := inertia*p.Velocity[d] +
			accelerator*rgen.Float64()*(p.BestPosition[d]-p.Position[d]) +
			accelerator*rgen.Float64()*(lbest[d]-p.Position[d])
		p.Velocity[d] = vi
		p.Position[d] += vi
	}
	p.Position.ClampBy(s.problem.Min, s.problem.Max, p.Velocity)
}
