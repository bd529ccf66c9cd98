package papso

import (
	"math"
	"sync/atomic"
)

const cacheLine = 64

// publishedBest is a cache-line padded atomic float64, the eventually-
// consistent channel one subswarm's fork publishes a particle's best value
// through for every other fork to read. Go's sync/atomic has no Float64
// type, so the bit pattern is carried in a Uint64, mirroring how the
// source's aligned_atomic_double is just an aligned std::atomic<double>.
type publishedBest struct {
	bits atomic.Uint64
	_    [cacheLine - 8]byte
}

func newPublishedBest() *publishedBest {
	pb := &publishedBest{}
	pb.Store(math.MaxFloat64)
	return pb
}

// Load returns the most recently stored value.
func (pb *publishedBest) Load() float64 {
	return math.Float64frombits(pb.bits.Load())
}

// Store publishes a new value.
func (pb *publishedBest) Store(v float64) {
	pb.bits.Store(math.Float64bits(v))
}
