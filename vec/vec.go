// Package vec provides the vector arithmetic used by the particle-swarm
// core: positions, velocities, and their element-wise updates. Every
// mutating method except ClampBy returns the receiver so update rules can be
// chained the way the swarm update equations read on paper.
package vec

import "fmt"

// Vec is a point or direction in the search space. Its length is the
// problem's dimension and is fixed once a particle is created.
type Vec []float64

func assertSameLen(a, b Vec) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("Vectors are not the same length: %v  %v", a, b))
	}
}

// New creates a new Vec of the given dimensionality.
func New(size int) Vec {
	return Vec(make([]float64, size))
}

// NewFilled creates and initializes the vector so all elements are the specified value.
func NewFilled(size int, val float64) Vec {
	return New(size).Fill(val)
}

// NewFFilled creates and initializes the vector so all elements come from f().
func NewFFilled(size int, f func() float64) Vec {
	return New(size).FFill(f)
}

// Fill changes all vector values to the given value.
func (v Vec) Fill(val float64) Vec {
	for i := range v {
		v[i] = val
	}
	return v
}

// FFill changes all values to contain f().
func (v Vec) FFill(f func() float64) Vec {
	for i := range v {
		v[i] = f()
	}
	return v
}

// Replace copies all elements from other into this vector.
func (v Vec) Replace(other Vec) Vec {
	assertSameLen(v, other)
	copy(v, other)
	return v
}

// Copy returns a new, identical vector with its own underlying memory.
func (v Vec) Copy() Vec {
	return New(len(v)).Replace(v)
}

// ClampBy confines every v[i] to [lo, hi], zeroing the matching element of
// vel wherever a coordinate was clamped. This is the confinement step of
// the PSO update rule: a particle that would leave the feasible box is
// pinned to the boundary it crossed and loses the velocity component that
// carried it there.
func (v Vec) ClampBy(lo, hi float64, vel Vec) {
	assertSameLen(v, vel)
	for i, x := range v {
		switch {
		case x < lo:
			v[i] = lo
			vel[i] = 0
		case x > hi:
			v[i] = hi
			vel[i] = 0
		}
	}
}
