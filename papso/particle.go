package papso

import "github.com/lchhh1203/papso/vec"

// Particle is one member of the swarm: its current evaluated state plus the
// best state it has ever occupied.
type Particle struct {
	Value        float64
	BestValue    float64
	Velocity     vec.Vec
	Position     vec.Vec
	BestPosition vec.Vec
}
