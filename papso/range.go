package papso

// Range is a half-open interval [First, Second), used both to slice a
// swarm into subswarms and to slice an optimization run into
// iteration chunks.
type Range struct {
	First, Second int
}

// Contains reports whether i falls in [First, Second).
func (r Range) Contains(i int) bool {
	return r.First <= i && i < r.Second
}

// Len returns Second - First.
func (r Range) Len() int {
	return r.Second - r.First
}
