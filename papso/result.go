package papso

import (
	"context"

	"github.com/lchhh1203/papso/vec"
)

// Result is the handle a caller holds for a running optimization. Exactly
// one goroutine (whichever fork's decrement takes the fork count to zero)
// closes the completion channel Get waits on.
type Result struct {
	state *State
}

// Get blocks until every subswarm fork has finished (or ctx is done,
// whichever comes first), then scans the published best values one final
// time and returns the global best. Honoring ctx is a Go-native addition
// over the source's unconditional papso_result_t::get(): nothing here
// blocks forever without a way out.
func (r *Result) Get(ctx context.Context) (float64, vec.Vec, error) {
	select {
	case <-r.state.done:
	case <-ctx.Done():
		var zero vec.Vec
		return 0, zero, ctx.Err()
	}
	_, value, position := r.state.updateGBest()
	return value, position, nil
}
