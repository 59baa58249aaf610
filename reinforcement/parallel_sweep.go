package reinforcement

import (
	"context"

	"racetrack/atomic_float"
	"racetrack/geometry"
	"racetrack/racecar"

	"golang.org/x/sync/errgroup"
)

// ParallelSweep performs one double-buffered pass with the solver's workers and returns its delta.
//
// Every group of every mutable position is materialized up front so the group map is
// read-only while workers run; each worker then owns whole rows, hence disjoint groups.
// Lookups read a snapshot of best values taken before the sweep.
func (vi *ValueIteration) ParallelSweep(ctx context.Context) (float64, error) {
	vi.store.ResetVisits()
	rows := vi.store.Track().Rows()

	snapshot := map[StateKey]float64{}
	vi.forEachState(0, rows, func(position, velocity geometry.Vector) {
		rec := vi.store.Group(position, velocity)
		snapshot[StateKey{Position: position, Velocity: velocity}] = rec.BestValue
	})

	lookahead := func(origin geometry.Vector, outcome racecar.Outcome) float64 {
		if outcome.Kind == racecar.OutcomeContinued && outcome.Position != origin {
			if best, ok := snapshot[StateKey{Position: outcome.Position, Velocity: outcome.Velocity}]; ok {
				return best
			}
		}
		return vi.store.Lookahead(origin, outcome, true)
	}

	delta := atomic_float.NewAtomicFloat64(0)
	group, groupCtx := errgroup.WithContext(ctx)

	rowQueue := make(chan int)
	group.Go(func() error {
		defer close(rowQueue)
		for row := 0; row < rows; row++ {
			select {
			case rowQueue <- row:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}
		return nil
	})

	for i := 0; i < vi.workers; i++ {
		group.Go(func() error {
			for row := range rowQueue {
				vi.forEachState(row, row+1, func(position, velocity geometry.Vector) {
					rec, _ := vi.store.Lookup(position, velocity)
					d := vi.backup(rec, position, velocity, func(outcome racecar.Outcome) float64 {
						return lookahead(position, outcome)
					})
					delta.AtomicMax(d)
				})
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}
	return delta.AtomicRead(), nil
}
