package reinforcement

import (
	"context"
	"math"
	"time"

	"racetrack/geometry"
	"racetrack/racecar"
)

/*
Value iteration sweeps every (position, velocity, action) of the track, backing up
reward(position) + discount * lookahead until the largest change in any group's best
value falls under the threshold.

The lookahead is the expectation over the actuator: with the success rate the requested
acceleration takes effect, otherwise the held acceleration (0,0) does. Backups draw
no randomness, so a sweep is a contraction and the delta shrinks toward zero.

The default sweep is in place (Gauss-Seidel): lookups see groups already swept in the
current pass, via their previous best value. Sweep order is fixed for reproducibility:
row-major over positions, then over velocities from (-5,-5) to (5,5), then over actions.

With more than one worker the sweep is double-buffered (Jacobi) instead: every lookup
reads the best values as of the start of the sweep, and rows are partitioned across
workers. This converges along a different trajectory than the in-place sweep.
*/

// ValueIteration is the synchronous-sweep Bellman solver.
type ValueIteration struct {
	store            *Store
	discount         float64
	threshold        float64
	actuationSuccess float64
	workers          int
}

// NewValueIteration returns a solver over the store.
func NewValueIteration(
	store *Store,
	params HyperParams,
	workers int,
) *ValueIteration {
	if workers < 1 {
		workers = 1
	}
	return &ValueIteration{
		store:            store,
		discount:         params.Discount,
		threshold:        params.Threshold,
		actuationSuccess: params.ActuationSuccess,
		workers:          workers,
	}
}

// Train sweeps until the sweep delta is at most the threshold, returning the sweep count.
// Cancellation is checked between sweeps; on cancellation the sweeps so far are
// returned together with the context error.
func (vi *ValueIteration) Train(ctx context.Context, progressFn ProgressFunc) (int, error) {
	if progressFn == nil {
		progressFn = noProgress
	}

	start := time.Now()
	sweeps := 0
	for {
		if err := ctx.Err(); err != nil {
			return sweeps, err
		}

		var delta float64
		if vi.workers > 1 {
			var err error
			if delta, err = vi.ParallelSweep(ctx); err != nil {
				return sweeps, err
			}
		} else {
			delta = vi.Sweep()
		}
		sweeps++

		progressFn(ctx, Progress{
			Algorithm: VALUE_ITERATION,
			Iteration: sweeps,
			Delta:     delta,
			States:    vi.store.Len(),
			Elapsed:   time.Since(start),
		})

		if delta <= vi.threshold {
			return sweeps, nil
		}
	}
}

// Sweep performs one in-place pass and returns its delta.
func (vi *ValueIteration) Sweep() (delta float64) {
	vi.store.ResetVisits()
	vi.forEachState(0, vi.store.Track().Rows(), func(position, velocity geometry.Vector) {
		rec := vi.store.Group(position, velocity)
		lookahead := func(outcome racecar.Outcome) float64 {
			return vi.store.Lookahead(position, outcome, false)
		}
		if d := vi.backup(rec, position, velocity, lookahead); d > delta {
			delta = d
		}
	})
	return
}

// forEachState visits every velocity of every mutable position in rows [fromRow, toRow).
func (vi *ValueIteration) forEachState(fromRow, toRow int, fn func(position, velocity geometry.Vector)) {
	cols := vi.store.Track().Cols()
	for row := fromRow; row < toRow; row++ {
		for col := 0; col < cols; col++ {
			position := geometry.Vector{Row: row, Col: col}
			if !vi.store.Reward(position).Mutable {
				continue
			}
			for vr := racecar.MIN_VELOCITY; vr <= racecar.MAX_VELOCITY; vr++ {
				for vc := racecar.MIN_VELOCITY; vc <= racecar.MAX_VELOCITY; vc++ {
					fn(position, geometry.Vector{Row: vr, Col: vc})
				}
			}
		}
	}
}

// backup computes every action value of one group, selects the best action and rolls
// the previous best value. Returns |best - previous|.
func (vi *ValueIteration) backup(
	rec *VelocityRecord,
	position, velocity geometry.Vector,
	lookahead func(racecar.Outcome) float64,
) float64 {
	track := vi.store.Track()
	reward := vi.store.Reward(position).Base
	state := racecar.Kinematics{Position: position, Velocity: velocity}
	// A failed actuation keeps the held (0,0), coasting at the current velocity.
	coasting := 0.0
	if vi.actuationSuccess < 1 {
		coasting = lookahead(racecar.Project(track, state, geometry.Vector{}))
	}

	best := math.Inf(-1)
	var bestAction geometry.Vector
	for _, action := range racecar.Actions {
		expected := vi.actuationSuccess*lookahead(racecar.Project(track, state, action)) +
			(1-vi.actuationSuccess)*coasting
		value := reward + vi.discount*expected
		rec.setValue(action, value)

		if eligible(velocity, action) && value > best {
			best = value
			bestAction = action
		}
	}

	previous := 0.0
	if rec.HasBest {
		previous = rec.BestValue
	}
	rec.PreviousValue = previous
	rec.BestValue = best
	rec.BestAction = bestAction
	rec.HasBest = true

	return math.Abs(best - previous)
}
