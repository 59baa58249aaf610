package reinforcement

import (
	"context"
	"testing"
	"time"

	"racetrack/geometry"
	"racetrack/grid_world"
	"racetrack/racecar"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

func deterministicParams() HyperParams {
	params := (&TrainingConfig{}).Params()
	params.ActuationSuccess = 1
	return params
}

// greedyRollout follows the stored policy from the first start cell without any
// actuation noise, checking every chosen action against a hypothetical step first.
func greedyRollout(store *Store, maxSteps int) (steps int, finished bool, hitWall bool) {
	track := store.Track()
	actuator := racecar.NewActuator(1, rand.New(rand.NewSource(1)))
	state := racecar.Kinematics{Position: track.StartCells()[0]}

	for steps = 1; steps <= maxSteps; steps++ {
		action, ok := store.BestAction(state.Position, state.Velocity)
		if !ok {
			return
		}
		outcome := racecar.Probe(track, state, action, actuator)
		switch outcome.Kind {
		case racecar.OutcomeFinished:
			finished = true
			return
		case racecar.OutcomeWall:
			hitWall = true
			return
		}
		state = racecar.Kinematics{
			Position:     outcome.Position,
			Velocity:     outcome.Velocity,
			Acceleration: action,
		}
	}
	return
}

func TestValueIteration(t *testing.T) {
	Convey("When running value iteration on the trivial track", t, func() {
		params := deterministicParams()
		params.Threshold = 0
		store := NewStore(mustTrack(trivialTrack), params.Rewards)
		vi := NewValueIteration(store, params, 1)

		Convey("The first sweep moves the values the most", func() {
			first := vi.Sweep()
			So(first, ShouldBeGreaterThan, 100)
			So(vi.Sweep(), ShouldBeLessThan, first)
		})

		Convey("Sweeps reach an exact fixed point", func() {
			deltas := []float64{}
			sweeps, err := vi.Train(context.Background(), func(_ context.Context, p Progress) {
				So(p.Algorithm, ShouldEqual, VALUE_ITERATION)
				deltas = append(deltas, p.Delta)
			})
			So(err, ShouldBeNil)
			So(sweeps, ShouldEqual, len(deltas))
			So(deltas[len(deltas)-1], ShouldEqual, 0.0)
			So(vi.Sweep(), ShouldEqual, 0.0)

			Convey("Walls and the finish line are never swept", func() {
				_, ok := store.Lookup(geometry.Vector{Row: 1, Col: 3}, geometry.Vector{Row: 0, Col: 0})
				So(ok, ShouldBeFalse)
				_, ok = store.Lookup(geometry.Vector{Row: 0, Col: 0}, geometry.Vector{Row: 0, Col: 0})
				So(ok, ShouldBeFalse)
				So(store.Len(), ShouldEqual, 2*121)
			})

			Convey("The stationary start heads for the finish line", func() {
				action, ok := store.BestAction(geometry.Vector{Row: 1, Col: 1}, geometry.Vector{Row: 0, Col: 0})
				So(ok, ShouldBeTrue)
				So(action, ShouldResemble, geometry.Vector{Row: 0, Col: 1})

				steps, finished, hitWall := greedyRollout(store, 10)
				So(hitWall, ShouldBeFalse)
				So(finished, ShouldBeTrue)
				So(steps, ShouldEqual, 2)
			})
		})

		Convey("A cancelled context stops training before a sweep", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			sweeps, err := vi.Train(ctx, nil)
			So(err, ShouldEqual, context.Canceled)
			So(sweeps, ShouldEqual, 0)
		})
	})

	Convey("When running value iteration on an open grid", t, func() {
		params := deterministicParams()
		params.Threshold = 0.001
		store := NewStore(mustTrack(openTrack), params.Rewards)
		vi := NewValueIteration(store, params, 1)

		_, err := vi.Train(context.Background(), nil)
		So(err, ShouldBeNil)

		Convey("The greedy policy never steers into a wall", func() {
			steps, finished, hitWall := greedyRollout(store, 20)
			So(hitWall, ShouldBeFalse)
			So(finished, ShouldBeTrue)
			So(steps, ShouldBeLessThanOrEqualTo, 20)
		})
	})
}

func TestStochasticValueIteration(t *testing.T) {
	Convey("When the actuator fails at its default rate", t, func() {
		params := (&TrainingConfig{}).Params()
		So(params.ActuationSuccess, ShouldEqual, racecar.DEFAULT_ACTUATION_SUCCESS)
		track, err := grid_world.NewTrack("debug", grid_world.DebugTrack)
		So(err, ShouldBeNil)
		store := NewStore(track, params.Rewards)
		vi := NewValueIteration(store, params, 1)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		deltas := []float64{}
		sweeps, err := vi.Train(ctx, func(_ context.Context, p Progress) {
			deltas = append(deltas, p.Delta)
		})

		Convey("Training meets the threshold well before any deadline", func() {
			So(err, ShouldBeNil)
			So(sweeps, ShouldBeLessThan, 500)
			So(deltas[len(deltas)-1], ShouldBeLessThanOrEqualTo, params.Threshold)
		})

		Convey("The policy races to the finish line despite failed actuations", func() {
			result, err := Race(context.Background(), track, store,
				RaceOptions{ActuationSuccess: params.ActuationSuccess, MaxMoves: 10000},
				rand.New(rand.NewSource(9)))
			So(err, ShouldBeNil)
			So(result.Moves, ShouldBeGreaterThan, 0)
		})
	})
}

func TestParallelSweep(t *testing.T) {
	Convey("When sweeping with several workers", t, func() {
		params := deterministicParams()
		params.Threshold = 0.001
		store := NewStore(mustTrack(openTrack), params.Rewards)
		vi := NewValueIteration(store, params, 4)

		sweeps, err := vi.Train(context.Background(), nil)
		So(err, ShouldBeNil)
		So(sweeps, ShouldBeGreaterThan, 1)
		So(store.Len(), ShouldEqual, 8*121)

		Convey("The double-buffered policy also reaches the finish line safely", func() {
			_, finished, hitWall := greedyRollout(store, 20)
			So(hitWall, ShouldBeFalse)
			So(finished, ShouldBeTrue)
		})
	})
}
