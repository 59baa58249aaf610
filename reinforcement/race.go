package reinforcement

import (
	"context"
	"errors"
	"time"

	"racetrack/grid_world"
	"racetrack/racecar"

	"golang.org/x/exp/rand"
)

// DEFAULT_MAX_MOVES bounds a race when RaceOptions leaves MaxMoves unset.
const DEFAULT_MAX_MOVES = 100000

var (
	// ErrMoveBudgetExceeded is returned when a race does not finish within its move budget.
	ErrMoveBudgetExceeded = errors.New("race exceeded its move budget")
)

// RaceOptions parameterize a replay of a trained policy.
type RaceOptions struct {
	// Restart sends the racecar back to the start line on a crash.
	Restart bool
	// Exploration is the probability of a random action, a small floor against
	// getting stuck in unexplored states.
	Exploration      float64
	ActuationSuccess float64
	MaxMoves         int
	// Printer, if set, renders the racer on the track before every move.
	Printer *grid_world.Printer
}

// RaceResult holds the counters of one replay.
type RaceResult struct {
	Moves    int
	WallHits int
	Elapsed  time.Duration
}

// Race drives a fresh racecar from a sampled start with the greedy policy until it
// crosses the finish line. Unexplored states fall back to a random action.
func Race(
	ctx context.Context,
	track *grid_world.Track,
	policy Policy,
	opts RaceOptions,
	rng *rand.Rand,
) (RaceResult, error) {
	if opts.MaxMoves <= 0 {
		opts.MaxMoves = DEFAULT_MAX_MOVES
	}

	start := time.Now()
	actuator := racecar.NewActuator(opts.ActuationSuccess, rng)
	car, err := racecar.NewRacecar(track, actuator, rng)
	if err != nil {
		return RaceResult{}, err
	}

	result := func() RaceResult {
		return RaceResult{
			Moves:    car.Moves(),
			WallHits: car.WallHits(),
			Elapsed:  time.Since(start),
		}
	}

	for !car.Finished() {
		if car.Moves() >= opts.MaxMoves {
			return result(), ErrMoveBudgetExceeded
		}
		if err := ctx.Err(); err != nil {
			return result(), err
		}

		position, velocity := car.Position(), car.Velocity()
		action, ok := policy.BestAction(position, velocity)
		if !ok || rng.Float64() < opts.Exploration {
			action = randomAction(rng, velocity)
		}

		if opts.Printer != nil {
			opts.Printer.ShowRacer(track, position)
		}
		car.Traverse(action, opts.Restart)
	}

	return result(), nil
}
