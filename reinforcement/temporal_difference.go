package reinforcement

import (
	"context"
	"math"
	"time"

	"racetrack/geometry"
	"racetrack/racecar"

	"golang.org/x/exp/rand"
)

/*
Episodic Q-learning and SARSA share everything except the value of the successor used
in the TD target:
  - Q-learning uses the best stored value at the successor (position, velocity).
  - SARSA picks the successor's action with the same epsilon-greedy policy, advances the
    racecar one more real step to observe where that lands, reads the stored value of the
    action there, then rolls the racecar back so the trajectory advances only once.

A crash or finish on the real step overrides either with the fixed wall/finish reward.
Each episode runs from a sampled start until the finish line, or until maxEpisodeSteps
so that a degenerate policy cannot spin forever. Epsilon decays after every episode.
*/

// TemporalDifference is the unified Q-learning/SARSA learner.
type TemporalDifference struct {
	store    *Store
	rng      *rand.Rand
	actuator *racecar.Actuator
	params   HyperParams
	epsilon  float64
	sarsa    bool
	restart  bool
	// baseLookahead scores the immediate reward of an action by the visit-penalized
	// base reward of its landing cell rather than its stored value.
	baseLookahead bool
}

// NewTemporalDifference returns a learner over the store. The rng drives actuation,
// start sampling and exploration.
func NewTemporalDifference(
	store *Store,
	params HyperParams,
	sarsa bool,
	restart bool,
	baseLookahead bool,
	rng *rand.Rand,
) *TemporalDifference {
	return &TemporalDifference{
		store:         store,
		rng:           rng,
		actuator:      racecar.NewActuator(params.ActuationSuccess, rng),
		params:        params,
		epsilon:       params.Epsilon,
		sarsa:         sarsa,
		restart:       restart,
		baseLookahead: baseLookahead,
	}
}

// Epsilon returns the current exploration rate.
func (td *TemporalDifference) Epsilon() float64 {
	return td.epsilon
}

func (td *TemporalDifference) name() string {
	if td.sarsa {
		return SARSA
	}
	return Q_LEARNING
}

// Train runs episodes until an episode's delta is at most the threshold or the episode
// budget is spent, returning the episode count. Cancellation is checked between episodes.
func (td *TemporalDifference) Train(ctx context.Context, progressFn ProgressFunc) (int, error) {
	if progressFn == nil {
		progressFn = noProgress
	}

	start := time.Now()
	episodes := 0
	for episodes < td.params.Episodes {
		if err := ctx.Err(); err != nil {
			return episodes, err
		}

		delta, err := td.Episode()
		if err != nil {
			return episodes, err
		}
		episodes++
		td.epsilon *= td.params.EpsilonDecay

		progressFn(ctx, Progress{
			Algorithm: td.name(),
			Iteration: episodes,
			Delta:     delta,
			Epsilon:   td.epsilon,
			States:    td.store.Len(),
			Elapsed:   time.Since(start),
		})

		if delta <= td.params.Threshold {
			break
		}
	}
	return episodes, nil
}

// Episode drives one racecar from a sampled start and returns the largest absolute
// change made to any action value.
func (td *TemporalDifference) Episode() (delta float64, err error) {
	td.store.ResetVisits()

	var car *racecar.Racecar
	if car, err = racecar.NewRacecar(td.store.Track(), td.actuator, td.rng); err != nil {
		return
	}

	for steps := 0; !car.Finished() && steps < td.params.MaxEpisodeSteps; steps++ {
		position, velocity := car.Position(), car.Velocity()
		action := td.chooseAction(position, velocity)
		reward := td.store.Lookahead(position, car.Probe(action), td.baseLookahead)

		car.Advance(action)
		td.store.Visit(position)

		var next float64
		switch {
		case car.Finished():
			next = td.store.Rewards().Finish
		case car.Crashed():
			next = td.store.Rewards().Wall
			car.ResolveCollision(td.restart)
		case td.sarsa:
			next = td.sarsaNext(car)
		default:
			next = td.qNext(car.Position(), car.Velocity())
		}

		rec := td.store.Group(position, velocity)
		current, explored := rec.Value(action)
		if !explored {
			current = td.store.Reward(position).Base
		}
		updated := current + td.params.Eta*(reward+td.params.Discount*next-current)
		td.update(rec, velocity, action, updated)

		delta = math.Max(delta, math.Abs(updated-current))
	}
	return
}

// chooseAction is epsilon-greedy over the stored policy, random when nothing is stored.
func (td *TemporalDifference) chooseAction(position, velocity geometry.Vector) geometry.Vector {
	if td.rng.Float64() < td.epsilon {
		return randomAction(td.rng, velocity)
	}
	if action, ok := td.store.BestAction(position, velocity); ok {
		return action
	}
	return randomAction(td.rng, velocity)
}

// randomAction draws uniformly among actions, excluding the no-op for a stationary racecar.
func randomAction(rng *rand.Rand, velocity geometry.Vector) geometry.Vector {
	for {
		action := racecar.Actions[rng.Intn(racecar.NUM_ACTIONS)]
		if eligible(velocity, action) {
			return action
		}
	}
}

// qNext is the best stored value at the successor, else its visit-penalized base reward.
func (td *TemporalDifference) qNext(position, velocity geometry.Vector) float64 {
	if rec, ok := td.store.Lookup(position, velocity); ok && rec.HasBest {
		return rec.BestValue
	}
	return td.store.PenalizedBase(position)
}

// sarsaNext advances the racecar by the on-policy successor action, values the landing
// state, and restores the racecar.
func (td *TemporalDifference) sarsaNext(car *racecar.Racecar) float64 {
	checkpoint := car.Save()
	defer car.Restore(checkpoint)

	action := td.chooseAction(car.Position(), car.Velocity())
	car.Advance(action)

	switch {
	case car.Finished():
		return td.store.Rewards().Finish
	case car.Crashed():
		return td.store.Rewards().Wall
	}

	if rec, ok := td.store.Lookup(car.Position(), car.Velocity()); ok {
		if value, explored := rec.Value(action); explored {
			return value
		}
	}
	return td.store.PenalizedBase(car.Position())
}

// update writes an action value and maintains the group's best. If the best action's
// value dropped, the best is recomputed over explored actions. The previous value is
// committed to the best so probe lookups see the latest estimate.
func (td *TemporalDifference) update(
	rec *VelocityRecord,
	velocity geometry.Vector,
	action geometry.Vector,
	value float64,
) {
	wasBest := rec.HasBest && rec.BestAction == action
	rec.setValue(action, value)

	switch {
	case !eligible(velocity, action):
	case !rec.HasBest || value > rec.BestValue:
		rec.BestValue = value
		rec.BestAction = action
		rec.HasBest = true
	case wasBest && value < rec.BestValue:
		rec.recomputeBest(velocity)
	}
	rec.PreviousValue = rec.BestValue
}
