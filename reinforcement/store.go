package reinforcement

import (
	"math"

	"racetrack/geometry"
	"racetrack/grid_world"
	"racetrack/racecar"
)

// Rewards are the base rewards of each cell kind.
type Rewards struct {
	// Movement is the cost of standing on a ROAD or START cell.
	Movement float64
	Wall     float64
	Finish   float64
}

var DefaultRewards = Rewards{
	Movement: -1,
	Wall:     -1000,
	Finish:   100,
}

// CellReward is the per-position reward entry. WALL and FINISH entries are
// immutable and never swept or updated.
type CellReward struct {
	Base    float64
	Mutable bool
	Visits  int
}

// StateKey identifies a (position, velocity) group of action values.
type StateKey struct {
	Position geometry.Vector
	Velocity geometry.Vector
}

// VelocityRecord holds the action values of one (position, velocity) group.
// Values are indexed by racecar.ActionIndex.
type VelocityRecord struct {
	Values   [racecar.NUM_ACTIONS]float64
	Explored [racecar.NUM_ACTIONS]bool

	BestValue     float64
	PreviousValue float64
	BestAction    geometry.Vector
	HasBest       bool
}

// Value returns the stored value of an action, and whether it was ever written.
func (rec *VelocityRecord) Value(action geometry.Vector) (float64, bool) {
	i := racecar.ActionIndex(action)
	return rec.Values[i], rec.Explored[i]
}

func (rec *VelocityRecord) setValue(action geometry.Vector, value float64) {
	i := racecar.ActionIndex(action)
	rec.Values[i] = value
	rec.Explored[i] = true
}

// recomputeBest picks the max over explored actions, first encountered wins.
// The stationary action is skipped for a stationary racecar.
func (rec *VelocityRecord) recomputeBest(velocity geometry.Vector) {
	best := math.Inf(-1)
	found := false
	for i, action := range racecar.Actions {
		if !rec.Explored[i] || !eligible(velocity, action) {
			continue
		}
		if rec.Values[i] > best {
			best = rec.Values[i]
			rec.BestAction = action
			found = true
		}
	}
	if found {
		rec.BestValue = best
		rec.HasBest = true
	}
}

// eligible forbids the stationary no-op from ever being the best action.
func eligible(velocity, action geometry.Vector) bool {
	return !(velocity.IsZero() && action.IsZero())
}

// Store is the sparse state-value table: one reward entry per cell, created
// eagerly, plus per-(position, velocity) action groups created on first visit.
// The store is not safe for concurrent writers.
type Store struct {
	track   *grid_world.Track
	rewards Rewards
	cells   []CellReward
	groups  map[StateKey]*VelocityRecord
}

// NewStore builds the reward entries for every cell of the track.
func NewStore(track *grid_world.Track, rewards Rewards) *Store {
	store := &Store{
		track:   track,
		rewards: rewards,
		cells:   make([]CellReward, track.Rows()*track.Cols()),
		groups:  map[StateKey]*VelocityRecord{},
	}

	track.Visit(func(p geometry.Vector, cell grid_world.Cell) {
		entry := store.Reward(p)
		switch cell {
		case grid_world.WALL:
			entry.Base = rewards.Wall
		case grid_world.FINISH:
			entry.Base = rewards.Finish
		default:
			entry.Base = rewards.Movement
			entry.Mutable = true
		}
	})

	return store
}

func (store *Store) Track() *grid_world.Track { return store.track }
func (store *Store) Rewards() Rewards          { return store.rewards }

// Reward returns the reward entry of an in-bounds position.
func (store *Store) Reward(p geometry.Vector) *CellReward {
	return &store.cells[p.Row*store.track.Cols()+p.Col]
}

// Lookup returns the group at (position, velocity) if it was ever created.
func (store *Store) Lookup(position, velocity geometry.Vector) (*VelocityRecord, bool) {
	rec, ok := store.groups[StateKey{Position: position, Velocity: velocity}]
	return rec, ok
}

// Group returns the group at (position, velocity), creating it on first use.
func (store *Store) Group(position, velocity geometry.Vector) *VelocityRecord {
	key := StateKey{Position: position, Velocity: velocity}
	rec, ok := store.groups[key]
	if !ok {
		rec = &VelocityRecord{}
		store.groups[key] = rec
	}
	return rec
}

// Len returns the number of materialized (position, velocity) groups.
func (store *Store) Len() int {
	return len(store.groups)
}

// ResetVisits zeroes every visit counter.
func (store *Store) ResetVisits() {
	for i := range store.cells {
		store.cells[i].Visits = 0
	}
}

// Visit increments the visit counter of a position.
func (store *Store) Visit(p geometry.Vector) {
	store.Reward(p).Visits++
}

// PenalizedBase is the base reward of a position minus its visit count.
func (store *Store) PenalizedBase(p geometry.Vector) float64 {
	entry := store.Reward(p)
	return entry.Base - float64(entry.Visits)
}

// Lookahead values a probed outcome from origin. Walls and the finish line
// yield their fixed rewards. A continued outcome landing elsewhere on an
// already materialized group yields that group's previous best value, unless
// baseValues is set; everything else yields the visit-penalized base reward.
func (store *Store) Lookahead(origin geometry.Vector, outcome racecar.Outcome, baseValues bool) float64 {
	switch outcome.Kind {
	case racecar.OutcomeWall:
		return store.rewards.Wall
	case racecar.OutcomeFinished:
		return store.rewards.Finish
	}

	if !baseValues && outcome.Position != origin {
		if rec, ok := store.Lookup(outcome.Position, outcome.Velocity); ok {
			return rec.PreviousValue
		}
	}
	return store.PenalizedBase(outcome.Position)
}

// BestAction is the read-only policy lookup: the greedy action at (position, velocity).
func (store *Store) BestAction(position, velocity geometry.Vector) (geometry.Vector, bool) {
	rec, ok := store.Lookup(position, velocity)
	if !ok || !rec.HasBest {
		return geometry.Vector{}, false
	}
	return rec.BestAction, true
}

// Policy is the read-only view of a trained store consumed by replay and serving.
type Policy interface {
	BestAction(position, velocity geometry.Vector) (geometry.Vector, bool)
}
