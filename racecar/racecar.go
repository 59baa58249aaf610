// Package racecar simulates a point-mass vehicle on a track: an unreliable
// actuator, discrete-time velocity/position integration, and wall/finish
// detection along the rasterized travel path.
package racecar

import (
	"racetrack/geometry"
	"racetrack/grid_world"

	"golang.org/x/exp/rand"
)

const (
	// Kinematic bounds. A velocity of 1 means traveling one grid cell per time step.
	MAX_VELOCITY     = 5
	MIN_VELOCITY     = -MAX_VELOCITY
	MAX_ACCELERATION = 1
	MIN_ACCELERATION = -1

	// DEFAULT_ACTUATION_SUCCESS is the probability a requested acceleration takes effect.
	DEFAULT_ACTUATION_SUCCESS = 0.8
)

// Actions are the nine accelerations in row-major order: (-1,-1), (-1,0), ... (1,1).
var Actions = func() (actions []geometry.Vector) {
	for r := MIN_ACCELERATION; r <= MAX_ACCELERATION; r++ {
		for c := MIN_ACCELERATION; c <= MAX_ACCELERATION; c++ {
			actions = append(actions, geometry.Vector{Row: r, Col: c})
		}
	}
	return
}()

// NUM_ACTIONS is the number of distinct accelerations per state.
const NUM_ACTIONS = 9

// ActionIndex returns the row-major index of a valid acceleration in Actions.
func ActionIndex(a geometry.Vector) int {
	return (a.Row-MIN_ACCELERATION)*3 + (a.Col - MIN_ACCELERATION)
}

// ValidAcceleration reports whether both components are in {-1, 0, 1}.
func ValidAcceleration(a geometry.Vector) bool {
	return a.Row >= MIN_ACCELERATION && a.Row <= MAX_ACCELERATION &&
		a.Col >= MIN_ACCELERATION && a.Col <= MAX_ACCELERATION
}

// Kinematics is the (position, velocity, acceleration) triple of a vehicle.
type Kinematics struct {
	Position, Velocity, Acceleration geometry.Vector
}

// Actuator decides whether a requested acceleration takes effect. With
// probability 1-SuccessRate the request is dropped and the held acceleration
// stays in place; invalid requests are dropped the same way.
type Actuator struct {
	SuccessRate float64
	rng         *rand.Rand
}

// NewActuator returns an actuator drawing from rng.
func NewActuator(successRate float64, rng *rand.Rand) *Actuator {
	return &Actuator{
		SuccessRate: successRate,
		rng:         rng,
	}
}

// Resolve returns the acceleration in effect after requesting one.
func (act *Actuator) Resolve(held, requested geometry.Vector) geometry.Vector {
	if act.rng.Float64() >= act.SuccessRate {
		return held
	}
	if !ValidAcceleration(requested) {
		return held
	}
	return requested
}

func integrateVelocity(velocity, acceleration geometry.Vector) geometry.Vector {
	return velocity.Add(acceleration).Clamp(MIN_VELOCITY, MAX_VELOCITY)
}

// Racecar owns the mutable kinematic state of one simulation run.
type Racecar struct {
	track    *grid_world.Track
	actuator *Actuator
	rng      *rand.Rand

	position     geometry.Vector
	velocity     geometry.Vector
	acceleration geometry.Vector
	previous     geometry.Vector
	// path is the travel record of the last position update; empty after a reset.
	path []geometry.Vector

	wallHits int
	moves    int
}

// NewRacecar places a stationary racecar on a randomly sampled start cell.
func NewRacecar(
	track *grid_world.Track,
	actuator *Actuator,
	rng *rand.Rand,
) (*Racecar, error) {
	start, err := track.SampleStart(rng)
	if err != nil {
		return nil, err
	}
	return &Racecar{
		track:    track,
		actuator: actuator,
		rng:      rng,
		position: start,
		previous: start,
	}, nil
}

func (car *Racecar) Position() geometry.Vector     { return car.position }
func (car *Racecar) Velocity() geometry.Vector     { return car.velocity }
func (car *Racecar) Acceleration() geometry.Vector { return car.acceleration }
func (car *Racecar) WallHits() int                 { return car.wallHits }
func (car *Racecar) Moves() int                    { return car.moves }

// Path returns the travel record of the last position update.
func (car *Racecar) Path() []geometry.Vector { return car.path }

// Kinematics returns a copy of the current kinematic state.
func (car *Racecar) Kinematics() Kinematics {
	return Kinematics{
		Position:     car.position,
		Velocity:     car.velocity,
		Acceleration: car.acceleration,
	}
}

// Place puts the racecar at an arbitrary kinematic state, clearing the travel record.
func (car *Racecar) Place(k Kinematics) {
	car.position = k.Position
	car.previous = k.Position
	car.velocity = k.Velocity
	car.acceleration = k.Acceleration
	car.path = nil
}

// ApplyAction requests an acceleration from the unreliable actuator.
func (car *Racecar) ApplyAction(requested geometry.Vector) {
	car.acceleration = car.actuator.Resolve(car.acceleration, requested)
}

// IntegrateVelocity adds the acceleration to the velocity, saturating each axis.
func (car *Racecar) IntegrateVelocity() {
	car.velocity = integrateVelocity(car.velocity, car.acceleration)
}

// IntegratePosition moves the racecar by its velocity and records the travel path.
// A path leaving the grid is cut at the border, and the position becomes the
// last in-bounds cell of the path.
func (car *Racecar) IntegratePosition() {
	car.previous = car.position
	car.path = car.track.TravelPath(car.previous, car.position.Add(car.velocity))
	car.position = car.path[len(car.path)-1]
}

// ResolveCollision checks the travel record for walls. On a hit the wall counter
// increments and the racecar is repositioned: to a fresh start cell when restart
// is set, else to the last cell before the wall. Velocity and acceleration are
// zeroed either way. Returns whether a wall was hit.
// Resolution clears the travel record, so repeating it is a no-op.
func (car *Racecar) ResolveCollision(restart bool) bool {
	safe, hit := car.track.FirstWallOnPath(car.path)
	if !hit {
		return false
	}

	car.wallHits++
	if restart {
		// NewRacecar already proved the track has start cells.
		safe, _ = car.track.SampleStart(car.rng)
	}
	car.Place(Kinematics{Position: safe})
	return true
}

// Finished reports whether the last travel record crossed the finish line. With
// no travel record, e.g. right after a reset, the current cell alone decides.
func (car *Racecar) Finished() bool {
	if len(car.path) > 0 {
		return car.track.PathTouchesFinish(car.path)
	}
	return car.track.IsFinish(car.position)
}

// Advance performs actuation and integration for one real step and counts the
// move, leaving collision resolution to the caller.
func (car *Racecar) Advance(requested geometry.Vector) {
	car.ApplyAction(requested)
	car.IntegrateVelocity()
	car.IntegratePosition()
	car.moves++
}

// Crashed reports whether the travel record crosses a wall, without resolving it.
func (car *Racecar) Crashed() bool {
	_, hit := car.track.FirstWallOnPath(car.path)
	return hit
}

// Traverse performs one real control step: actuation, integration, the move
// count, then collision resolution unless the finish line was crossed.
func (car *Racecar) Traverse(requested geometry.Vector, restart bool) {
	car.Advance(requested)
	if car.Finished() {
		return
	}
	car.ResolveCollision(restart)
}

// Probe evaluates a hypothetical step from the current state without mutating the racecar.
func (car *Racecar) Probe(requested geometry.Vector) Outcome {
	return Probe(car.track, car.Kinematics(), requested, car.actuator)
}

// Checkpoint is an opaque copy of the full racecar state.
type Checkpoint struct {
	kinematics Kinematics
	previous   geometry.Vector
	path       []geometry.Vector
	wallHits   int
	moves      int
}

// Save captures the racecar state for a later Restore.
func (car *Racecar) Save() Checkpoint {
	return Checkpoint{
		kinematics: car.Kinematics(),
		previous:   car.previous,
		path:       car.path,
		wallHits:   car.wallHits,
		moves:      car.moves,
	}
}

// Restore rolls the racecar back to a checkpoint.
func (car *Racecar) Restore(cp Checkpoint) {
	car.position = cp.kinematics.Position
	car.velocity = cp.kinematics.Velocity
	car.acceleration = cp.kinematics.Acceleration
	car.previous = cp.previous
	car.path = cp.path
	car.wallHits = cp.wallHits
	car.moves = cp.moves
}
