package racecar

import (
	"racetrack/geometry"
	"racetrack/grid_world"
)

// OutcomeKind classifies the result of a hypothetical step.
type OutcomeKind int

const (
	OutcomeContinued OutcomeKind = iota
	OutcomeFinished
	OutcomeWall
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFinished:
		return "finished"
	case OutcomeWall:
		return "wall"
	}
	return "continued"
}

// Outcome is the result of probing a step. Position and Velocity are only
// meaningful for OutcomeContinued.
type Outcome struct {
	Kind     OutcomeKind
	Position geometry.Vector
	Velocity geometry.Vector
}

// Probe evaluates one hypothetical step from state under the requested action,
// using the same actuation, integration and collision rules as a real step.
func Probe(
	track *grid_world.Track,
	state Kinematics,
	requested geometry.Vector,
	actuator *Actuator,
) Outcome {
	return Project(track, state, actuator.Resolve(state.Acceleration, requested))
}

// Project evaluates the step taken from state when acceleration is in effect,
// with no actuation draw. A path touching the finish line counts as finished
// even if it also crosses a wall.
func Project(
	track *grid_world.Track,
	state Kinematics,
	acceleration geometry.Vector,
) Outcome {
	velocity := integrateVelocity(state.Velocity, acceleration)
	path := track.TravelPath(state.Position, state.Position.Add(velocity))

	if track.PathTouchesFinish(path) {
		return Outcome{Kind: OutcomeFinished}
	}
	if _, hit := track.FirstWallOnPath(path); hit {
		return Outcome{Kind: OutcomeWall}
	}
	return Outcome{
		Kind:     OutcomeContinued,
		Position: path[len(path)-1],
		Velocity: velocity,
	}
}
