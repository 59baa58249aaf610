package racecar

import (
	"testing"

	"racetrack/geometry"
	"racetrack/grid_world"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

var corridor = []string{
	"######",
	"#S..F#",
	"######",
}

var boxed = []string{
	"#####",
	"#S..#",
	"#####",
}

func newTestCar(rows []string, successRate float64) *Racecar {
	track, err := grid_world.NewTrack("test", rows)
	So(err, ShouldBeNil)
	rng := rand.New(rand.NewSource(1))
	car, err := NewRacecar(track, NewActuator(successRate, rng), rng)
	So(err, ShouldBeNil)
	return car
}

func TestActions(t *testing.T) {
	Convey("The action set is the nine accelerations in row-major order", t, func() {
		So(len(Actions), ShouldEqual, NUM_ACTIONS)
		So(Actions[0], ShouldResemble, geometry.Vector{Row: -1, Col: -1})
		So(Actions[4], ShouldResemble, geometry.Vector{Row: 0, Col: 0})
		So(Actions[8], ShouldResemble, geometry.Vector{Row: 1, Col: 1})
		for i, action := range Actions {
			So(ActionIndex(action), ShouldEqual, i)
		}
	})
}

func TestActuator(t *testing.T) {
	Convey("When resolving requested accelerations", t, func() {
		rng := rand.New(rand.NewSource(7))
		held := geometry.Vector{Row: 1, Col: 0}

		Convey("A reliable actuator applies every valid request", func() {
			act := NewActuator(1, rng)
			for i := 0; i < 50; i++ {
				So(act.Resolve(held, geometry.Vector{Row: -1, Col: 1}), ShouldResemble, geometry.Vector{Row: -1, Col: 1})
			}
		})

		Convey("A dead actuator keeps the held acceleration", func() {
			act := NewActuator(0, rng)
			for i := 0; i < 50; i++ {
				So(act.Resolve(held, geometry.Vector{Row: -1, Col: 1}), ShouldResemble, held)
			}
		})

		Convey("Invalid requests are ignored", func() {
			act := NewActuator(1, rng)
			So(act.Resolve(held, geometry.Vector{Row: 2, Col: 0}), ShouldResemble, held)
			So(act.Resolve(held, geometry.Vector{Row: 0, Col: -3}), ShouldResemble, held)
		})

		Convey("An unreliable actuator fails roughly at its failure rate", func() {
			act := NewActuator(DEFAULT_ACTUATION_SUCCESS, rng)
			failures := 0
			for i := 0; i < 10000; i++ {
				if act.Resolve(held, geometry.Vector{Row: 0, Col: 0}) == held {
					failures++
				}
			}
			So(failures, ShouldBeBetween, 1700, 2300)
		})
	})
}

func TestIntegration(t *testing.T) {
	Convey("When integrating the kinematics", t, func() {
		car := newTestCar(corridor, 1)

		Convey("Velocity saturates per axis", func() {
			car.Place(Kinematics{Position: geometry.Vector{Row: 1, Col: 1}, Velocity: geometry.Vector{Row: 5, Col: -5}})
			car.ApplyAction(geometry.Vector{Row: 1, Col: -1})
			car.IntegrateVelocity()
			So(car.Velocity(), ShouldResemble, geometry.Vector{Row: 5, Col: -5})

			car.ApplyAction(geometry.Vector{Row: -1, Col: 1})
			car.IntegrateVelocity()
			So(car.Velocity(), ShouldResemble, geometry.Vector{Row: 4, Col: -4})
		})

		Convey("Position follows velocity and records the travel path", func() {
			car.Place(Kinematics{Position: geometry.Vector{Row: 1, Col: 1}, Velocity: geometry.Vector{Row: 0, Col: 2}})
			car.IntegratePosition()
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 3})
			So(car.Path(), ShouldResemble, []geometry.Vector{{Row: 1, Col: 1}, {Row: 1, Col: 2}, {Row: 1, Col: 3}})
		})

		Convey("Paths leaving the grid stop at the border", func() {
			car.Place(Kinematics{Position: geometry.Vector{Row: 1, Col: 4}, Velocity: geometry.Vector{Row: 0, Col: 5}})
			car.IntegratePosition()
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 5})
		})
	})

	Convey("For any sequence of accelerations velocity stays within bounds", t, func() {
		rng := rand.New(rand.NewSource(11))
		for trial := 0; trial < 200; trial++ {
			car := newTestCar(corridor, DEFAULT_ACTUATION_SUCCESS)
			for step := 0; step < 50; step++ {
				car.ApplyAction(Actions[rng.Intn(NUM_ACTIONS)])
				car.IntegrateVelocity()
				v := car.Velocity()
				So(v.Row, ShouldBeBetweenOrEqual, MIN_VELOCITY, MAX_VELOCITY)
				So(v.Col, ShouldBeBetweenOrEqual, MIN_VELOCITY, MAX_VELOCITY)
			}
		}
	})
}

func TestOpenEdge(t *testing.T) {
	Convey("When a start line lies on an open border of the grid", t, func() {
		car := newTestCar([]string{
			"#F#",
			"#.#",
			"#S#",
		}, 1)
		car.Place(Kinematics{Position: geometry.Vector{Row: 2, Col: 1}, Velocity: geometry.Vector{Row: 2, Col: 0}})

		Convey("Driving off the grid holds the racecar at the edge with its velocity", func() {
			for i := 0; i < 3; i++ {
				car.Traverse(geometry.Vector{Row: 0, Col: 0}, false)
				So(car.Position(), ShouldResemble, geometry.Vector{Row: 2, Col: 1})
				So(car.Velocity(), ShouldResemble, geometry.Vector{Row: 2, Col: 0})
				So(car.Path(), ShouldResemble, []geometry.Vector{{Row: 2, Col: 1}})
			}
			So(car.WallHits(), ShouldEqual, 0)
			So(car.Finished(), ShouldBeFalse)
			So(car.Moves(), ShouldEqual, 3)
		})

		Convey("Projection agrees, and braking is what leaves the edge", func() {
			state := car.Kinematics()
			outcome := Project(car.track, state, geometry.Vector{Row: 0, Col: 0})
			So(outcome.Kind, ShouldEqual, OutcomeContinued)
			So(outcome.Position, ShouldResemble, geometry.Vector{Row: 2, Col: 1})
			So(outcome.Velocity, ShouldResemble, geometry.Vector{Row: 2, Col: 0})

			car.Traverse(geometry.Vector{Row: -1, Col: 0}, false)
			car.Traverse(geometry.Vector{Row: -1, Col: 0}, false)
			car.Traverse(geometry.Vector{Row: -1, Col: 0}, false)
			So(car.Velocity(), ShouldResemble, geometry.Vector{Row: -1, Col: 0})
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 1})
		})
	})
}

func TestCollisions(t *testing.T) {
	Convey("When a step crosses a wall", t, func() {
		car := newTestCar(boxed, 1)
		car.Place(Kinematics{Position: geometry.Vector{Row: 1, Col: 1}, Velocity: geometry.Vector{Row: 0, Col: 2}})

		Convey("Without restart the racer stops before the wall", func() {
			car.Traverse(geometry.Vector{Row: 0, Col: 1}, false)
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 3})
			So(car.Velocity(), ShouldResemble, geometry.Vector{Row: 0, Col: 0})
			So(car.Acceleration(), ShouldResemble, geometry.Vector{Row: 0, Col: 0})
			So(car.WallHits(), ShouldEqual, 1)
			So(car.Moves(), ShouldEqual, 1)

			Convey("Resolving again is a no-op", func() {
				So(car.ResolveCollision(false), ShouldBeFalse)
				So(car.WallHits(), ShouldEqual, 1)
				So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 3})
			})
		})

		Convey("With restart the racer returns to a start cell", func() {
			car.Traverse(geometry.Vector{Row: 0, Col: 1}, true)
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 1})
			So(car.Velocity().IsZero(), ShouldBeTrue)
			So(car.WallHits(), ShouldEqual, 1)
			So(car.Moves(), ShouldEqual, 1)
		})
	})
}

func TestFinish(t *testing.T) {
	Convey("When driving down the corridor", t, func() {
		car := newTestCar(corridor, 1)
		So(car.Finished(), ShouldBeFalse)

		car.Traverse(geometry.Vector{Row: 0, Col: 1}, false)
		So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 2})
		So(car.Finished(), ShouldBeFalse)

		Convey("Crossing the finish line wins even though the path then meets a wall", func() {
			car.Traverse(geometry.Vector{Row: 0, Col: 1}, false)
			So(car.Finished(), ShouldBeTrue)
			So(car.WallHits(), ShouldEqual, 0)
			So(car.Moves(), ShouldEqual, 2)
		})
	})
}

func TestHypotheticalSteps(t *testing.T) {
	Convey("When projecting hypothetical steps", t, func() {
		car := newTestCar(corridor, 1)
		car.Place(Kinematics{Position: geometry.Vector{Row: 1, Col: 1}})
		before := car.Save()

		Convey("Hypothetical steps leave no residue on the racecar", func() {
			for _, action := range Actions {
				car.Probe(action)
			}
			So(car.Save(), ShouldResemble, before)
		})

		Convey("Hypothetical outcomes agree with real steps", func() {
			outcome := car.Probe(geometry.Vector{Row: 0, Col: 1})
			So(outcome.Kind, ShouldEqual, OutcomeContinued)
			So(outcome.Position, ShouldResemble, geometry.Vector{Row: 1, Col: 2})
			So(outcome.Velocity, ShouldResemble, geometry.Vector{Row: 0, Col: 1})

			car.Traverse(geometry.Vector{Row: 0, Col: 1}, false)
			So(car.Position(), ShouldResemble, outcome.Position)
			So(car.Velocity(), ShouldResemble, outcome.Velocity)

			So(car.Probe(geometry.Vector{Row: 0, Col: 1}).Kind, ShouldEqual, OutcomeFinished)
			So(car.Probe(geometry.Vector{Row: -1, Col: 0}).Kind, ShouldEqual, OutcomeWall)
		})

		Convey("Restore rolls back a real step", func() {
			car.Traverse(geometry.Vector{Row: 0, Col: 1}, false)
			car.Restore(before)
			So(car.Position(), ShouldResemble, geometry.Vector{Row: 1, Col: 1})
			So(car.Moves(), ShouldEqual, 0)
		})
	})
}
