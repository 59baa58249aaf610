package reinforcement

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"racetrack/geometry"
	"racetrack/grid_world"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/exp/rand"
)

// fixedPolicy always returns the same action.
type fixedPolicy geometry.Vector

func (p fixedPolicy) BestAction(_, _ geometry.Vector) (geometry.Vector, bool) {
	return geometry.Vector(p), true
}

func TestRace(t *testing.T) {
	Convey("When racing a fixed policy", t, func() {
		track := mustTrack(trivialTrack)
		rng := rand.New(rand.NewSource(4))

		Convey("Driving east finishes", func() {
			result, err := Race(context.Background(), track, fixedPolicy{0, 1},
				RaceOptions{ActuationSuccess: 1}, rng)
			So(err, ShouldBeNil)
			So(result.Moves, ShouldEqual, 2)
			So(result.WallHits, ShouldEqual, 0)
		})

		Convey("Driving west crashes until the move budget runs out", func() {
			result, err := Race(context.Background(), track, fixedPolicy{0, -1},
				RaceOptions{ActuationSuccess: 1, MaxMoves: 25}, rng)
			So(errors.Is(err, ErrMoveBudgetExceeded), ShouldBeTrue)
			So(result.Moves, ShouldEqual, 25)
			So(result.WallHits, ShouldEqual, 25)
		})

		Convey("A printer renders every move", func() {
			buf := &bytes.Buffer{}
			_, err := Race(context.Background(), track, fixedPolicy{0, 1},
				RaceOptions{ActuationSuccess: 1, Printer: grid_world.NewPrinter(buf, false)}, rng)
			So(err, ShouldBeNil)
			So(strings.Count(buf.String(), "@"), ShouldEqual, 2)
		})
	})
}

func TestShowPolicy(t *testing.T) {
	Convey("When showing a policy", t, func() {
		track := mustTrack(trivialTrack)
		buf := &bytes.Buffer{}
		ShowPolicy(grid_world.NewPrinter(buf, false), fixedPolicy{-1, 1}, track, geometry.Vector{})

		lines := strings.Split(buf.String(), "\n")
		So(lines[0], ShouldContainSubstring, "[0, 0]")
		So(lines[2], ShouldEqual, "# ↗ ↗ F # ")
		So(ActionArrow(geometry.Vector{Row: 1, Col: 0}), ShouldEqual, "↓")
		So(ActionArrow(geometry.Vector{Row: 0, Col: 0}), ShouldEqual, "o")
	})
}
