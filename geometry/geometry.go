// Package geometry holds the lattice math used by the track and the racecar:
// integer vectors, compass directions and the rasterized travel path between two
// lattice points. Everything here is pure.
package geometry

import "fmt"

// Vector is an integer (row, col) pair. Positions, velocities and accelerations
// all share this representation; row grows downward and col grows rightward,
// with (0,0) at the top left of the track.
type Vector struct {
	Row, Col int
}

// Add returns v + other.
func (v Vector) Add(other Vector) Vector {
	return Vector{Row: v.Row + other.Row, Col: v.Col + other.Col}
}

// Sub returns v - other.
func (v Vector) Sub(other Vector) Vector {
	return Vector{Row: v.Row - other.Row, Col: v.Col - other.Col}
}

// IsZero reports whether both components are zero.
func (v Vector) IsZero() bool {
	return v.Row == 0 && v.Col == 0
}

// Clamp caps each component independently to [lo, hi].
func (v Vector) Clamp(lo, hi int) Vector {
	return Vector{Row: clamp(v.Row, lo, hi), Col: clamp(v.Col, lo, hi)}
}

func (v Vector) String() string {
	return fmt.Sprintf("[%d, %d]", v.Row, v.Col)
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

// Direction is one of the eight compass octants, or None when two points coincide.
type Direction int

const (
	None Direction = iota
	N
	NE
	E
	SE
	S
	SW
	W
	NW
)

// increments maps each octant to its unit lattice step.
var increments = map[Direction]Vector{
	N:  {-1, 0},
	NE: {-1, 1},
	E:  {0, 1},
	SE: {1, 1},
	S:  {1, 0},
	SW: {1, -1},
	W:  {0, -1},
	NW: {-1, -1},
}

// Increment returns the unit step for the direction; None yields the zero vector.
func (d Direction) Increment() Vector {
	return increments[d]
}

func (d Direction) String() string {
	return [...]string{"None", "N", "NE", "E", "SE", "S", "SW", "W", "NW"}[d]
}

// DirectionTo classifies the octant in which goal lies as seen from origin,
// by the sign pattern of (origin - goal).
func DirectionTo(origin, goal Vector) Direction {
	diff := origin.Sub(goal)
	switch [2]int{sign(diff.Row), sign(diff.Col)} {
	case [2]int{-1, -1}:
		return SE
	case [2]int{-1, 0}:
		return S
	case [2]int{-1, 1}:
		return SW
	case [2]int{0, -1}:
		return E
	case [2]int{0, 1}:
		return W
	case [2]int{1, -1}:
		return NE
	case [2]int{1, 0}:
		return N
	case [2]int{1, 1}:
		return NW
	}
	return None
}
