package reinforcement

import (
	"fmt"

	"racetrack/geometry"
	"racetrack/grid_world"
)

var arrows = map[geometry.Direction]string{
	geometry.None: "o",
	geometry.N:    "↑",
	geometry.NE:   "↗",
	geometry.E:    "→",
	geometry.SE:   "↘",
	geometry.S:    "↓",
	geometry.SW:   "↙",
	geometry.W:    "←",
	geometry.NW:   "↖",
}

// ActionArrow renders an acceleration as a compass arrow.
func ActionArrow(action geometry.Vector) string {
	return arrows[geometry.DirectionTo(geometry.Vector{}, action)]
}

// ShowPolicy prints the greedy action of every cell at the given velocity. Cells
// without a learned action, and immutable cells, print as their track character.
func ShowPolicy(p *grid_world.Printer, policy Policy, track *grid_world.Track, velocity geometry.Vector) {
	p.Printf("Policy at velocity %v\n", velocity)
	for r, line := range track.Lines() {
		for c := range line {
			position := geometry.Vector{Row: r, Col: c}
			cell := track.At(position)
			symbol := cell.String()
			if action, ok := policy.BestAction(position, velocity); ok && cell != grid_world.WALL && cell != grid_world.FINISH {
				symbol = ActionArrow(action)
			}
			p.Printf("%v", p.Paint(cell, fmt.Sprintf("%s ", symbol)))
		}
		p.Printf("\n")
	}
}
