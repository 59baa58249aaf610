package grid_world

import (
	"errors"
	"fmt"

	"racetrack/geometry"

	"golang.org/x/exp/rand"
)

// Cell is the type of a single track position. Cells never change once a track is built.
type Cell rune

const (
	// Track cell types, as they appear in track files.
	WALL   Cell = '#'
	ROAD   Cell = '.'
	START  Cell = 'S'
	FINISH Cell = 'F'
)

func (c Cell) String() string {
	return string(c)
}

func (c Cell) valid() bool {
	switch c {
	case WALL, ROAD, START, FINISH:
		return true
	}
	return false
}

var (
	// ErrOutOfBounds is returned when classifying a position outside the grid.
	ErrOutOfBounds = errors.New("position out of track bounds")
	// ErrNoStartCell is returned for a track without any START cell.
	ErrNoStartCell = errors.New("track has no start cell")
	// ErrMalformedTrack is returned when a track row holds an unknown character.
	ErrMalformedTrack = errors.New("malformed track character")
	// ErrRaggedTrack is returned when track rows differ in length, or there are none.
	ErrRaggedTrack = errors.New("track rows must be non-empty and of equal length")
)

// The classical track and a smaller debug track for development, in file notation.
// Row 0 is the top of the track as printed.
var (
	DebugTrack []string = []string{
		"######",
		"#....F",
		"#....F",
		"#..###",
		"#..###",
		"#..###",
		"#..###",
		"#SS###",
	}

	FullTrack []string = []string{
		"##################",
		"####.............F",
		"###..............F",
		"###..............F",
		"##...............F",
		"#................F",
		"#................F",
		"#..........#######",
		"#.........########",
		"#.........########",
		"#.........########",
		"#.........########",
		"#.........########",
		"#.........########",
		"#.........########",
		"##........########",
		"##........########",
		"##........########",
		"##........########",
		"##........########",
		"##........########",
		"##........########",
		"##........########",
		"###.......########",
		"###.......########",
		"###.......########",
		"###.......########",
		"###.......########",
		"###.......########",
		"###.......########",
		"####......########",
		"####......########",
		"####SSSSSS########",
	}
)

// Track owns the immutable grid of cells. Origin (0,0) is the top left;
// rows grow downward and columns grow rightward.
type Track struct {
	Name   string
	grid   [][]Cell
	starts []geometry.Vector
}

// NewTrack converts track rows in file notation into a Track.
// Every row must be the same length and contain only track characters, and at
// least one START cell must exist.
func NewTrack(name string, rows []string) (*Track, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrRaggedTrack
	}

	width := len(rows[0])
	grid := make([][]Cell, 0, len(rows))
	starts := []geometry.Vector{}
	for r, line := range rows {
		if len(line) != width {
			return nil, fmt.Errorf("row %d has %d cells, expected %d: %w", r, len(line), width, ErrRaggedTrack)
		}
		row := make([]Cell, width)
		for c := 0; c < width; c++ {
			cell := Cell(line[c])
			if !cell.valid() {
				return nil, fmt.Errorf("%q at row %d col %d: %w", line[c], r, c, ErrMalformedTrack)
			}
			if cell == START {
				starts = append(starts, geometry.Vector{Row: r, Col: c})
			}
			row[c] = cell
		}
		grid = append(grid, row)
	}

	if len(starts) == 0 {
		return nil, ErrNoStartCell
	}

	return &Track{
		Name:   name,
		grid:   grid,
		starts: starts,
	}, nil
}

// Rows returns the number of rows in the grid.
func (t *Track) Rows() int {
	return len(t.grid)
}

// Cols returns the number of columns in the grid.
func (t *Track) Cols() int {
	return len(t.grid[0])
}

// InBounds reports whether the position lies within the grid.
func (t *Track) InBounds(p geometry.Vector) bool {
	return geometry.InBounds(p, t.Rows(), t.Cols())
}

// Classify returns the cell type at the position.
func (t *Track) Classify(p geometry.Vector) (Cell, error) {
	if !t.InBounds(p) {
		return 0, fmt.Errorf("classify %v: %w", p, ErrOutOfBounds)
	}
	return t.grid[p.Row][p.Col], nil
}

// At returns the cell at an in-bounds position; callers guarantee the bounds.
func (t *Track) At(p geometry.Vector) Cell {
	return t.grid[p.Row][p.Col]
}

// IsWall reports whether an in-bounds position is a WALL.
func (t *Track) IsWall(p geometry.Vector) bool {
	return t.At(p) == WALL
}

// IsFinish reports whether an in-bounds position is a FINISH.
func (t *Track) IsFinish(p geometry.Vector) bool {
	return t.At(p) == FINISH
}

// StartCells returns all START positions in row-major order.
func (t *Track) StartCells() []geometry.Vector {
	starts := make([]geometry.Vector, len(t.starts))
	copy(starts, t.starts)
	return starts
}

// SampleStart draws a START position uniformly at random.
func (t *Track) SampleStart(rng *rand.Rand) (geometry.Vector, error) {
	if len(t.starts) == 0 {
		return geometry.Vector{}, ErrNoStartCell
	}
	return t.starts[rng.Intn(len(t.starts))], nil
}

// TravelPath rasterizes the line between two positions, clipped to this track.
func (t *Track) TravelPath(from, to geometry.Vector) []geometry.Vector {
	return geometry.TravelPath(from, to, t.Rows(), t.Cols())
}

// FirstWallOnPath scans the path in order and returns the position immediately
// preceding the first WALL, and whether a wall was found at all.
// The path must start on a non-wall cell; if it does not, the first point is returned.
func (t *Track) FirstWallOnPath(path []geometry.Vector) (geometry.Vector, bool) {
	for i, p := range path {
		if t.IsWall(p) {
			if i == 0 {
				return p, true
			}
			return path[i-1], true
		}
	}
	return geometry.Vector{}, false
}

// PathTouchesFinish reports whether any cell of the path is a FINISH.
func (t *Track) PathTouchesFinish(path []geometry.Vector) bool {
	for _, p := range path {
		if t.IsFinish(p) {
			return true
		}
	}
	return false
}

// Visit calls fn on every position of the grid in row-major order.
func (t *Track) Visit(fn func(p geometry.Vector, cell Cell)) {
	for r := range t.grid {
		for c := range t.grid[r] {
			fn(geometry.Vector{Row: r, Col: c}, t.grid[r][c])
		}
	}
}

// Lines returns the track in file notation, one string per row.
func (t *Track) Lines() []string {
	lines := make([]string, len(t.grid))
	for r, row := range t.grid {
		buf := make([]rune, len(row))
		for c, cell := range row {
			buf[c] = rune(cell)
		}
		lines[r] = string(buf)
	}
	return lines
}
