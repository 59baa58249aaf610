package geometry

// Rasterize returns the ordered lattice points of the straight-ish line from a to b.
//
// Both points are first expressed relative to the top-left corner of the
// rectangle spanning them, then the line is always walked from the canonical
// endpoint (the leftmost one, ties broken by the upper row) one octant step at a
// time until the other endpoint is reached. When a is not the canonical endpoint
// the walk is reversed, so Rasterize(a, b) is exactly Rasterize(b, a) backwards.
// Consecutive points differ by at most one in each axis: the path never skips a
// cell diagonally, so a one-cell-thick wall cannot be tunneled through.
func Rasterize(a, b Vector) []Vector {
	from, to := a, b
	reversed := false
	if !isCanonical(a, b) {
		from, to = b, a
		reversed = true
	}

	anchor := topLeft(from, to)
	origin, goal := from.Sub(anchor), to.Sub(anchor)

	line := []Vector{origin}
	for cur := origin; cur != goal; {
		dir := DirectionTo(cur, goal)
		if dir == None {
			break
		}
		cur = cur.Add(dir.Increment())
		line = append(line, cur)
	}

	for i := range line {
		line[i] = line[i].Add(anchor)
	}
	if reversed {
		reverse(line)
	}
	return line
}

// isCanonical reports whether a is the endpoint a line between a and b is drawn from.
func isCanonical(a, b Vector) bool {
	if a.Col != b.Col {
		return a.Col < b.Col
	}
	return a.Row <= b.Row
}

// topLeft returns the top-left corner of the axis-aligned rectangle with left and
// right at two of its corners, where left is the leftmost point.
func topLeft(left, right Vector) Vector {
	if left.Row <= right.Row {
		return left
	}
	return Vector{Row: right.Row, Col: left.Col}
}

func reverse(line []Vector) {
	for i, j := 0, len(line)-1; i < j; i, j = i+1, j-1 {
		line[i], line[j] = line[j], line[i]
	}
}

// ClipToBounds returns the longest prefix of path lying inside a rows x cols grid.
// A straight lattice line cannot leave a rectangle and come back, so scanning stops
// at the first out-of-bounds point.
func ClipToBounds(path []Vector, rows, cols int) []Vector {
	for i, p := range path {
		if !InBounds(p, rows, cols) {
			return path[:i]
		}
	}
	return path
}

// InBounds reports whether p lies within a rows x cols grid.
func InBounds(p Vector, rows, cols int) bool {
	return p.Row >= 0 && p.Row < rows && p.Col >= 0 && p.Col < cols
}

// TravelPath is the rasterized line from prev to next, clipped to the grid.
func TravelPath(prev, next Vector, rows, cols int) []Vector {
	return ClipToBounds(Rasterize(prev, next), rows, cols)
}
