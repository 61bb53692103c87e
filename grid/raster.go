package grid

import "math"

// WalkLine visits the cells on the Bresenham line from one cell to another,
// excluding both endpoints. It works in every octant and handles vertical,
// horizontal and zero-length segments without division.
func WalkLine(from, to Cell, visit func(Cell)) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}

	err := dx + dy
	x, y := from.X, from.Y
	for x != to.X || y != to.Y {
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		if x == to.X && y == to.Y {
			return
		}
		visit(Cell{X: x, Y: y})
	}
}

// TraceLine returns the cells strictly between from and to.
func TraceLine(from, to Cell) []Cell {
	var cells []Cell
	WalkLine(from, to, func(c Cell) {
		cells = append(cells, c)
	})
	return cells
}

// MarkFreeSpace applies a free observation to every cell between the sensor
// and the obstacle and reclassifies each one. The sensor and obstacle cells
// themselves are left alone. Cells outside the grid are skipped one by one;
// marked and skipped report how many cells fell on each side.
func (om *OccupancyMap) MarkFreeSpace(sensor, obstacle Point) (marked, skipped int) {
	// A ray spanning more than twice the grid cannot have both ends near
	// the map; drop it rather than walk millions of off-grid cells. The
	// span is measured in world units so a huge or non-finite position
	// cannot slip past as a wrapped integer.
	limit := 2 * max(om.frame.Width, om.frame.Height)
	span := math.Max(math.Abs(obstacle.X-sensor.X), math.Abs(obstacle.Y-sensor.Y)) / om.frame.CellSize
	if !(span <= float64(limit)) || !om.frame.representable(sensor) || !om.frame.representable(obstacle) {
		return 0, limit
	}

	from := om.frame.WorldToCell(sensor)
	to := om.frame.WorldToCell(obstacle)
	WalkLine(from, to, func(c Cell) {
		if err := om.observe(c, om.model.Free); err != nil {
			skipped++
			return
		}
		marked++
	})
	return marked, skipped
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
