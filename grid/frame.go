package grid

import (
	"fmt"
	"math"
)

// Frame converts between continuous world positions (cm) and grid cells.
// The world origin maps to the geometric center of the grid.
type Frame struct {
	Width    int
	Height   int
	CellSize float64
	XOffset  int
	YOffset  int
}

// NewFrame builds the coordinate mapper for a grid configuration.
func NewFrame(g GridConfig) Frame {
	return Frame{
		Width:    g.Width,
		Height:   g.Height,
		CellSize: g.CellSize,
		XOffset:  g.Width / 2,
		YOffset:  g.Height / 2,
	}
}

// maxCellIndex bounds cell coordinates so the float to int conversion in
// WorldToCell stays exact and far from overflow.
const maxCellIndex = 1 << 52

// toIndex rounds a world coordinate to a cell offset, saturating at
// ±maxCellIndex. NaN saturates high.
func (f Frame) toIndex(v float64) int {
	q := math.Round(v / f.CellSize)
	switch {
	case q < -maxCellIndex:
		return -maxCellIndex
	case !(q <= maxCellIndex):
		return maxCellIndex
	}
	return int(q)
}

// WorldToCell maps a world position to its cell without a bounds check.
// Positions beyond ±maxCellIndex cells saturate there. Callers that index
// the grid must go through Locate or InBounds.
func (f Frame) WorldToCell(p Point) Cell {
	return Cell{
		X: f.toIndex(p.X) + f.XOffset,
		Y: f.toIndex(p.Y) + f.YOffset,
	}
}

// Locate maps a world position to an in-bounds cell, or returns
// ErrOutOfBounds.
func (f Frame) Locate(p Point) (Cell, error) {
	if !f.representable(p) {
		return Cell{}, fmt.Errorf("position (%v, %v): %w", p.X, p.Y, ErrOutOfBounds)
	}
	c := f.WorldToCell(p)
	if !f.InBounds(c) {
		return c, fmt.Errorf("cell (%d, %d) for position (%.1f, %.1f): %w", c.X, c.Y, p.X, p.Y, ErrOutOfBounds)
	}
	return c, nil
}

// representable reports whether p is finite and within ±maxCellIndex cells.
func (f Frame) representable(p Point) bool {
	return math.Abs(p.X/f.CellSize) <= maxCellIndex && math.Abs(p.Y/f.CellSize) <= maxCellIndex
}

// CellToWorld returns the world position of a cell's center.
func (f Frame) CellToWorld(c Cell) Point {
	return Point{
		X: float64(c.X-f.XOffset) * f.CellSize,
		Y: float64(c.Y-f.YOffset) * f.CellSize,
	}
}

// InBounds reports whether c lies in [0, Width) x [0, Height).
func (f Frame) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < f.Width && c.Y >= 0 && c.Y < f.Height
}

// Index returns the flat buffer index of an in-bounds cell (row-major).
func (f Frame) Index(c Cell) int {
	return c.Y*f.Width + c.X
}

// CellAt is the inverse of Index.
func (f Frame) CellAt(i int) Cell {
	return Cell{X: i % f.Width, Y: i / f.Width}
}

// Len is the number of cells in the grid.
func (f Frame) Len() int {
	return f.Width * f.Height
}

// MapWidth is the physical width covered by the grid, in cm.
func (f Frame) MapWidth() float64 {
	return float64(f.Width) * f.CellSize
}

// MapHeight is the physical height covered by the grid, in cm.
func (f Frame) MapHeight() float64 {
	return float64(f.Height) * f.CellSize
}

// MapTransform is the fixed robot-to-map transform: the map frame has its
// origin at the grid corner, half the physical map size away from the world
// origin.
func (f Frame) MapTransform() AffineMatrix {
	return Translation(f.MapWidth()/2, f.MapHeight()/2)
}

// ToMapFrame converts a world position to map-frame coordinates.
func (f Frame) ToMapFrame(p Point) Point {
	return f.MapTransform().Apply(p)
}

// FromMapFrame converts map-frame coordinates back to a world position.
func (f Frame) FromMapFrame(p Point) Point {
	inv, _ := f.MapTransform().Inverse() // a translation is never singular
	return inv.Apply(p)
}
