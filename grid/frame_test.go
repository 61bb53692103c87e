package grid

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func pointsEqual(p1, p2 Point) bool {
	return almostEqual(p1.X, p2.X) && almostEqual(p1.Y, p2.Y)
}

func TestFrame_WorldToCell(t *testing.T) {
	f := NewFrame(GridConfig{Width: 10, Height: 8, CellSize: 5})

	tests := []struct {
		name string
		p    Point
		want Cell
	}{
		{"origin maps to center", Point{0, 0}, Cell{5, 4}},
		{"rounds down", Point{7, 0}, Cell{6, 4}},
		{"rounds up", Point{8, -8}, Cell{7, 2}},
		{"negative corner", Point{-25, -20}, Cell{0, 0}},
		{"beyond edge is not clamped", Point{100, 0}, Cell{25, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.WorldToCell(tt.p); got != tt.want {
				t.Errorf("WorldToCell(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	f := NewFrame(GridConfig{Width: 40, Height: 30, CellSize: 2.5})

	for i := 0; i < f.Len(); i++ {
		c := f.CellAt(i)
		if got := f.WorldToCell(f.CellToWorld(c)); got != c {
			t.Fatalf("WorldToCell(CellToWorld(%v)) = %v", c, got)
		}
		if f.Index(c) != i {
			t.Fatalf("Index(CellAt(%d)) = %d", i, f.Index(c))
		}
	}

	points := []Point{{0, 0}, {1.2, -3.7}, {-20, 14.9}, {0.01, 0.01}, {-1.25, 1.25}}
	for _, p := range points {
		back := f.CellToWorld(f.WorldToCell(p))
		if math.Abs(back.X-p.X) > f.CellSize/2+epsilon || math.Abs(back.Y-p.Y) > f.CellSize/2+epsilon {
			t.Errorf("CellToWorld(WorldToCell(%v)) = %v, more than half a cell away", p, back)
		}
	}
}

func TestFrame_Locate(t *testing.T) {
	f := NewFrame(GridConfig{Width: 10, Height: 10, CellSize: 1})

	if c, err := f.Locate(Point{2, -3}); err != nil || c != (Cell{7, 2}) {
		t.Errorf("Locate in bounds = %v, %v", c, err)
	}

	bad := []Point{
		{5, 0}, // x == Width
		{0, -6},
		{math.NaN(), 0},
		{0, math.Inf(1)},
		{9.223372036854775e18, 0},
		{0, -1e300},
	}
	for _, p := range bad {
		if _, err := f.Locate(p); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Locate(%v) error = %v, want ErrOutOfBounds", p, err)
		}
	}
}

func TestFrame_WorldToCellSaturates(t *testing.T) {
	f := NewFrame(GridConfig{Width: 10, Height: 10, CellSize: 1})

	c := f.WorldToCell(Point{9.223372036854775e18, -9.223372036854775e18})
	if c.X != f.XOffset+maxCellIndex || c.Y != f.YOffset-maxCellIndex {
		t.Errorf("WorldToCell(huge) = %v, want indices clamped to %d", c, maxCellIndex)
	}
	if f.InBounds(c) {
		t.Error("saturated cell must be out of bounds")
	}
}

func TestFrame_InBounds(t *testing.T) {
	f := NewFrame(GridConfig{Width: 3, Height: 2, CellSize: 1})
	tests := []struct {
		c    Cell
		want bool
	}{
		{Cell{0, 0}, true},
		{Cell{2, 1}, true},
		{Cell{3, 1}, false},
		{Cell{2, 2}, false},
		{Cell{-1, 0}, false},
	}
	for _, tt := range tests {
		if got := f.InBounds(tt.c); got != tt.want {
			t.Errorf("InBounds(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestFrame_MapTransform(t *testing.T) {
	f := NewFrame(GridConfig{Width: 1000, Height: 1000, CellSize: 1})

	m := f.MapTransform()
	if m.Tx != 500 || m.Ty != 500 {
		t.Errorf("MapTransform translation = (%v, %v), want (500, 500)", m.Tx, m.Ty)
	}

	p := Point{X: -120.5, Y: 33}
	mp := f.ToMapFrame(p)
	if !pointsEqual(mp, Point{X: 379.5, Y: 533}) {
		t.Errorf("ToMapFrame(%v) = %v", p, mp)
	}
	if back := f.FromMapFrame(mp); !pointsEqual(back, p) {
		t.Errorf("FromMapFrame(ToMapFrame(%v)) = %v", p, back)
	}

	// The grid corner cell sits at the map-frame origin up to half a cell.
	corner := f.ToMapFrame(f.CellToWorld(Cell{0, 0}))
	if !pointsEqual(corner, Point{0, 0}) {
		t.Errorf("corner cell in map frame = %v, want origin", corner)
	}
}

func TestTransform_Compose(t *testing.T) {
	a := Translation(10, -5)
	b := Translation(3, 4)

	if got := a.Then(b).Apply(Point{1, 1}); !pointsEqual(got, Point{14, 0}) {
		t.Errorf("composed translation = %v, want (14, 0)", got)
	}

	// Quarter turn: (x, y) -> (-y, x). Order matters once a rotation is involved.
	rot := AffineMatrix{B: -1, C: 1}
	if got := rot.Then(Translation(10, 0)).Apply(Point{1, 0}); !pointsEqual(got, Point{10, 1}) {
		t.Errorf("rotate then shift = %v, want (10, 1)", got)
	}
	if got := Translation(10, 0).Then(rot).Apply(Point{1, 0}); !pointsEqual(got, Point{0, 11}) {
		t.Errorf("shift then rotate = %v, want (0, 11)", got)
	}

	inv, ok := rot.Then(a).Inverse()
	if !ok {
		t.Fatal("Inverse reported a rotation+translation as singular")
	}
	if back := inv.Apply(rot.Then(a).Apply(Point{7, -3})); !pointsEqual(back, Point{7, -3}) {
		t.Errorf("inverse round trip = %v", back)
	}

	if v := a.ApplyVector(Point{1, 0}); !pointsEqual(v, Point{1, 0}) {
		t.Errorf("ApplyVector picked up translation: %v", v)
	}

	if _, ok := (AffineMatrix{A: 1, B: 2, C: 2, D: 4}).Inverse(); ok {
		t.Error("Inverse of a singular matrix should report ok=false")
	}
}
