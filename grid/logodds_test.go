package grid

import (
	"errors"
	"math"
	"testing"
)

func testFrame() Frame {
	return NewFrame(GridConfig{Width: 20, Height: 20, CellSize: 1})
}

func TestLogOddsGrid_Prior(t *testing.T) {
	prior := math.Log(0.5)
	g := NewLogOddsGrid(testFrame(), prior)

	for i := 0; i < g.Frame().Len(); i++ {
		if g.At(i) != prior {
			t.Fatalf("cell %d = %v, want prior %v", i, g.At(i), prior)
		}
	}
}

func TestLogOddsGrid_Apply(t *testing.T) {
	lo := DefaultConfig().Model.LogOdds()
	g := NewLogOddsGrid(testFrame(), lo.Prior)
	c := Cell{X: 3, Y: 7}

	if err := g.Apply(c, lo.Occupied); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	v, ok := g.Value(c)
	if !ok {
		t.Fatal("Value reported out of bounds")
	}
	want := lo.Prior + (lo.Occupied - lo.Prior)
	if !almostEqual(v, want) {
		t.Errorf("after one occupied observation = %v, want %v", v, want)
	}

	if err := g.Apply(c, lo.Free); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	v, _ = g.Value(c)
	want += lo.Free - lo.Prior
	if !almostEqual(v, want) {
		t.Errorf("after occupied+free = %v, want %v", v, want)
	}

	// Neighbours are untouched.
	if n, _ := g.Value(Cell{X: 4, Y: 7}); n != lo.Prior {
		t.Errorf("neighbour changed to %v", n)
	}
}

func TestLogOddsGrid_Unclamped(t *testing.T) {
	lo := DefaultConfig().Model.LogOdds()
	g := NewLogOddsGrid(testFrame(), lo.Prior)
	c := Cell{X: 0, Y: 0}

	for i := 0; i < 1000; i++ {
		if err := g.Apply(c, lo.Occupied); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	v, _ := g.Value(c)
	want := lo.Prior + 1000*(lo.Occupied-lo.Prior)
	if math.Abs(v-want) > 1e-6 {
		t.Errorf("after 1000 updates = %v, want %v", v, want)
	}
}

func TestLogOddsGrid_OutOfBounds(t *testing.T) {
	prior := math.Log(0.5)
	g := NewLogOddsGrid(testFrame(), prior)

	for _, c := range []Cell{{-1, 0}, {0, -1}, {20, 0}, {0, 20}} {
		if err := g.Apply(c, math.Log(0.7)); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Apply(%v) = %v, want ErrOutOfBounds", c, err)
		}
		if _, ok := g.Value(c); ok {
			t.Errorf("Value(%v) reported in bounds", c)
		}
	}
	for i := 0; i < g.Frame().Len(); i++ {
		if g.At(i) != prior {
			t.Fatalf("out-of-bounds update changed cell %d", i)
		}
	}
}

func TestLogOddsGrid_Reset(t *testing.T) {
	prior := math.Log(0.5)
	g := NewLogOddsGrid(testFrame(), prior)
	_ = g.Apply(Cell{5, 5}, math.Log(0.7))
	g.Reset()
	if v, _ := g.Value(Cell{5, 5}); v != prior {
		t.Errorf("after Reset = %v, want prior", v)
	}
}
