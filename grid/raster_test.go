package grid

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestTraceLine(t *testing.T) {
	tests := []struct {
		name     string
		from, to Cell
		want     []Cell
	}{
		{
			name: "horizontal",
			from: Cell{0, 0}, to: Cell{5, 0},
			want: []Cell{{1, 0}, {2, 0}, {3, 0}, {4, 0}},
		},
		{
			name: "vertical",
			from: Cell{2, 0}, to: Cell{2, 5},
			want: []Cell{{2, 1}, {2, 2}, {2, 3}, {2, 4}},
		},
		{
			name: "vertical downward",
			from: Cell{2, 5}, to: Cell{2, 0},
			want: []Cell{{2, 4}, {2, 3}, {2, 2}, {2, 1}},
		},
		{
			name: "diagonal",
			from: Cell{0, 0}, to: Cell{3, 3},
			want: []Cell{{1, 1}, {2, 2}},
		},
		{
			name: "negative x",
			from: Cell{4, 1}, to: Cell{0, 1},
			want: []Cell{{3, 1}, {2, 1}, {1, 1}},
		},
		{
			name: "coincident",
			from: Cell{3, 3}, to: Cell{3, 3},
			want: nil,
		},
		{
			name: "adjacent",
			from: Cell{3, 3}, to: Cell{4, 3},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TraceLine(tt.from, tt.to)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("TraceLine(%v, %v) mismatch (-want +got):\n%s", tt.from, tt.to, diff)
			}
		})
	}
}

func TestTraceLine_AllOctants(t *testing.T) {
	from := Cell{0, 0}
	targets := []Cell{
		{7, 3}, {3, 7}, {-3, 7}, {-7, 3},
		{-7, -3}, {-3, -7}, {3, -7}, {7, -3},
	}
	for _, to := range targets {
		cells := TraceLine(from, to)
		want := max(abs(to.X), abs(to.Y)) - 1
		if len(cells) != want {
			t.Errorf("TraceLine(%v, %v) visited %d cells, want %d", from, to, len(cells), want)
		}

		prev := from
		for _, c := range cells {
			if c == from || c == to {
				t.Errorf("TraceLine(%v, %v) included an endpoint", from, to)
			}
			if abs(c.X-prev.X) > 1 || abs(c.Y-prev.Y) > 1 {
				t.Errorf("TraceLine(%v, %v) jumped from %v to %v", from, to, prev, c)
			}
			prev = c
		}
		if abs(to.X-prev.X) > 1 || abs(to.Y-prev.Y) > 1 {
			t.Errorf("TraceLine(%v, %v) last cell %v not adjacent to the end", from, to, prev)
		}
	}
}

func TestMarkFreeSpace(t *testing.T) {
	om := NewOccupancyMap(testFrame(), DefaultConfig().Model.LogOdds())

	// testFrame is 20x20 at 1 cm, origin at cell (10, 10).
	marked, skipped := om.MarkFreeSpace(Point{0, 0}, Point{5, 0})
	if marked != 4 || skipped != 0 {
		t.Fatalf("marked, skipped = %d, %d; want 4, 0", marked, skipped)
	}

	got := om.CellsWithLabel(Free)
	want := []Cell{{11, 10}, {12, 10}, {13, 10}, {14, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("free cells mismatch (-want +got):\n%s", diff)
	}
	if om.Label(Cell{10, 10}) != Unknown || om.Label(Cell{15, 10}) != Unknown {
		t.Error("endpoints must not be marked")
	}
}

func TestMarkFreeSpace_PartlyOutside(t *testing.T) {
	om := NewOccupancyMap(testFrame(), DefaultConfig().Model.LogOdds())

	// From cell (15, 10) to (25, 10): cells 16..19 are inside, 20..24 are not.
	marked, skipped := om.MarkFreeSpace(Point{5, 0}, Point{15, 0})
	if marked != 4 || skipped != 5 {
		t.Errorf("marked, skipped = %d, %d; want 4, 5", marked, skipped)
	}
}

func TestMarkFreeSpace_DropsRunawayRay(t *testing.T) {
	om := NewOccupancyMap(testFrame(), DefaultConfig().Model.LogOdds())

	marked, skipped := om.MarkFreeSpace(Point{0, 0}, Point{1e6, 0})
	if marked != 0 {
		t.Errorf("marked = %d, want 0", marked)
	}
	if skipped == 0 {
		t.Error("runaway ray should be reported as skipped")
	}
	if s := om.Stats(); s.Touched != 0 {
		t.Errorf("runaway ray touched %d cells", s.Touched)
	}
}

func TestMarkFreeSpace_UnrepresentableEnds(t *testing.T) {
	const huge = 9.223372036854775e18
	rays := []struct {
		name             string
		sensor, obstacle Point
	}{
		{"near int64 max", Point{huge, 0}, Point{huge + 2048, 0}},
		{"far negative", Point{-huge, 5}, Point{-huge, 5}},
		{"NaN sensor", Point{math.NaN(), 0}, Point{3, 0}},
		{"infinite obstacle", Point{0, 0}, Point{0, math.Inf(-1)}},
	}
	for _, ray := range rays {
		t.Run(ray.name, func(t *testing.T) {
			om := NewOccupancyMap(testFrame(), DefaultConfig().Model.LogOdds())
			marked, skipped := om.MarkFreeSpace(ray.sensor, ray.obstacle)
			if marked != 0 || skipped == 0 {
				t.Errorf("marked, skipped = %d, %d; want 0 and a dropped ray", marked, skipped)
			}
			if s := om.Stats(); s.Touched != 0 {
				t.Errorf("touched %d cells", s.Touched)
			}
		})
	}
}
