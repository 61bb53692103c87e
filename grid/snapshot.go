package grid

import (
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SnapshotPoint is one emitted cell: its world position (cm) and the
// intensity of its label.
type SnapshotPoint struct {
	X         float64
	Y         float64
	Intensity float64
}

// MarshalJSON encodes the point as a compact [x, y, intensity] triple.
func (p SnapshotPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.X, p.Y, p.Intensity})
}

// UnmarshalJSON decodes a [x, y, intensity] triple.
func (p *SnapshotPoint) UnmarshalJSON(data []byte) error {
	var v [3]float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decoding snapshot point: %w", err)
	}
	p.X, p.Y, p.Intensity = v[0], v[1], v[2]
	return nil
}

// Snapshot is the full point list of the grid, one point per cell. It is
// produced on demand and not retained by the map.
type Snapshot struct {
	RunID     string          `json:"runId"`
	Tick      uint64          `json:"tick"`
	Timestamp int64           `json:"timestamp"`
	Frame     string          `json:"frame"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	CellSize  float64         `json:"cellSize"`
	Points    []SnapshotPoint `json:"points"`
}

// Snapshot enumerates every cell. This is a full-grid scan.
func (om *OccupancyMap) Snapshot() *Snapshot {
	n := om.frame.Len()
	points := make([]SnapshotPoint, n)
	for i := 0; i < n; i++ {
		p := om.frame.CellToWorld(om.frame.CellAt(i))
		points[i] = SnapshotPoint{X: p.X, Y: p.Y, Intensity: om.classes.At(i).Intensity()}
	}
	return &Snapshot{
		Timestamp: time.Now().Unix(),
		Frame:     "world",
		Width:     om.frame.Width,
		Height:    om.frame.Height,
		CellSize:  om.frame.CellSize,
		Points:    points,
	}
}

// CellsWithLabel returns every cell currently classified as l.
func (om *OccupancyMap) CellsWithLabel(l Label) []Cell {
	var cells []Cell
	for i := 0; i < om.frame.Len(); i++ {
		if om.classes.At(i) == l {
			cells = append(cells, om.frame.CellAt(i))
		}
	}
	return cells
}

// MapStats summarizes the grid.
type MapStats struct {
	RunID    string  `json:"runId"`
	Tick     uint64  `json:"tick"`
	Cells    int     `json:"cells"`
	Free     int     `json:"free"`
	Occupied int     `json:"occupied"`
	Unknown  int     `json:"unknown"`
	Touched  int     `json:"touched"` // cells whose log-odds left the prior
	Mean     float64 `json:"meanLogOdds"`
	StdDev   float64 `json:"stdDevLogOdds"`
	Min      float64 `json:"minLogOdds"`
	Max      float64 `json:"maxLogOdds"`
}

// Stats counts labels and describes the log-odds of touched cells. Mean,
// StdDev, Min and Max are zero when no cell has been touched.
func (om *OccupancyMap) Stats() MapStats {
	s := MapStats{Cells: om.frame.Len()}
	prior := om.logOdds.Prior()

	var touched []float64
	for i := 0; i < s.Cells; i++ {
		switch om.classes.At(i) {
		case Free:
			s.Free++
		case Occupied:
			s.Occupied++
		default:
			s.Unknown++
		}
		if v := om.logOdds.At(i); v != prior {
			touched = append(touched, v)
		}
	}

	s.Touched = len(touched)
	if s.Touched == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(touched, nil)
	if s.Touched == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(touched)
	s.Max = floats.Max(touched)
	return s
}
