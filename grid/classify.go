package grid

import "encoding/json"

// Label is the tri-state classification of a cell.
type Label int8

const (
	Unknown  Label = -1
	Free     Label = 0
	Occupied Label = 1
)

func (l Label) String() string {
	switch l {
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the label by name.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Intensity is the point-cloud value for a label: 0 free, 1 occupied,
// 0.5 unknown.
func (l Label) Intensity() float64 {
	switch l {
	case Free:
		return 0.0
	case Occupied:
		return 1.0
	default:
		return 0.5
	}
}

// Classify maps a log-odds value to exactly one label. Values equal to the
// threshold stay Unknown.
func Classify(logOdds, threshold float64) Label {
	switch {
	case logOdds > threshold:
		return Occupied
	case logOdds < threshold:
		return Free
	default:
		return Unknown
	}
}

// ClassGrid caches the label of every cell. It is derived from a LogOddsGrid
// and never written independently.
type ClassGrid struct {
	frame     Frame
	threshold float64
	labels    []Label
}

// NewClassGrid allocates a grid with every cell Unknown.
func NewClassGrid(frame Frame, threshold float64) *ClassGrid {
	cg := &ClassGrid{
		frame:     frame,
		threshold: threshold,
		labels:    make([]Label, frame.Len()),
	}
	cg.Reset()
	return cg
}

// Reset marks every cell Unknown.
func (cg *ClassGrid) Reset() {
	for i := range cg.labels {
		cg.labels[i] = Unknown
	}
}

// Update reclassifies one cell from the log-odds grid.
func (cg *ClassGrid) Update(lg *LogOddsGrid, c Cell) {
	v, ok := lg.Value(c)
	if !ok {
		return
	}
	cg.labels[cg.frame.Index(c)] = Classify(v, cg.threshold)
}

// Rebuild reclassifies every cell. Running it on an unchanged log-odds grid
// yields identical labels.
func (cg *ClassGrid) Rebuild(lg *LogOddsGrid) {
	for i := range cg.labels {
		cg.labels[i] = Classify(lg.At(i), cg.threshold)
	}
}

// Label returns the label of a cell; out-of-bounds cells are Unknown.
func (cg *ClassGrid) Label(c Cell) Label {
	if !cg.frame.InBounds(c) {
		return Unknown
	}
	return cg.labels[cg.frame.Index(c)]
}

// At returns the label at a flat index.
func (cg *ClassGrid) At(i int) Label {
	return cg.labels[i]
}
