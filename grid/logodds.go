package grid

// LogOddsGrid is a dense row-major buffer of accumulated log-odds, one
// value per cell. Values are not clamped.
type LogOddsGrid struct {
	frame  Frame
	prior  float64
	values []float64
}

// NewLogOddsGrid allocates a grid with every cell at the prior.
func NewLogOddsGrid(frame Frame, prior float64) *LogOddsGrid {
	g := &LogOddsGrid{
		frame:  frame,
		prior:  prior,
		values: make([]float64, frame.Len()),
	}
	g.Reset()
	return g
}

// Reset returns every cell to the prior.
func (g *LogOddsGrid) Reset() {
	for i := range g.values {
		g.values[i] = g.prior
	}
}

// Apply adds one observation to a cell using the binary Bayes filter rule
// value += observation - prior. Out-of-bounds cells are rejected.
func (g *LogOddsGrid) Apply(c Cell, observation float64) error {
	if !g.frame.InBounds(c) {
		return ErrOutOfBounds
	}
	g.values[g.frame.Index(c)] += observation - g.prior
	return nil
}

// Value returns the log-odds of a cell. ok is false for out-of-bounds cells.
func (g *LogOddsGrid) Value(c Cell) (float64, bool) {
	if !g.frame.InBounds(c) {
		return 0, false
	}
	return g.values[g.frame.Index(c)], true
}

// At returns the value at a flat index.
func (g *LogOddsGrid) At(i int) float64 {
	return g.values[i]
}

// Prior returns the value every untouched cell holds.
func (g *LogOddsGrid) Prior() float64 {
	return g.prior
}

// Frame returns the coordinate mapper the grid is indexed by.
func (g *LogOddsGrid) Frame() Frame {
	return g.frame
}
