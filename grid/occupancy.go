package grid

// OccupancyMap pairs the log-odds grid with its classification cache. Every
// log-odds update reclassifies the touched cell immediately, so the two
// grids agree at cell granularity. It is not safe for concurrent use; the
// Mapper serializes access.
type OccupancyMap struct {
	frame   Frame
	model   LogOdds
	logOdds *LogOddsGrid
	classes *ClassGrid
}

// NewOccupancyMap allocates both grids at the prior.
func NewOccupancyMap(frame Frame, model LogOdds) *OccupancyMap {
	return &OccupancyMap{
		frame:   frame,
		model:   model,
		logOdds: NewLogOddsGrid(frame, model.Prior),
		classes: NewClassGrid(frame, model.Threshold),
	}
}

// observe applies one observation to a cell and reclassifies it.
func (om *OccupancyMap) observe(c Cell, observation float64) error {
	if err := om.logOdds.Apply(c, observation); err != nil {
		return err
	}
	om.classes.Update(om.logOdds, c)
	return nil
}

// MarkOccupied applies an occupied observation to the cell containing p.
func (om *OccupancyMap) MarkOccupied(p Point) (Cell, error) {
	c, err := om.frame.Locate(p)
	if err != nil {
		return c, err
	}
	return c, om.observe(c, om.model.Occupied)
}

// MarkFree applies a free observation to the cell containing p.
func (om *OccupancyMap) MarkFree(p Point) (Cell, error) {
	c, err := om.frame.Locate(p)
	if err != nil {
		return c, err
	}
	return c, om.observe(c, om.model.Free)
}

// LogOdds returns the accumulated value of a cell.
func (om *OccupancyMap) LogOdds(c Cell) (float64, bool) {
	return om.logOdds.Value(c)
}

// Label returns the classification of a cell.
func (om *OccupancyMap) Label(c Cell) Label {
	return om.classes.Label(c)
}

// Reclassify rebuilds the whole classification grid from the log-odds grid.
func (om *OccupancyMap) Reclassify() {
	om.classes.Rebuild(om.logOdds)
}

// Reset returns both grids to the prior state.
func (om *OccupancyMap) Reset() {
	om.logOdds.Reset()
	om.classes.Reset()
}

// Frame returns the coordinate mapper.
func (om *OccupancyMap) Frame() Frame {
	return om.frame
}

// Model returns the log-space sensor model.
func (om *OccupancyMap) Model() LogOdds {
	return om.model
}
