package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// toOrb converts a world point to an orb.Point.
func (p Point) toOrb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// cellsToMultiPoint converts cells to their world centers.
func (om *OccupancyMap) cellsToMultiPoint(cells []Cell) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(cells))
	for i, c := range cells {
		mp[i] = om.frame.CellToWorld(c).toOrb()
	}
	return mp
}

// ToFeatureCollection exports the classified cells as GeoJSON in world
// coordinates (cm): one MultiPoint feature per requested label, plus an
// "extent" polygon bounding the occupied cells when there are any.
func (om *OccupancyMap) ToFeatureCollection(labels ...Label) *geojson.FeatureCollection {
	if len(labels) == 0 {
		labels = []Label{Occupied, Free}
	}

	fc := geojson.NewFeatureCollection()
	for _, l := range labels {
		mp := om.cellsToMultiPoint(om.CellsWithLabel(l))
		f := geojson.NewFeature(mp)
		f.Properties["label"] = l.String()
		f.Properties["intensity"] = l.Intensity()
		f.Properties["count"] = len(mp)
		f.Properties["cellSize"] = om.frame.CellSize
		fc.Append(f)

		if l == Occupied && len(mp) > 0 {
			extent := geojson.NewFeature(mp.Bound().ToPolygon())
			extent.Properties["label"] = "extent"
			fc.Append(extent)
		}
	}
	return fc
}
