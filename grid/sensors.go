package grid

import (
	"fmt"
	"math"
)

// Sensor is one range sensor with its fixed body-frame mounting.
type Sensor struct {
	ID    SensorID
	Mount Point // body frame: X to the right, Y forward
	Beam  Point // unit direction the sensor looks along
	Mark  bool
}

// NewSensors builds the sensor set from config, normalizing each beam.
func NewSensors(configs []SensorConfig) ([]Sensor, error) {
	sensors := make([]Sensor, 0, len(configs))
	for _, sc := range configs {
		id, ok := ParseSensorID(sc.Name)
		if !ok {
			return nil, fmt.Errorf("unknown sensor %q", sc.Name)
		}
		n := math.Hypot(sc.Beam.X, sc.Beam.Y)
		if n == 0 {
			return nil, fmt.Errorf("sensor %s has a zero beam direction", sc.Name)
		}
		sensors = append(sensors, Sensor{
			ID:    id,
			Mount: Point{X: sc.Side, Y: sc.Forward},
			Beam:  Point{X: sc.Beam.X / n, Y: sc.Beam.Y / n},
			Mark:  sc.Marks(),
		})
	}
	return sensors, nil
}

// bodyToWorld is the robot body frame expressed in world coordinates. Heading
// is not modeled, so this is a pure translation.
func bodyToWorld(pose Pose) AffineMatrix {
	return Translation(pose.X, pose.Y)
}

// ResolveSensorPoint returns the world position of the sensor's emitter.
func ResolveSensorPoint(pose Pose, s Sensor) Point {
	return bodyToWorld(pose).Apply(s.Mount)
}

// ResolveObstaclePoint returns the world position of the detected obstacle,
// the emitter offset along the beam by rng. It returns ErrInvalidReading for
// the sentinel, non-positive or non-finite ranges.
func ResolveObstaclePoint(pose Pose, s Sensor, rng float64) (Point, error) {
	if !IsValidRange(rng) {
		return Point{}, fmt.Errorf("%s range %v: %w", s.ID, rng, ErrInvalidReading)
	}
	m := bodyToWorld(pose)
	origin := m.Apply(s.Mount)
	dir := m.ApplyVector(s.Beam)
	return Point{
		X: origin.X + dir.X*rng,
		Y: origin.Y + dir.Y*rng,
	}, nil
}
