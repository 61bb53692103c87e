package grid

import (
	"errors"
	"math"
)

// Sentinel errors for per-tick failures. None of them is fatal; the mapper
// counts and logs them and carries on with the next sensor or cell.
var (
	ErrInvalidReading = errors.New("invalid range reading")
	ErrOutOfBounds    = errors.New("cell out of grid bounds")
	ErrNoInput        = errors.New("no pose or reading received yet")
)

// InvalidReading is the sentinel range value meaning "no detection".
const InvalidReading = -1.0

// Point is a continuous position in world space, in centimeters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell is a discrete grid index.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pose is the robot position in world centimeters. Heading is not modeled:
// the robot frame and the world frame differ by translation only.
type Pose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point returns the pose position as a world point.
func (p Pose) Point() Point {
	return Point{X: p.X, Y: p.Y}
}

// SensorID identifies one of the six range sensors.
type SensorID int

const (
	FrontLeft SensorID = iota
	FrontRight
	RearLeft
	RearRight
	LeftFront
	RightFront
	sensorCount
)

// NumSensors is the number of range sensors carried by a SensorReading.
const NumSensors = int(sensorCount)

var sensorNames = [NumSensors]string{
	"front_left",
	"front_right",
	"rear_left",
	"rear_right",
	"left_front",
	"right_front",
}

func (s SensorID) String() string {
	if s < 0 || int(s) >= NumSensors {
		return "unknown"
	}
	return sensorNames[s]
}

// ParseSensorID maps a config name (e.g. "front_left") to its SensorID.
func ParseSensorID(name string) (SensorID, bool) {
	for i, n := range sensorNames {
		if n == name {
			return SensorID(i), true
		}
	}
	return 0, false
}

// SensorReading holds one range value per sensor, in centimeters. A message
// always replaces the whole reading.
type SensorReading struct {
	Ranges [NumSensors]float64 `json:"ranges"`
}

// NewInvalidReading returns a reading where every sensor reports no detection.
func NewInvalidReading() SensorReading {
	var r SensorReading
	for i := range r.Ranges {
		r.Ranges[i] = InvalidReading
	}
	return r
}

// Range returns the value for one sensor.
func (r SensorReading) Range(id SensorID) float64 {
	if id < 0 || int(id) >= NumSensors {
		return InvalidReading
	}
	return r.Ranges[id]
}

// IsValidRange reports whether a range value is a usable detection.
func IsValidRange(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
