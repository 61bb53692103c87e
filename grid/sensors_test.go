package grid

import (
	"errors"
	"math"
	"testing"
)

func defaultSensors(t *testing.T) map[SensorID]Sensor {
	t.Helper()
	list, err := NewSensors(DefaultSensors())
	if err != nil {
		t.Fatalf("NewSensors: %v", err)
	}
	byID := make(map[SensorID]Sensor, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}
	return byID
}

func TestNewSensors(t *testing.T) {
	sensors := defaultSensors(t)
	if len(sensors) != NumSensors {
		t.Fatalf("got %d sensors, want %d", len(sensors), NumSensors)
	}
	if sensors[LeftFront].Mark || sensors[RightFront].Mark {
		t.Error("forward-facing sensors should not mark by default")
	}
	for _, id := range []SensorID{FrontLeft, FrontRight, RearLeft, RearRight} {
		if !sensors[id].Mark {
			t.Errorf("%s should mark", id)
		}
	}

	scaled, err := NewSensors([]SensorConfig{{Name: "front_right", Beam: Point{X: 3, Y: 4}}})
	if err != nil {
		t.Fatalf("NewSensors: %v", err)
	}
	if !pointsEqual(scaled[0].Beam, Point{X: 0.6, Y: 0.8}) {
		t.Errorf("beam not normalized: %v", scaled[0].Beam)
	}

	if _, err := NewSensors([]SensorConfig{{Name: "roof", Beam: Point{X: 1}}}); err == nil {
		t.Error("expected error for unknown sensor name")
	}
	if _, err := NewSensors([]SensorConfig{{Name: "front_left"}}); err == nil {
		t.Error("expected error for zero beam")
	}
}

func TestResolveObstaclePoint(t *testing.T) {
	sensors := defaultSensors(t)
	pose := Pose{X: 10, Y: 20}

	tests := []struct {
		id      SensorID
		rng     float64
		emitter Point
		want    Point
	}{
		{FrontRight, 30, Point{18, 29}, Point{48, 29}},
		{FrontLeft, 30, Point{2, 29}, Point{-28, 29}},
		{RearRight, 12.5, Point{18, 11}, Point{30.5, 11}},
		{RearLeft, 4, Point{2, 11}, Point{-2, 11}},
		{LeftFront, 50, Point{5, 31}, Point{5, 81}},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			s := sensors[tt.id]
			if got := ResolveSensorPoint(pose, s); !pointsEqual(got, tt.emitter) {
				t.Errorf("emitter = %v, want %v", got, tt.emitter)
			}
			got, err := ResolveObstaclePoint(pose, s, tt.rng)
			if err != nil {
				t.Fatalf("ResolveObstaclePoint: %v", err)
			}
			if !pointsEqual(got, tt.want) {
				t.Errorf("obstacle = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveObstaclePoint_Invalid(t *testing.T) {
	s := defaultSensors(t)[FrontLeft]
	for _, rng := range []float64{InvalidReading, 0, -12, math.NaN(), math.Inf(1)} {
		if _, err := ResolveObstaclePoint(Pose{}, s, rng); !errors.Is(err, ErrInvalidReading) {
			t.Errorf("range %v: error = %v, want ErrInvalidReading", rng, err)
		}
	}
}

func TestSensorID_Names(t *testing.T) {
	for i := 0; i < NumSensors; i++ {
		id := SensorID(i)
		got, ok := ParseSensorID(id.String())
		if !ok || got != id {
			t.Errorf("ParseSensorID(%q) = %v, %v", id.String(), got, ok)
		}
	}
	if _, ok := ParseSensorID("nope"); ok {
		t.Error("ParseSensorID accepted an unknown name")
	}
	if SensorID(42).String() != "unknown" {
		t.Error("out-of-range SensorID should print as unknown")
	}
	if NewInvalidReading().Range(SensorID(-1)) != InvalidReading {
		t.Error("out-of-range Range should be the sentinel")
	}
}
