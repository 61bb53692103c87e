package grid

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// unwrapPayload returns the JSON bytes of a message that is either raw JSON
// or zlib-compressed JSON.
func unwrapPayload(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}
	if data[0] == '{' {
		return data, nil
	}
	jsonBytes, err := inflateZlib(data)
	if err != nil {
		return nil, fmt.Errorf("unknown format: not JSON or zlib-compressed")
	}
	if len(jsonBytes) == 0 {
		return nil, fmt.Errorf("decoded JSON payload is empty")
	}
	return jsonBytes, nil
}

type vec2 struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// posePayload accepts a flat {"x","y"} pose or the odometry form
// {"pose":{"pose":{"position":{"x","y"}}}}.
type posePayload struct {
	vec2
	Pose *struct {
		Pose struct {
			Position vec2 `json:"position"`
		} `json:"pose"`
	} `json:"pose"`
}

// DecodePose decodes a pose message in world centimeters.
func DecodePose(data []byte) (Pose, error) {
	jsonBytes, err := unwrapPayload(data)
	if err != nil {
		return Pose{}, err
	}

	var msg posePayload
	if err := json.Unmarshal(jsonBytes, &msg); err != nil {
		return Pose{}, fmt.Errorf("parsing pose JSON: %w", err)
	}

	v := msg.vec2
	if msg.Pose != nil {
		v = msg.Pose.Pose.Position
	}
	if v.X == nil || v.Y == nil {
		return Pose{}, fmt.Errorf("pose message missing x or y")
	}
	if !isFinite(*v.X) || !isFinite(*v.Y) {
		return Pose{}, fmt.Errorf("pose (%v, %v) is not finite", *v.X, *v.Y)
	}
	return Pose{X: *v.X, Y: *v.Y}, nil
}

// distancePayload is the six-sensor IR message. Absent fields decode as the
// invalid sentinel.
type distancePayload struct {
	FLSide *float64 `json:"fl_side"`
	FRSide *float64 `json:"fr_side"`
	BLSide *float64 `json:"bl_side"`
	BRSide *float64 `json:"br_side"`
	LFront *float64 `json:"l_front"`
	RFront *float64 `json:"r_front"`
}

// DecodeReading decodes a distance message into a full SensorReading.
func DecodeReading(data []byte) (SensorReading, error) {
	jsonBytes, err := unwrapPayload(data)
	if err != nil {
		return SensorReading{}, err
	}

	var msg distancePayload
	if err := json.Unmarshal(jsonBytes, &msg); err != nil {
		return SensorReading{}, fmt.Errorf("parsing distance JSON: %w", err)
	}

	r := NewInvalidReading()
	fields := map[SensorID]*float64{
		FrontLeft:  msg.FLSide,
		FrontRight: msg.FRSide,
		RearLeft:   msg.BLSide,
		RearRight:  msg.BRSide,
		LeftFront:  msg.LFront,
		RightFront: msg.RFront,
	}
	for id, v := range fields {
		if v != nil {
			r.Ranges[id] = *v
		}
	}
	return r, nil
}

// EncodeReading is the inverse of DecodeReading, used by replay fixtures and
// tests.
func EncodeReading(r SensorReading) ([]byte, error) {
	f := func(id SensorID) *float64 {
		v := r.Ranges[id]
		return &v
	}
	return json.Marshal(distancePayload{
		FLSide: f(FrontLeft),
		FRSide: f(FrontRight),
		BLSide: f(RearLeft),
		BRSide: f(RearRight),
		LFront: f(LeftFront),
		RFront: f(RightFront),
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// inflateZlib decompresses zlib-compressed data
func inflateZlib(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating zlib reader: %w", err)
	}
	defer reader.Close()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("decompressing zlib data: %w", err)
	}

	return decompressed, nil
}

// deflateZlib compresses data with zlib
func deflateZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing zlib data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing zlib writer: %w", err)
	}
	return buf.Bytes(), nil
}
