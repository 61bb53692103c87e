package grid

import (
	"math"
	"time"
)

// Config represents the full configuration file
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt" json:"mqtt"`
	Topics   TopicConfig    `yaml:"topics" json:"topics"`
	Grid     GridConfig     `yaml:"grid" json:"grid"`
	Model    ModelConfig    `yaml:"model" json:"model"`
	Sensors  []SensorConfig `yaml:"sensors" json:"sensors"`
	Loop     LoopConfig     `yaml:"loop" json:"loop"`
	Publish  PublishConfig  `yaml:"publish" json:"publish"`
	Render   RenderConfig   `yaml:"render" json:"render"`
	MaxRange float64        `yaml:"maxRange,omitempty" json:"maxRange,omitempty"` // cm; 0 disables the limit
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// TopicConfig names the input topics.
type TopicConfig struct {
	Pose     string `yaml:"pose" json:"pose"`
	Distance string `yaml:"distance" json:"distance"`
}

// GridConfig fixes the grid extent for the process lifetime.
type GridConfig struct {
	Width     int     `yaml:"width" json:"width"`                             // cells
	Height    int     `yaml:"height" json:"height"`                           // cells
	CellSize  float64 `yaml:"cellSize" json:"cellSize"`                       // cm per cell
	MapWidth  float64 `yaml:"mapWidth,omitempty" json:"mapWidth,omitempty"`   // cm; derived when 0
	MapHeight float64 `yaml:"mapHeight,omitempty" json:"mapHeight,omitempty"` // cm; derived when 0
}

// ModelConfig holds the sensor model as probabilities. They are converted to
// log space once, in LogOdds.
type ModelConfig struct {
	Prior     float64 `yaml:"prior" json:"prior"`
	Occupied  float64 `yaml:"occupied" json:"occupied"`
	Free      float64 `yaml:"free" json:"free"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// LogOdds is the model in log space.
type LogOdds struct {
	Prior     float64
	Occupied  float64
	Free      float64
	Threshold float64
}

// LogOdds converts the configured probabilities with math.Log, the same
// representation the accumulated grid values use.
func (m ModelConfig) LogOdds() LogOdds {
	return LogOdds{
		Prior:     math.Log(m.Prior),
		Occupied:  math.Log(m.Occupied),
		Free:      math.Log(m.Free),
		Threshold: math.Log(m.Threshold),
	}
}

// SensorConfig describes one sensor's fixed body-frame mounting. Side is
// positive to the right of the robot, Forward positive ahead of it. Beam is
// the direction the sensor looks along.
type SensorConfig struct {
	Name    string  `yaml:"name" json:"name"`
	Side    float64 `yaml:"side" json:"side"`
	Forward float64 `yaml:"forward" json:"forward"`
	Beam    Point   `yaml:"beam" json:"beam"`
	Mark    *bool   `yaml:"mark,omitempty" json:"mark,omitempty"`
}

// Marks reports whether the sensor contributes obstacle and free-space
// observations. Unset means true.
func (sc SensorConfig) Marks() bool {
	return sc.Mark == nil || *sc.Mark
}

// LoopConfig sets the cadence of the driving loop.
type LoopConfig struct {
	TickRate         float64 `yaml:"tickRate" json:"tickRate"`                 // Hz
	SnapshotInterval int     `yaml:"snapshotInterval" json:"snapshotInterval"` // ticks between snapshots
}

// TickPeriod returns the duration between ticks.
func (lc LoopConfig) TickPeriod() time.Duration {
	if lc.TickRate <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(float64(time.Second) / lc.TickRate)
}

// PublishConfig controls output messages.
type PublishConfig struct {
	Compress  bool `yaml:"compress" json:"compress"`   // zlib-compress snapshot payloads
	Transform bool `yaml:"transform" json:"transform"` // publish the map->robot transform every tick
}

// RenderConfig overrides the image palette with hex colors ("#RRGGBB").
// Empty colors keep the default palette.
type RenderConfig struct {
	Scale    int    `yaml:"scale,omitempty" json:"scale,omitempty"` // pixels per cell
	Free     string `yaml:"free,omitempty" json:"free,omitempty"`
	Occupied string `yaml:"occupied,omitempty" json:"occupied,omitempty"`
	Unknown  string `yaml:"unknown,omitempty" json:"unknown,omitempty"`
	Robot    string `yaml:"robot,omitempty" json:"robot,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

// DefaultSensors returns the mounting geometry of the six IR sensors,
// mirrored left/right and front/rear. The two forward-facing sensors are
// decoded but do not mark the map.
func DefaultSensors() []SensorConfig {
	return []SensorConfig{
		{Name: FrontLeft.String(), Side: -8, Forward: 9, Beam: Point{X: -1, Y: 0}},
		{Name: FrontRight.String(), Side: 8, Forward: 9, Beam: Point{X: 1, Y: 0}},
		{Name: RearLeft.String(), Side: -8, Forward: -9, Beam: Point{X: -1, Y: 0}},
		{Name: RearRight.String(), Side: 8, Forward: -9, Beam: Point{X: 1, Y: 0}},
		{Name: LeftFront.String(), Side: -5, Forward: 11, Beam: Point{X: 0, Y: 1}, Mark: boolPtr(false)},
		{Name: RightFront.String(), Side: 5, Forward: 11, Beam: Point{X: 0, Y: 1}, Mark: boolPtr(false)},
	}
}

// DefaultConfig returns a 10 m x 10 m map at 1 cm per cell, updated at 10 Hz
// with a snapshot every 100 ticks.
func DefaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			PublishPrefix: "tudogrid",
			ClientID:      "tudogrid",
		},
		Topics: TopicConfig{
			Pose:     "robot/pose/odometry",
			Distance: "robot/perception/ir/distance",
		},
		Grid: GridConfig{
			Width:    1000,
			Height:   1000,
			CellSize: 1.0,
		},
		Model: ModelConfig{
			Prior:     0.5,
			Occupied:  0.7,
			Free:      0.35,
			Threshold: 0.5,
		},
		Sensors: DefaultSensors(),
		Loop: LoopConfig{
			TickRate:         10,
			SnapshotInterval: 100,
		},
		Publish: PublishConfig{
			Compress:  false,
			Transform: true,
		},
	}
}

// SensorByName returns the sensor config for the given name
func (c *Config) SensorByName(name string) *SensorConfig {
	for i := range c.Sensors {
		if c.Sensors[i].Name == name {
			return &c.Sensors[i]
		}
	}
	return nil
}
