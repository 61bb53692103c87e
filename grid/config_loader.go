package grid

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file. Fields missing from
// the file keep their DefaultConfig values; sensors are merged by name.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates YAML configuration data.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.Sensors = mergeSensors(DefaultSensors(), config.Sensors)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// mergeSensors overlays loaded sensor entries on the defaults. An entry
// without a beam or mark inherits the default's value.
func mergeSensors(defaults, loaded []SensorConfig) []SensorConfig {
	result := make([]SensorConfig, len(defaults))
	copy(result, defaults)

	for _, sc := range loaded {
		idx := -1
		for i := range result {
			if result[i].Name == sc.Name {
				idx = i
				break
			}
		}
		if idx == -1 {
			result = append(result, sc)
			continue
		}
		if sc.Beam == (Point{}) {
			sc.Beam = result[idx].Beam
		}
		if sc.Mark == nil {
			sc.Mark = result[idx].Mark
		}
		result[idx] = sc
	}
	return result
}

// Validate checks the configuration for values the mapper cannot run with.
func (c *Config) Validate() error {
	g := c.Grid
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("grid.width and grid.height must be positive, got %dx%d", g.Width, g.Height)
	}
	if g.CellSize <= 0 {
		return fmt.Errorf("grid.cellSize must be positive, got %v", g.CellSize)
	}
	if g.MapWidth != 0 && math.Abs(g.MapWidth-float64(g.Width)*g.CellSize) > 1e-9 {
		return fmt.Errorf("grid.mapWidth %v does not match width*cellSize %v", g.MapWidth, float64(g.Width)*g.CellSize)
	}
	if g.MapHeight != 0 && math.Abs(g.MapHeight-float64(g.Height)*g.CellSize) > 1e-9 {
		return fmt.Errorf("grid.mapHeight %v does not match height*cellSize %v", g.MapHeight, float64(g.Height)*g.CellSize)
	}

	probs := []struct {
		name string
		v    float64
	}{
		{"model.prior", c.Model.Prior},
		{"model.occupied", c.Model.Occupied},
		{"model.free", c.Model.Free},
		{"model.threshold", c.Model.Threshold},
	}
	for _, p := range probs {
		if p.v <= 0 || p.v >= 1 {
			return fmt.Errorf("%s must be in (0, 1), got %v", p.name, p.v)
		}
	}
	if c.Model.Occupied <= c.Model.Prior {
		return fmt.Errorf("model.occupied (%v) must exceed model.prior (%v)", c.Model.Occupied, c.Model.Prior)
	}
	if c.Model.Free >= c.Model.Prior {
		return fmt.Errorf("model.free (%v) must be below model.prior (%v)", c.Model.Free, c.Model.Prior)
	}

	seen := make(map[string]bool)
	for i, sc := range c.Sensors {
		if _, ok := ParseSensorID(sc.Name); !ok {
			return fmt.Errorf("sensors[%d]: unknown sensor name %q", i, sc.Name)
		}
		if seen[sc.Name] {
			return fmt.Errorf("sensors[%d]: duplicate sensor %q", i, sc.Name)
		}
		seen[sc.Name] = true
		if sc.Beam.X == 0 && sc.Beam.Y == 0 {
			return fmt.Errorf("sensors[%d].beam is required for %s", i, sc.Name)
		}
	}

	if c.Loop.TickRate <= 0 {
		return fmt.Errorf("loop.tickRate must be positive, got %v", c.Loop.TickRate)
	}
	if c.Loop.SnapshotInterval <= 0 {
		return fmt.Errorf("loop.snapshotInterval must be positive, got %d", c.Loop.SnapshotInterval)
	}
	if c.Render.Scale < 0 {
		return fmt.Errorf("render.scale must not be negative, got %d", c.Render.Scale)
	}
	if _, err := c.Render.Palette(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if c.MaxRange < 0 {
		return fmt.Errorf("maxRange must not be negative, got %v", c.MaxRange)
	}
	return nil
}
