package grid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/planar"
)

// TickStats reports what one update cycle did.
type TickStats struct {
	Tick        uint64 `json:"tick"`
	NoInput     bool   `json:"noInput"`
	SensorsUsed int    `json:"sensorsUsed"`
	Invalid     int    `json:"invalid"`     // sentinel or non-positive readings
	OutOfRange  int    `json:"outOfRange"`  // rays longer than maxRange
	OutOfBounds int    `json:"outOfBounds"` // discarded cell updates
	FreeCells   int    `json:"freeCells"`
}

// TransformMessage is the fixed map->robot frame relationship, republished
// every tick.
type TransformMessage struct {
	RunID     string  `json:"runId"`
	Parent    string  `json:"parent"`
	Child     string  `json:"child"`
	Tx        float64 `json:"tx"`
	Ty        float64 `json:"ty"`
	Robot     *Point  `json:"robot,omitempty"` // robot origin in the map frame, once a pose has arrived
	Timestamp int64   `json:"timestamp"`
}

// SnapshotHandler receives each periodic snapshot with its stats.
type SnapshotHandler func(snap *Snapshot, stats MapStats)

// TransformHandler receives the frame transform every tick.
type TransformHandler func(msg TransformMessage)

// Mapper is the update-cycle orchestrator. A single goroutine calls Tick;
// readers (HTTP handlers, renderers) go through the read lock.
type Mapper struct {
	mu       sync.RWMutex
	om       *OccupancyMap
	sensors  []Sensor
	tracker  *StateTracker
	maxRange float64
	interval int
	period   time.Duration
	runID    string
	ticks    uint64
	last     TickStats

	// Reading version whose discarded obstacles were already logged. The
	// cached reading is re-applied every tick; its discards are logged once.
	discardLogged uint64

	OnTick      func(TickStats)
	OnSnapshot  SnapshotHandler
	OnTransform TransformHandler
}

// NewMapper builds the grids and sensor set from config.
func NewMapper(config *Config, tracker *StateTracker) (*Mapper, error) {
	if config == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	sensors, err := NewSensors(config.Sensors)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = NewStateTracker()
	}

	frame := NewFrame(config.Grid)
	return &Mapper{
		om:       NewOccupancyMap(frame, config.Model.LogOdds()),
		sensors:  sensors,
		tracker:  tracker,
		maxRange: config.MaxRange,
		interval: config.Loop.SnapshotInterval,
		period:   config.Loop.TickPeriod(),
		runID:    uuid.New().String(),
	}, nil
}

// Tick reads the latest inputs once and applies every valid reading: the
// obstacle cell is marked occupied and the cells between sensor and
// obstacle are marked free. Sensors without a valid reading contribute
// nothing. The cell under the robot is not marked.
func (m *Mapper) Tick() TickStats {
	in := m.tracker.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ticks++
	stats := TickStats{Tick: m.ticks}

	if !in.Ready() {
		stats.NoInput = true
		m.last = stats
		return stats
	}

	logDiscards := in.ReadingVersion != m.discardLogged
	m.discardLogged = in.ReadingVersion

	for _, s := range m.sensors {
		if !s.Mark {
			continue
		}
		obstacle, err := ResolveObstaclePoint(in.Pose, s, in.Reading.Range(s.ID))
		if err != nil {
			stats.Invalid++
			continue
		}
		emitter := ResolveSensorPoint(in.Pose, s)

		if m.maxRange > 0 && planar.Distance(emitter.toOrb(), obstacle.toOrb()) > m.maxRange {
			stats.OutOfRange++
			continue
		}
		stats.SensorsUsed++

		if _, err := m.om.MarkOccupied(obstacle); err != nil {
			if errors.Is(err, ErrOutOfBounds) {
				stats.OutOfBounds++
			}
			if logDiscards {
				Logf("[MAP] tick %d: %s obstacle discarded: %v", m.ticks, s.ID, err)
			}
		}

		marked, skipped := m.om.MarkFreeSpace(emitter, obstacle)
		stats.FreeCells += marked
		stats.OutOfBounds += skipped
	}

	m.last = stats
	return stats
}

// Run drives Tick at the configured rate until ctx is done. OnTransform
// fires every tick and OnSnapshot every snapshot interval.
func (m *Mapper) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Step()
		}
	}
}

// Step runs one tick and fires the handlers: OnTick and OnTransform every
// tick, OnSnapshot every snapshot interval.
func (m *Mapper) Step() TickStats {
	stats := m.Tick()

	if m.OnTick != nil {
		m.OnTick(stats)
	}
	if m.OnTransform != nil {
		m.OnTransform(m.Transform())
	}
	if m.OnSnapshot != nil && stats.Tick%uint64(m.interval) == 0 {
		snap := m.Snapshot()
		m.OnSnapshot(snap, m.Stats())
	}
	return stats
}

// Transform returns the current map->robot transform message.
func (m *Mapper) Transform() TransformMessage {
	t := m.om.Frame().MapTransform()
	msg := TransformMessage{
		RunID:     m.RunID(),
		Parent:    "map",
		Child:     "robot",
		Tx:        t.Tx,
		Ty:        t.Ty,
		Timestamp: time.Now().Unix(),
	}
	if in := m.tracker.Snapshot(); in.HasPose {
		robot := bodyToWorld(in.Pose).Then(t).Apply(Point{})
		msg.Robot = &robot
	}
	return msg
}

// Snapshot enumerates the grid under the read lock.
func (m *Mapper) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := m.om.Snapshot()
	snap.RunID = m.runID
	snap.Tick = m.ticks
	return snap
}

// Stats summarizes the grid under the read lock.
func (m *Mapper) Stats() MapStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.om.Stats()
	s.RunID = m.runID
	s.Tick = m.ticks
	return s
}

// View runs fn with read access to the map. fn must not retain om.
func (m *Mapper) View(fn func(om *OccupancyMap)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.om)
}

// Reset clears the map back to the prior and starts a new run id.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.om.Reset()
	m.runID = uuid.New().String()
	Logf("[MAP] map reset, run %s", m.runID)
}

// LastTick returns the stats of the most recent tick.
func (m *Mapper) LastTick() TickStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Ticks returns the number of ticks run so far.
func (m *Mapper) Ticks() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ticks
}

// RunID identifies the current mapping run.
func (m *Mapper) RunID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runID
}

// Tracker returns the input tracker the mapper reads from.
func (m *Mapper) Tracker() *StateTracker {
	return m.tracker
}

// Frame returns the coordinate mapper.
func (m *Mapper) Frame() Frame {
	return m.om.Frame()
}
