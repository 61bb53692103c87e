package grid

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// replayLine is one recorded message. Exactly one of Pose or Distance is
// set; each holds the payload as it arrived on its topic.
type replayLine struct {
	Pose     json.RawMessage `json:"pose,omitempty"`
	Distance json.RawMessage `json:"distance,omitempty"`
}

// ReplayStats summarizes a replay run.
type ReplayStats struct {
	Lines    int `json:"lines"`
	Poses    int `json:"poses"`
	Readings int `json:"readings"`
	Ticks    int `json:"ticks"`
	Skipped  int `json:"skipped"` // blank, comment or undecodable lines
}

// Replay feeds recorded messages into the mapper's tracker, one JSON object
// per line, and steps the mapper after every distance message. Lines that
// fail to decode are logged and skipped.
func Replay(r io.Reader, m *Mapper) (ReplayStats, error) {
	var stats ReplayStats
	tracker := m.Tracker()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			stats.Skipped++
			continue
		}

		var line replayLine
		if err := json.Unmarshal([]byte(text), &line); err != nil {
			Logf("[REPLAY] line %d: %v", stats.Lines, err)
			stats.Skipped++
			continue
		}

		switch {
		case len(line.Pose) > 0:
			pose, err := DecodePose(line.Pose)
			if err != nil {
				Logf("[REPLAY] line %d: %v", stats.Lines, err)
				stats.Skipped++
				continue
			}
			tracker.UpdatePose(pose)
			stats.Poses++
		case len(line.Distance) > 0:
			reading, err := DecodeReading(line.Distance)
			if err != nil {
				Logf("[REPLAY] line %d: %v", stats.Lines, err)
				stats.Skipped++
				continue
			}
			tracker.UpdateReading(reading)
			stats.Readings++
			m.Step()
			stats.Ticks++
		default:
			Logf("[REPLAY] line %d: neither pose nor distance", stats.Lines)
			stats.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading replay input: %w", err)
	}
	return stats, nil
}

// ReplayFile opens path and replays it into m.
func ReplayFile(path string, m *Mapper) (ReplayStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayStats{}, fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()
	return Replay(f, m)
}
