package grid

import (
	"sync/atomic"
	"time"
)

// Inputs is an immutable view of the latest pose and sensor reading. Each
// half carries its own version, bumped on every delivery.
type Inputs struct {
	Pose           Pose          `json:"pose"`
	Reading        SensorReading `json:"reading"`
	HasPose        bool          `json:"hasPose"`
	HasReading     bool          `json:"hasReading"`
	PoseVersion    uint64        `json:"poseVersion"`
	ReadingVersion uint64        `json:"readingVersion"`
	PoseTime       time.Time     `json:"poseTime"`
	ReadingTime    time.Time     `json:"readingTime"`
}

// Ready reports whether both a pose and a reading have been delivered.
func (in Inputs) Ready() bool {
	return in.HasPose && in.HasReading
}

// StateTracker holds the latest inputs from the asynchronous producers. Each
// update swaps in a whole new Inputs value, so a tick that reads Snapshot
// once never sees a pose or reading torn mid-update.
type StateTracker struct {
	current atomic.Pointer[Inputs]
}

// NewStateTracker creates a tracker with no pose and an all-invalid reading
func NewStateTracker() *StateTracker {
	st := &StateTracker{}
	st.current.Store(&Inputs{Reading: NewInvalidReading()})
	return st
}

// UpdatePose overwrites the pose.
func (st *StateTracker) UpdatePose(p Pose) {
	st.swap(func(in *Inputs) {
		in.Pose = p
		in.HasPose = true
		in.PoseVersion++
		in.PoseTime = time.Now()
	})
}

// UpdateReading overwrites all six ranges at once.
func (st *StateTracker) UpdateReading(r SensorReading) {
	st.swap(func(in *Inputs) {
		in.Reading = r
		in.HasReading = true
		in.ReadingVersion++
		in.ReadingTime = time.Now()
	})
}

// Snapshot returns a copy of the latest inputs.
func (st *StateTracker) Snapshot() Inputs {
	return *st.current.Load()
}

func (st *StateTracker) swap(mutate func(*Inputs)) {
	for {
		old := st.current.Load()
		next := *old
		mutate(&next)
		if st.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
