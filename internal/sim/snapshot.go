package sim

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Snapshot observes a running simulation. Each snapshot owns a wall-clock
// repeat interval; during a run it is updated whenever real time passes
// its next deadline, independent of simulated-time progress. A snapshot
// may therefore be updated zero or many times between checkpoints.
//
// Snapshots read but never mutate simulation state, and are bound to
// exactly one simulation by AddSnapshot.
type Snapshot interface {
	// Initialize is called once when the snapshot is attached, before the
	// first Update.
	Initialize(s *Simulation)

	// Update is called with the observed simulated time and
	// configuration. The configuration is a shared view; implementations
	// must not retain or mutate it.
	Update(time float64, config []int64)

	// Interval is the wall-clock period between updates during a run.
	Interval() time.Duration
}

// DefaultProgressInterval is the update period of the auto-attached
// progress snapshot.
const DefaultProgressInterval = 100 * time.Millisecond

// TimeUpdate is a minimal progress snapshot that rewrites the current
// simulated time in place. A run with no snapshots attaches one
// automatically and detaches it again when it finishes.
type TimeUpdate struct {
	// Out is where progress is written. Defaults to os.Stdout.
	Out io.Writer

	// Every overrides the update interval. Defaults to
	// DefaultProgressInterval.
	Every time.Duration
}

func (t *TimeUpdate) Initialize(*Simulation) {}

func (t *TimeUpdate) Update(time float64, _ []int64) {
	fmt.Fprintf(t.out(), "\r time: %.3f", time)
}

func (t *TimeUpdate) Interval() time.Duration {
	if t.Every > 0 {
		return t.Every
	}
	return DefaultProgressInterval
}

func (t *TimeUpdate) out() io.Writer {
	if t.Out != nil {
		return t.Out
	}
	return os.Stdout
}

// scheduledSnapshot pairs an attached snapshot with its next wall-clock
// deadline. Deadlines are re-armed at the start of every run.
type scheduledSnapshot struct {
	snap     Snapshot
	deadline time.Time
}

// AddSnapshot binds a snapshot to this simulation, runs its
// initialization hook, and fires one immediate update.
func (s *Simulation) AddSnapshot(sn Snapshot) {
	sn.Initialize(s)
	sn.Update(s.clock.Time, s.stepper.Config())
	s.snapshots = append(s.snapshots, &scheduledSnapshot{snap: sn})
}

// Snapshots returns the currently attached snapshots.
func (s *Simulation) Snapshots() []Snapshot {
	out := make([]Snapshot, len(s.snapshots))
	for i, sc := range s.snapshots {
		out[i] = sc.snap
	}
	return out
}

// SnapshotAt updates every attached snapshot to the recorded history
// entry at index.
func (s *Simulation) SnapshotAt(index int) {
	t, cfg := s.history.At(index)
	for _, sc := range s.snapshots {
		sc.snap.Update(t, cfg)
	}
}

// SnapshotAtTime updates every attached snapshot to the recorded entry
// nearest at or after the given simulated time.
func (s *Simulation) SnapshotAtTime(t float64) {
	i := sort.SearchFloat64s(s.history.Times(), t)
	if i >= s.history.Len() {
		i = s.history.Len() - 1
	}
	s.SnapshotAt(i)
}

// minSnapshotInterval derives the wall-clock ceiling for a single stepper
// call: the smallest update interval over attached snapshots, or zero
// (unbounded) when none are attached.
func (s *Simulation) minSnapshotInterval() time.Duration {
	var min time.Duration
	for _, sc := range s.snapshots {
		if iv := sc.snap.Interval(); min == 0 || iv < min {
			min = iv
		}
	}
	return min
}
