// Package history accumulates per-run statistics used for challenge grading.
package history

import (
	"math"
	"sort"
	"sync"
)

// Snapshot is an immutable copy of the statistics of one run.
type Snapshot struct {
	MaxDistanceMoved float64  `json:"max_distance_moved"`
	TouchedWall      bool     `json:"touched_wall"`
	DetectedColors   []string `json:"detected_colors"`
	TotalRotation    float64  `json:"total_rotation"`
}

// HasColor reports whether the colour sensor reported name during the run.
func (s Snapshot) HasColor(name string) bool {
	for _, c := range s.DetectedColors {
		if c == name {
			return true
		}
	}
	return false
}

// Recorder is mutated by the interpreter of the active run and read once by
// the evaluator after the run.
type Recorder struct {
	mu          sync.Mutex
	originX     float64
	originZ     float64
	maxDistance float64
	touched     bool
	colors      map[string]struct{}
	// Finished turns are summed separately from the turn in progress so
	// that whole-degree turns add up exactly.
	committed float64
	partial   float64
}

// NewRecorder returns an empty recorder with its origin at (0, 0).
func NewRecorder() *Recorder {
	return &Recorder{colors: make(map[string]struct{})}
}

// Begin clears the recorder and measures displacement from (x, z).
func (r *Recorder) Begin(x, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	r.originX, r.originZ = x, z
}

func (r *Recorder) resetLocked() {
	r.maxDistance = 0
	r.touched = false
	r.colors = make(map[string]struct{})
	r.committed = 0
	r.partial = 0
}

// ObservePosition folds the planar distance of (x, z) from the origin into
// the running maximum.
func (r *Recorder) ObservePosition(x, z float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := math.Hypot(x-r.originX, z-r.originZ)
	if d > r.maxDistance {
		r.maxDistance = d
	}
}

// TurnProgress records how many degrees of the current turn have been applied.
func (r *Recorder) TurnProgress(applied float64) {
	if math.IsNaN(applied) || math.IsInf(applied, 0) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.partial = applied
}

// CommitTurn folds the current turn into the total. Aborted turns are
// committed too, with whatever part of them was applied.
func (r *Recorder) CommitTurn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed += r.partial
	r.partial = 0
}

// ObserveTouch latches the touched flag.
func (r *Recorder) ObserveTouch(touching bool) {
	if !touching {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = true
}

// ObserveColor adds name to the set of detected colours.
func (r *Recorder) ObserveColor(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.colors[name] = struct{}{}
}

// Snapshot copies the current statistics. Colours are sorted.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	colors := make([]string, 0, len(r.colors))
	for c := range r.colors {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	return Snapshot{
		MaxDistanceMoved: r.maxDistance,
		TouchedWall:      r.touched,
		DetectedColors:   colors,
		TotalRotation:    r.committed + r.partial,
	}
}
