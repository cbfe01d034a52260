// Package tracking implements a ByteTrack-with-rotated-box multi-object
// tracker: two-stage score-based association, Kalman motion prediction,
// and class-aware rotated-IoU cost fusion.
package tracking

import (
	"sync/atomic"

	"github.com/adverant/nexus/riskcore/internal/geometry"
	"github.com/adverant/nexus/riskcore/internal/kalman"
	"gocv.io/x/gocv"
)

// State is a track's lifecycle state.
type State int

const (
	StateNew State = iota
	StateTracked
	StateLost
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateTracked:
		return "TRACKED"
	case StateLost:
		return "LOST"
	case StateRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Detection is a single-frame object observation from the external
// detector.
type Detection struct {
	Box     geometry.Box
	Score   float64
	ClassID int
	// Mask is the optional binary segmentation mask for this detection.
	// Only consulted for classes in the rotated-box configuration set.
	Mask gocv.Mat
}

// HasMask reports whether a usable mask was supplied.
func (d Detection) HasMask() bool {
	return !d.Mask.Empty()
}

// IDAllocator is an atomically incremented track-id source, injected into
// the Tracker rather than read from a global so tests can own distinct
// allocators. The pipeline package shares one allocator across every
// device's Tracker, so track ids are unique process-wide.
type IDAllocator struct {
	counter int64
}

// NewIDAllocator returns a fresh allocator starting at 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns the next monotonically increasing, never-reused track id.
func (a *IDAllocator) Next() int64 {
	return atomic.AddInt64(&a.counter, 1)
}

// Track is a persistent cross-frame object identity.
type Track struct {
	ID          int64
	State       State
	IsActivated bool

	Kalman kalman.State

	ClassID int
	Score   float64

	Mask       gocv.Mat
	RotatedBox *geometry.RotatedBox // nil when class is not in the rotated-box set

	TrackletLen int
	StartFrame  int64
	FrameID     int64
	EndFrame    int64
}

// Box returns the track's current axis-aligned box, derived from the
// Kalman mean in (cx,cy,aspect,height) form.
func (t *Track) Box() geometry.Box {
	mean := t.Kalman.Mean
	cx, cy, a, h := mean.AtVec(0), mean.AtVec(1), mean.AtVec(2), mean.AtVec(3)
	w := a * h
	return geometry.Box{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}

func xyah(b geometry.Box) [4]float64 {
	x, y, w, h := b.TLWH()
	if h == 0 {
		h = 1
	}
	return [4]float64{x + w/2, y + h/2, w / h, h}
}
