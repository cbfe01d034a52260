// Package angle implements a per-device bucketed-angle histogram with an
// O(1) most-common-angle query, fed by the accident detector's homography
// decomposition.
package angle

import (
	"math"

	"github.com/adverant/nexus/riskcore/internal/config"
	"gocv.io/x/gocv"
)

// Histogram tracks the distribution of a device's camera roll angle over
// time. One instance is owned by each device's Pipeline; it is never
// shared across devices.
type Histogram struct {
	intrinsics config.CameraIntrinsics

	buckets      map[int]int
	mostCommon   int
	mostCount    int
	currentAngle float64
	hasCurrent   bool

	homography gocv.Mat
	hasHomog   bool
}

// New builds an empty Histogram using the given camera intrinsics.
func New(intrinsics config.CameraIntrinsics) *Histogram {
	return &Histogram{
		intrinsics: intrinsics,
		buckets:    make(map[int]int),
	}
}

// SetHomography stores a copy of the current frame's homography for later
// roll-angle extraction via UpdateWithHomography.
func (h *Histogram) SetHomography(H gocv.Mat) {
	if h.hasHomog {
		h.homography.Close()
	}
	h.homography = H.Clone()
	h.hasHomog = true
}

// Update buckets currentAngle to the nearest 10 degrees, increments that
// bucket's count, and refreshes the cached most-common bucket in O(1) if
// the incremented bucket now leads.
func (h *Histogram) Update(currentAngle float64) {
	bucket := int(math.Round(currentAngle/10.0)) * 10
	h.currentAngle = currentAngle
	h.hasCurrent = true

	h.buckets[bucket]++
	if h.buckets[bucket] > h.mostCount {
		h.mostCommon = bucket
		h.mostCount = h.buckets[bucket]
	}
}

// UpdateWithHomography decomposes the stored homography (if any) into a
// roll angle using the configured camera intrinsics and feeds it to
// Update. It is a no-op when no homography was set this frame.
func (h *Histogram) UpdateWithHomography() {
	if !h.hasHomog {
		return
	}
	if angle, ok := RollAngleFromHomography(h.homography, h.intrinsics); ok {
		h.Update(angle)
	}
	h.homography.Close()
	h.hasHomog = false
}

// MostCommonAngle returns the most frequently observed bucketed angle, or 0
// if no observation has been recorded yet.
func (h *Histogram) MostCommonAngle() int {
	return h.mostCommon
}

// CurrentAngle returns the most recently recorded raw angle.
func (h *Histogram) CurrentAngle() (float64, bool) {
	return h.currentAngle, h.hasCurrent
}

// Stats returns a copy of the bucket->count histogram.
func (h *Histogram) Stats() map[int]int {
	out := make(map[int]int, len(h.buckets))
	for k, v := range h.buckets {
		out[k] = v
	}
	return out
}

// RollAngleFromHomography decomposes a 3x3 homography with the given
// camera intrinsics and returns the roll angle in degrees:
// atan2(R[2][1], R[2][2]) * 180/π, using the first candidate rotation
// returned by OpenCV's decomposeHomographyMat. ok is false when
// decomposition fails (a degenerate/singular homography).
func RollAngleFromHomography(H gocv.Mat, intrinsics config.CameraIntrinsics) (float64, bool) {
	if H.Empty() {
		return 0, false
	}

	K := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer K.Close()
	K.SetDoubleAt(0, 0, intrinsics.FX)
	K.SetDoubleAt(1, 1, intrinsics.FY)
	K.SetDoubleAt(0, 2, intrinsics.CX)
	K.SetDoubleAt(1, 2, intrinsics.CY)
	K.SetDoubleAt(2, 2, 1)

	rotations, _, _ := gocv.DecomposeHomographyMat(H, K)
	if len(rotations) == 0 {
		return 0, false
	}

	R := rotations[0]
	defer R.Close()

	r21 := R.GetDoubleAt(2, 1)
	r22 := R.GetDoubleAt(2, 2)
	return math.Atan2(r21, r22) * 180 / math.Pi, true
}
