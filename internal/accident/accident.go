// Package accident implements an optical-flow accident detector: sparse
// Shi-Tomasi feature tracking, pyramidal Lucas-Kanade optical flow, RANSAC
// homography-based outlier rejection, and frame-rate-normalized
// motion-magnitude decisioning.
package accident

import (
	"image"
	"math"

	"github.com/adverant/nexus/riskcore/internal/angle"
	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
	"gocv.io/x/gocv"
)

// Detector is one device's independent accident-detection state machine.
type Detector struct {
	cfg config.AccidentConfig

	prevGray   gocv.Mat
	hasPrev    bool
	oldPoints  []gocv.Point2f

	history    []float64 // bounded deque, length cap cfg.HistoryLen
	detected   risk.AccidentState
	safeCounter int
}

// New builds a Detector in the SAFE state.
func New(cfg config.AccidentConfig) *Detector {
	return &Detector{cfg: cfg, detected: risk.AccidentSafe}
}

// Close releases the detector's retained OpenCV frame buffer.
func (d *Detector) Close() {
	if d.hasPrev {
		d.prevGray.Close()
	}
}

// Detect processes one frame (already converted to grayscale by the
// caller) and returns the current accident state. angleHist, when
// non-nil, receives the frame's homography for roll-angle tracking.
func (d *Detector) Detect(gray gocv.Mat, captureIntervalMS float64, angleHist *angle.Histogram) risk.AccidentState {
	if captureIntervalMS <= 0 {
		captureIntervalMS = d.cfg.BaseIntervalMS
	}

	if !d.hasPrev {
		d.seedFirstFrame(gray)
		return risk.AccidentSafe
	}

	magnitude, ok := d.processOpticalFlow(gray, angleHist)
	if !ok {
		return d.detected
	}

	normalized := magnitude * (d.cfg.BaseIntervalMS / captureIntervalMS)
	d.pushHistory(normalized)

	d.updateFrameData(gray)
	d.updateStatus()

	return d.detected
}

func (d *Detector) seedFirstFrame(gray gocv.Mat) {
	d.prevGray = cloneMat(gray)
	d.hasPrev = true
	d.oldPoints = goodFeatures(gray, d.cfg)
}

// processOpticalFlow runs Lucas-Kanade on the stored points, retrying once
// with freshly re-detected features if too few pairs survive.
func (d *Detector) processOpticalFlow(gray gocv.Mat, angleHist *angle.Histogram) (float64, bool) {
	oldValid, newValid := opticalFlowPairs(d.prevGray, gray, d.oldPoints, d.cfg)
	if len(oldValid) < 10 || len(newValid) < 4 {
		return d.retryFeatureTracking(gray, angleHist)
	}
	return d.motionMagnitude(oldValid, newValid, angleHist), true
}

func (d *Detector) retryFeatureTracking(gray gocv.Mat, angleHist *angle.Histogram) (float64, bool) {
	d.oldPoints = goodFeatures(d.prevGray, d.cfg)
	oldValid, newValid := opticalFlowPairs(d.prevGray, gray, d.oldPoints, d.cfg)

	if len(oldValid) < 10 || len(newValid) < 4 {
		d.updateFrameData(gray)
		return 0, false
	}

	return d.motionMagnitude(oldValid, newValid, angleHist), true
}

// motionMagnitude computes a RANSAC homography for outlier rejection,
// reports it to angleHist, then returns the mean motion-vector magnitude
// over the RANSAC inliers (or all valid pairs, if fewer than 10 survived).
func (d *Detector) motionMagnitude(oldValid, newValid []gocv.Point2f, angleHist *angle.Histogram) float64 {
	oldPts := gocv.NewPoint2fVectorFromPoints(oldValid)
	defer oldPts.Close()
	newPts := gocv.NewPoint2fVectorFromPoints(newValid)
	defer newPts.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	H := gocv.FindHomography(oldPts, newPts, gocv.HomographyMethod(gocv.RANSAC), d.cfg.RansacReprojThreshold, &mask, d.cfg.RansacMaxIters, d.cfg.RansacConfidence)
	defer H.Close()

	if !H.Empty() && angleHist != nil {
		angleHist.SetHomography(H)
	}

	inliersOld, inliersNew := selectInliers(oldValid, newValid, mask)
	return meanMagnitude(inliersOld, inliersNew)
}

func (d *Detector) pushHistory(m float64) {
	d.history = append(d.history, m)
	if len(d.history) > d.cfg.HistoryLen {
		d.history = d.history[len(d.history)-d.cfg.HistoryLen:]
	}
}

// updateStatus decides the current accident state from the mean of the
// last 5 history entries.
func (d *Detector) updateStatus() {
	if len(d.history) < 5 {
		return
	}
	recent := d.history[len(d.history)-5:]
	var sum float64
	for _, v := range recent {
		sum += v
	}
	avg := sum / 5

	if avg > d.cfg.MotionMagnitudeThreshold {
		d.detected = risk.AccidentIncident
		d.safeCounter = 0
		return
	}
	if d.detected == risk.AccidentIncident {
		d.safeCounter++
		if d.safeCounter >= d.cfg.SafeThreshold {
			d.detected = risk.AccidentSafe
			d.safeCounter = 0
		}
	}
}

func (d *Detector) updateFrameData(gray gocv.Mat) {
	if d.hasPrev {
		d.prevGray.Close()
	}
	d.prevGray = cloneMat(gray)
	d.hasPrev = true
	d.oldPoints = goodFeatures(gray, d.cfg)
}

func cloneMat(m gocv.Mat) gocv.Mat {
	return m.Clone()
}

func goodFeatures(gray gocv.Mat, cfg config.AccidentConfig) []gocv.Point2f {
	corners := gocv.NewMat()
	defer corners.Close()

	gocv.GoodFeaturesToTrack(gray, &corners, cfg.MaxCorners, cfg.QualityLevel, cfg.MinDistance)
	return matToPoints(corners)
}

func matToPoints(m gocv.Mat) []gocv.Point2f {
	n := m.Rows()
	pts := make([]gocv.Point2f, 0, n)
	for i := 0; i < n; i++ {
		x := m.GetFloatAt(i, 0)
		y := m.GetFloatAt(i, 1)
		pts = append(pts, gocv.Point2f{X: x, Y: y})
	}
	return pts
}

// opticalFlowPairs runs pyramidal Lucas-Kanade and returns the subset of
// (old, new) point pairs whose status flag is 1.
func opticalFlowPairs(prevGray, gray gocv.Mat, pts []gocv.Point2f, cfg config.AccidentConfig) ([]gocv.Point2f, []gocv.Point2f) {
	if len(pts) == 0 {
		return nil, nil
	}

	prevPts := gocv.NewPoint2fVectorFromPoints(pts)
	defer prevPts.Close()

	nextPts := gocv.NewPoint2fVector()
	defer nextPts.Close()

	status := gocv.NewMat()
	defer status.Close()
	errOut := gocv.NewMat()
	defer errOut.Close()

	winSize := image.Pt(cfg.FlowWinSize, cfg.FlowWinSize)
	gocv.CalcOpticalFlowPyrLK(prevGray, gray, prevPts, nextPts, &status, &errOut, winSize, cfg.FlowMaxLevel, gocv.NewTermCriteria(gocv.MaxIter+gocv.Eps, 10, 0.03))

	newRaw := nextPts.ToPoints()

	var oldValid, newValid []gocv.Point2f
	for i := 0; i < len(pts) && i < len(newRaw); i++ {
		if status.GetUCharAt(i, 0) == 1 {
			oldValid = append(oldValid, pts[i])
			newValid = append(newValid, newRaw[i])
		}
	}
	return oldValid, newValid
}

func selectInliers(old, nw []gocv.Point2f, mask gocv.Mat) ([]gocv.Point2f, []gocv.Point2f) {
	if mask.Empty() {
		return old, nw
	}

	var inlierCount int
	for i := 0; i < mask.Rows(); i++ {
		if mask.GetUCharAt(i, 0) == 1 {
			inlierCount++
		}
	}
	if inlierCount < 10 {
		return old, nw
	}

	var oldOut, newOut []gocv.Point2f
	for i := 0; i < mask.Rows() && i < len(old); i++ {
		if mask.GetUCharAt(i, 0) == 1 {
			oldOut = append(oldOut, old[i])
			newOut = append(newOut, nw[i])
		}
	}
	return oldOut, newOut
}

func meanMagnitude(old, nw []gocv.Point2f) float64 {
	if len(old) == 0 {
		return 0
	}
	var sum float64
	for i := range old {
		dx := float64(nw[i].X - old[i].X)
		dy := float64(nw[i].Y - old[i].Y)
		sum += math.Sqrt(dx*dx + dy*dy)
	}
	return sum / float64(len(old))
}
