package tracking

import (
	"math"
	"sync"

	"github.com/adverant/nexus/riskcore/internal/assign"
	"github.com/adverant/nexus/riskcore/internal/geometry"
	"github.com/adverant/nexus/riskcore/internal/kalman"
)

// Config is the ByteTrack tuning configuration.
type Config struct {
	TrackThresh       float64
	TrackBuffer       int
	MatchThresh       float64
	MOT20             bool
	PositionWeight    float64
	MaxCenterDist     float64
	RotatedBoxClasses map[int]struct{}
}

// DetThresh is the minimum score required to spawn a new track.
func (c Config) DetThresh() float64 { return c.TrackThresh + 0.1 }

// Tracker is the per-device multi-object tracker. It owns the full set of
// tracked/lost/removed tracks; Update holds an internal mutex, so
// concurrent calls are serialized (each device's Pipeline also serializes
// its own frames).
type Tracker struct {
	mu sync.Mutex

	ids *IDAllocator
	kf  *kalman.Filter
	cfg Config

	frameID     int64
	maxTimeLost int64

	tracked []*Track
	lost    []*Track
	removed []*Track
}

// New builds a Tracker. frameRate scales the configured track buffer into
// max_time_lost: round(frameRate/30 * track_buffer).
func New(ids *IDAllocator, cfg Config, frameRate float64) *Tracker {
	maxTimeLost := int64(math.Round(frameRate / 30.0 * float64(cfg.TrackBuffer)))
	return &Tracker{
		ids:         ids,
		kf:          kalman.New(),
		cfg:         cfg,
		maxTimeLost: maxTimeLost,
	}
}

// Update runs one frame of the two-stage association pipeline and returns
// the currently activated, TRACKED tracks. scale is the caller-supplied
// min(input/img) ratio used to rescale detection boxes; pass 1.0 when
// detector output is already in the target coordinate
// space.
func (tr *Tracker) Update(detections []Detection, scale float64) []*Track {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.frameID++

	if scale != 1.0 && scale != 0 {
		for i := range detections {
			detections[i].Box.X1 /= scale
			detections[i].Box.Y1 /= scale
			detections[i].Box.X2 /= scale
			detections[i].Box.Y2 /= scale
		}
	}

	high, low := tr.splitByScore(detections)

	var activated, refound, newlyLost, newlyRemoved []*Track

	var unconfirmed, trackedPool []*Track
	for _, t := range tr.tracked {
		if !t.IsActivated {
			unconfirmed = append(unconfirmed, t)
		} else {
			trackedPool = append(trackedPool, t)
		}
	}

	pool := jointTracks(trackedPool, tr.lost)
	tr.predictAll(pool)

	dists := tr.costMatrix(pool, high, true)
	if !tr.cfg.MOT20 {
		fuseScore(dists, high)
	}
	res := assign.Solve(dists, tr.cfg.MatchThresh)

	matchedHigh := make(map[int]bool, len(res.Matches))
	for _, m := range res.Matches {
		track := pool[m[0]]
		det := high[m[1]]
		matchedHigh[m[1]] = true
		if track.State == StateTracked {
			tr.updateTrack(track, det)
			activated = append(activated, track)
		} else {
			tr.reactivateTrack(track, det, false)
			refound = append(refound, track)
		}
	}

	var rTracked []*Track
	for _, idx := range res.UnmatchedRow {
		if pool[idx].State == StateTracked {
			rTracked = append(rTracked, pool[idx])
		}
	}

	dists2 := tr.costMatrix(rTracked, low, false)
	res2 := assign.Solve(dists2, 0.5)

	matchedSecondRow := make(map[int]bool, len(res2.Matches))
	for _, m := range res2.Matches {
		track := rTracked[m[0]]
		det := low[m[1]]
		matchedSecondRow[m[0]] = true
		if track.State == StateTracked {
			tr.updateTrack(track, det)
			activated = append(activated, track)
		} else {
			tr.reactivateTrack(track, det, false)
			refound = append(refound, track)
		}
	}

	for i, track := range rTracked {
		if matchedSecondRow[i] {
			continue
		}
		if track.State != StateLost {
			track.State = StateLost
			newlyLost = append(newlyLost, track)
		}
	}

	var remainingHigh []Detection
	for i, d := range high {
		if !matchedHigh[i] {
			remainingHigh = append(remainingHigh, d)
		}
	}

	dists3 := tr.costMatrix(unconfirmed, remainingHigh, true)
	if !tr.cfg.MOT20 {
		fuseScore(dists3, remainingHigh)
	}
	res3 := assign.Solve(dists3, 0.7)

	matchedUnconfirmed := make(map[int]bool, len(res3.Matches))
	matchedFinalDet := make(map[int]bool, len(res3.Matches))
	for _, m := range res3.Matches {
		track := unconfirmed[m[0]]
		det := remainingHigh[m[1]]
		matchedUnconfirmed[m[0]] = true
		matchedFinalDet[m[1]] = true
		tr.updateTrack(track, det)
		activated = append(activated, track)
	}

	for i, track := range unconfirmed {
		if matchedUnconfirmed[i] {
			continue
		}
		track.State = StateRemoved
		newlyRemoved = append(newlyRemoved, track)
	}

	for i, det := range remainingHigh {
		if matchedFinalDet[i] {
			continue
		}
		if det.Score < tr.cfg.DetThresh() {
			continue
		}
		track := tr.newTrack(det)
		tr.activateTrack(track)
		activated = append(activated, track)
	}

	for _, t := range tr.lost {
		if tr.frameID-t.EndFrame > tr.maxTimeLost {
			t.State = StateRemoved
			newlyRemoved = append(newlyRemoved, t)
		}
	}

	var stillTracked []*Track
	for _, t := range tr.tracked {
		if t.State == StateTracked {
			stillTracked = append(stillTracked, t)
		}
	}
	tr.tracked = jointTracks(stillTracked, activated)
	tr.tracked = jointTracks(tr.tracked, refound)
	tr.lost = subTracks(tr.lost, tr.tracked)
	tr.lost = append(tr.lost, newlyLost...)
	tr.lost = subTracks(tr.lost, tr.removed)
	tr.removed = append(tr.removed, newlyRemoved...)
	tr.tracked, tr.lost = removeDuplicates(tr.tracked, tr.lost)

	var out []*Track
	for _, t := range tr.tracked {
		if t.IsActivated {
			out = append(out, t)
		}
	}
	return out
}

func (tr *Tracker) splitByScore(dets []Detection) (high, low []Detection) {
	for _, d := range dets {
		switch {
		case d.Score > tr.cfg.TrackThresh:
			high = append(high, d)
		case d.Score > 0.1:
			low = append(low, d)
		}
	}
	return high, low
}

func (tr *Tracker) predictAll(pool []*Track) {
	for _, t := range pool {
		mean := t.Kalman
		if t.State != StateTracked {
			zeroed := *mean.Mean
			zeroed.SetVec(7, 0)
			mean.Mean = &zeroed
		}
		t.Kalman = tr.kf.Predict(mean)
	}
}

// costMatrix builds the 1-IoU cost matrix between tracks and detections,
// using the rotated-box convex-combination fusion when useRotatedFusion
// is set and both sides carry a rotated box for a class in the
// rotated-box set.
func (tr *Tracker) costMatrix(tracks []*Track, dets []Detection, useRotatedFusion bool) [][]float64 {
	m := make([][]float64, len(tracks))
	for i, t := range tracks {
		row := make([]float64, len(dets))
		for j, d := range dets {
			row[j] = tr.pairCost(t, d, useRotatedFusion)
		}
		m[i] = row
	}
	return m
}

func (tr *Tracker) pairCost(t *Track, d Detection, useRotatedFusion bool) float64 {
	if useRotatedFusion && t.RotatedBox != nil {
		if detRot, ok := tr.deriveRotatedBox(d); ok {
			rIoU := geometry.RotatedIoU(*t.RotatedBox, detRot)
			centerDist := math.Hypot(t.RotatedBox.CX-detRot.CX, t.RotatedBox.CY-detRot.CY)
			normDist := geometry.Clamp01(centerDist / tr.cfg.MaxCenterDist)
			w := tr.cfg.PositionWeight
			sim := (1-w)*rIoU + w*(1-normDist)
			return 1 - sim
		}
	}
	return 1 - geometry.IoU(t.Box(), d.Box)
}

// deriveRotatedBox derives the rotated box for a detection when its class
// is in the rotated-box set and it carries a mask.
func (tr *Tracker) deriveRotatedBox(d Detection) (geometry.RotatedBox, bool) {
	if !d.HasMask() {
		return geometry.RotatedBox{}, false
	}
	if _, ok := tr.cfg.RotatedBoxClasses[d.ClassID]; !ok {
		return geometry.RotatedBox{}, false
	}
	return geometry.MinAreaRectFromMask(d.Mask)
}

func fuseScore(cost [][]float64, dets []Detection) {
	for i := range cost {
		for j, d := range dets {
			iouSim := 1 - cost[i][j]
			cost[i][j] = 1 - iouSim*d.Score
		}
	}
}

func (tr *Tracker) newTrack(d Detection) *Track {
	t := &Track{
		State:   StateNew,
		ClassID: d.ClassID,
		Score:   d.Score,
		Mask:    d.Mask,
	}
	if rot, ok := tr.deriveRotatedBox(d); ok {
		t.RotatedBox = &rot
	}
	t.Kalman = tr.kf.Initiate(xyah(d.Box))
	return t
}

func (tr *Tracker) activateTrack(t *Track) {
	t.ID = tr.ids.Next()
	t.TrackletLen = 0
	t.State = StateTracked
	if tr.frameID == 1 {
		t.IsActivated = true
	}
	t.FrameID = tr.frameID
	t.StartFrame = tr.frameID
	t.EndFrame = tr.frameID
}

func (tr *Tracker) updateTrack(t *Track, d Detection) {
	t.FrameID = tr.frameID
	t.EndFrame = tr.frameID
	t.TrackletLen++

	if s, ok := tr.kf.Update(t.Kalman, xyah(d.Box)); ok {
		t.Kalman = s
	}
	t.State = StateTracked
	t.IsActivated = true
	t.Score = d.Score

	if d.HasMask() {
		t.Mask = d.Mask
		if rot, ok := tr.deriveRotatedBox(d); ok {
			t.RotatedBox = &rot
		}
	}
}

func (tr *Tracker) reactivateTrack(t *Track, d Detection, newID bool) {
	if s, ok := tr.kf.Update(t.Kalman, xyah(d.Box)); ok {
		t.Kalman = s
	}
	t.TrackletLen = 0
	t.State = StateTracked
	t.IsActivated = true
	t.FrameID = tr.frameID
	t.EndFrame = tr.frameID
	if newID {
		t.ID = tr.ids.Next()
	}
	t.Score = d.Score

	if d.HasMask() {
		t.Mask = d.Mask
		if rot, ok := tr.deriveRotatedBox(d); ok {
			t.RotatedBox = &rot
		}
	}
}

func jointTracks(a, b []*Track) []*Track {
	exists := make(map[int64]bool, len(a)+len(b))
	res := make([]*Track, 0, len(a)+len(b))
	for _, t := range a {
		exists[t.ID] = true
		res = append(res, t)
	}
	for _, t := range b {
		if !exists[t.ID] {
			exists[t.ID] = true
			res = append(res, t)
		}
	}
	return res
}

func subTracks(a, b []*Track) []*Track {
	remove := make(map[int64]bool, len(b))
	for _, t := range b {
		remove[t.ID] = true
	}
	res := make([]*Track, 0, len(a))
	for _, t := range a {
		if !remove[t.ID] {
			res = append(res, t)
		}
	}
	return res
}

// removeDuplicates drops whichever of a near-duplicate (tracked, lost) pair
// (IoU > 0.85, i.e. cost < 0.15) has the shorter lifetime-in-state.
func removeDuplicates(tracked, lostList []*Track) ([]*Track, []*Track) {
	dupTracked := make(map[int]bool)
	dupLost := make(map[int]bool)

	for p, a := range tracked {
		for q, b := range lostList {
			cost := 1 - geometry.IoU(a.Box(), b.Box())
			if cost >= 0.15 {
				continue
			}
			timeA := a.FrameID - a.StartFrame
			timeB := b.FrameID - b.StartFrame
			if timeA > timeB {
				dupLost[q] = true
			} else {
				dupTracked[p] = true
			}
		}
	}

	var resTracked, resLost []*Track
	for i, t := range tracked {
		if !dupTracked[i] {
			resTracked = append(resTracked, t)
		}
	}
	for i, t := range lostList {
		if !dupLost[i] {
			resLost = append(resLost, t)
		}
	}
	return resTracked, resLost
}
