// Package material implements the construction-materials risk engine: an
// object growing in frame (its rotated box's shorter side increasing
// relative to a stabilized baseline) signals a material about to topple
// toward the camera.
package material

import (
	"sort"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

// Observation is one tracked material object's geometry for the frame.
type Observation struct {
	TrackID     int64
	ShorterSide float64
	Score       float64
	HasBox      bool // false when no rotated box was derived this frame
}

type sizeSample struct {
	frame int64
	size  float64
}

// trackerState is the per-track state held by the engine.
type trackerState struct {
	history                 []sizeSample
	initialReferenceSize    float64
	hasInitialReferenceSize bool
	firstAlertReferenceSize float64
	status                  risk.Severity
	warningFrameCount       int
	dangerFrameCount        int
	consecutiveMisses       int
	lastSeenFrame           int64
}

// Engine owns all per-track state for one device pipeline. It is not safe
// for concurrent use; the pipeline gives each engine exclusive ownership
// of its own map.
type Engine struct {
	cfg    config.MaterialConfig
	tracks map[int64]*trackerState
	frame  int64
}

// New builds a material engine from the given fixed configuration.
func New(cfg config.MaterialConfig) *Engine {
	return &Engine{cfg: cfg, tracks: make(map[int64]*trackerState)}
}

// Update advances the engine by one frame given the current frame's
// observed material tracks (already class-routed by the tracker) and
// returns the maximum severity across all active trackers.
func (e *Engine) Update(frame int64, observed []Observation) risk.Severity {
	e.frame = frame
	seen := make(map[int64]bool, len(observed))

	for _, obs := range observed {
		seen[obs.TrackID] = true
		st, ok := e.tracks[obs.TrackID]
		if !ok {
			st = &trackerState{}
			e.tracks[obs.TrackID] = st
		}
		e.observe(st, frame, obs)
	}

	for id, st := range e.tracks {
		if seen[id] {
			continue
		}
		st.consecutiveMisses++
		if st.consecutiveMisses >= e.cfg.MaxMissingFrames {
			st.status = risk.Safe
			st.firstAlertReferenceSize = 0
			st.warningFrameCount = 0
			st.dangerFrameCount = 0
		}
		if frame-st.lastSeenFrame > int64(e.cfg.MaxMissingFrames*6) {
			delete(e.tracks, id)
		}
	}

	var maxStatus risk.Severity
	for _, st := range e.tracks {
		maxStatus = risk.Max(maxStatus, st.status)
	}
	return maxStatus
}

func (e *Engine) observe(st *trackerState, frame int64, obs Observation) {
	st.lastSeenFrame = frame
	st.consecutiveMisses = 0

	if !obs.HasBox || obs.Score < e.cfg.MinDetectionConfidence {
		return
	}

	st.history = append(st.history, sizeSample{frame: frame, size: obs.ShorterSide})
	if len(st.history) > e.cfg.HistorySize {
		st.history = st.history[len(st.history)-e.cfg.HistorySize:]
	}

	if !st.hasInitialReferenceSize {
		if len(st.history) < e.cfg.MinFramesForDetection {
			return
		}
		if len(st.history) == e.cfg.MinFramesForDetection {
			st.initialReferenceSize = interquartileMedian(st.history)
			st.hasInitialReferenceSize = true
		}
		return
	}

	latest := obs.ShorterSide
	ratio := latest / st.initialReferenceSize

	switch st.status {
	case risk.Safe:
		if ratio >= e.cfg.FirstAlertThreshold {
			st.warningFrameCount++
			if st.warningFrameCount >= e.cfg.FirstAlertConsecutive {
				st.status = risk.Warning
				st.firstAlertReferenceSize = latest
				st.warningFrameCount = 0
			}
		} else {
			st.warningFrameCount = 0
		}
	case risk.Warning:
		ratioFromAlert := latest / st.firstAlertReferenceSize
		if ratioFromAlert >= e.cfg.SecondAlertRatioFromAlert || ratio >= e.cfg.SecondAlertRatioFromInit {
			st.dangerFrameCount++
			if st.dangerFrameCount >= e.cfg.SecondAlertConsecutive {
				st.status = risk.Danger
				st.dangerFrameCount = 0
			}
		} else {
			st.dangerFrameCount = 0
		}
	case risk.Danger:
		// Terminal for this observation window; only absence-based reset
		// (handled in Update) returns the tracker to SAFE.
	}
}

// interquartileMedian computes an IQR-filtered median:
// Q1 at index n/4, Q3 at 3n/4, keep values within [Q1-1.5*IQR, Q3+1.5*IQR],
// take the median of the filtered set, falling back to the raw median if
// filtering empties it.
func interquartileMedian(samples []sizeSample) float64 {
	sizes := make([]float64, len(samples))
	for i, s := range samples {
		sizes[i] = s.size
	}
	sort.Float64s(sizes)

	n := len(sizes)
	q1 := sizes[n/4]
	q3 := sizes[3*n/4]
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	var filtered []float64
	for _, v := range sizes {
		if v >= lower && v <= upper {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return median(sizes)
	}
	return median(filtered)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
