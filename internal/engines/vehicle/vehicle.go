// Package vehicle implements the heavy-vehicle risk engine: bounding-box
// height growth relative to the first-observed height.
package vehicle

import (
	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

// Observation is one tracked vehicle's axis-aligned box height for the
// frame.
type Observation struct {
	TrackID int64
	Height  float64
	Score   float64
}

type trackerState struct {
	initialHeight     float64
	maxAlertLevel     risk.Severity
	validFrames       int
	consecutiveMisses int
	lastSeenFrame     int64
	hasInitialHeight  bool
}

// Engine owns all per-track VehicleTracker state for one device pipeline.
type Engine struct {
	cfg    config.VehicleConfig
	tracks map[int64]*trackerState
}

// New builds a vehicle engine from the given fixed configuration.
func New(cfg config.VehicleConfig) *Engine {
	return &Engine{cfg: cfg, tracks: make(map[int64]*trackerState)}
}

// Update advances the engine by one frame and returns the maximum
// max_alert_level across all active trackers.
func (e *Engine) Update(frame int64, observed []Observation) risk.Severity {
	seen := make(map[int64]bool, len(observed))

	for _, obs := range observed {
		seen[obs.TrackID] = true
		st, ok := e.tracks[obs.TrackID]
		if !ok {
			// The creation frame only records the initial height; valid_frames
			// starts at 0 and is incremented starting with the next observation.
			st = &trackerState{initialHeight: maxFloat(obs.Height, 1), hasInitialHeight: true, lastSeenFrame: frame}
			e.tracks[obs.TrackID] = st
			continue
		}
		e.observe(st, frame, obs)
	}

	for id, st := range e.tracks {
		if seen[id] {
			continue
		}
		st.consecutiveMisses++
		if st.consecutiveMisses == e.cfg.UserLookedAwayFrames {
			st.maxAlertLevel = risk.Safe
		}
		if frame-st.lastSeenFrame > int64(e.cfg.MaxAge) {
			delete(e.tracks, id)
		}
	}

	var maxStatus risk.Severity
	for _, st := range e.tracks {
		maxStatus = risk.Max(maxStatus, st.maxAlertLevel)
	}
	return maxStatus
}

func (e *Engine) observe(st *trackerState, frame int64, obs Observation) {
	st.lastSeenFrame = frame
	st.consecutiveMisses = 0

	if obs.Score < e.cfg.MinDetectionConfidence {
		return
	}

	st.validFrames++
	if st.validFrames < e.cfg.MinValidFrames {
		return
	}

	growth := (obs.Height - st.initialHeight) / st.initialHeight

	switch st.maxAlertLevel {
	case risk.Safe:
		if growth > e.cfg.WarningThreshold {
			st.maxAlertLevel = risk.Warning
		}
	case risk.Warning:
		if growth > e.cfg.DangerThreshold {
			st.maxAlertLevel = risk.Danger
		}
	case risk.Danger:
		// max_alert_level never regresses except via the looked-away reset.
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
