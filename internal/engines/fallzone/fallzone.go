// Package fallzone implements the stairs/fall-zone risk engine: trapezoid
// extraction from a mask's quadrants, vanishing-point geometry, and
// descending-stair direction scoring.
package fallzone

import (
	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/geometry"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

// Descending is a tri-state "unknown / true / false".
type Descending int

const (
	DescendingUnknown Descending = iota
	DescendingTrue
	DescendingFalse
)

// Observation is one tracked fall-zone object's mask pixels for the frame.
// A nil/empty MaskPixels means the track was observed but produced no
// usable trapezoid this frame (still counts as "present", distinct from
// the track being entirely absent).
type Observation struct {
	TrackID    int64
	MaskPixels []geometry.Point
}

type trackerState struct {
	descendingScore      int
	isDescending         Descending
	status               risk.Severity
	firstAlertBottomLeft geometry.Point
	firstAlertBottomRight geometry.Point
	hasFirstAlertPoints  bool
	missingFrameCount    int
	lastSeenFrame        int64
}

// Engine owns all per-track FallZoneTracker state for one device pipeline.
type Engine struct {
	cfg config.FallZoneConfig
	tracks map[int64]*trackerState
}

// New builds a fall-zone engine from the given fixed configuration.
func New(cfg config.FallZoneConfig) *Engine {
	return &Engine{cfg: cfg, tracks: make(map[int64]*trackerState)}
}

// Update advances the engine by one frame and returns the maximum severity
// across all active trackers.
func (e *Engine) Update(frame int64, observed []Observation) risk.Severity {
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
		st.missingFrameCount++
		if st.missingFrameCount >= e.cfg.MaxMissingFrames {
			st.isDescending = DescendingUnknown
			st.descendingScore = 0
			st.status = risk.Safe
		}
		if frame-st.lastSeenFrame > int64(e.cfg.MaxAge) {
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
	st.missingFrameCount = 0

	trap, ok := geometry.QuadrantExtract(obs.MaskPixels)
	if !ok {
		return
	}

	rightDeg, leftDeg := trap.LateralAngles()
	if !geometry.IsValidStairShape(rightDeg, leftDeg) {
		return
	}

	vp, ok := geometry.VanishingPoint(trap)
	if !ok {
		return
	}

	cy := (trap.BottomLeft.Y + trap.BottomRight.Y) / 2
	refY := geometry.ReferenceY(cy, e.cfg.ImgHeight, e.cfg.StairLandingHeight, e.cfg.StairAngleDeg)

	if refY < vp.Y {
		st.descendingScore++
	} else {
		st.descendingScore--
	}

	switch {
	case st.descendingScore > 0:
		st.isDescending = DescendingTrue
	case st.descendingScore < 0:
		st.isDescending = DescendingFalse
	}

	if st.isDescending != DescendingTrue {
		return
	}

	switch st.status {
	case risk.Safe:
		if st.descendingScore >= e.cfg.FirstAlertScoreThreshold {
			st.status = risk.Warning
			st.firstAlertBottomLeft = trap.BottomLeft
			st.firstAlertBottomRight = trap.BottomRight
			st.hasFirstAlertPoints = true
		}
	case risk.Warning:
		disappearY := e.cfg.BottomPointDisappearThreshold * e.cfg.ImgHeight
		if trap.BottomRight.Y >= disappearY || trap.BottomLeft.Y >= disappearY {
			st.status = risk.Danger
			return
		}
		if st.hasFirstAlertPoints {
			movedRight := st.firstAlertBottomRight.Y-trap.BottomRight.Y >= e.cfg.BottomPointDistance
			movedLeft := st.firstAlertBottomLeft.Y-trap.BottomLeft.Y >= e.cfg.BottomPointDistance
			if movedRight || movedLeft {
				st.status = risk.Danger
			}
		}
	case risk.Danger:
		// terminal until absence-based reset
	}
}
