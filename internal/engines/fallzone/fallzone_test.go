package fallzone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/geometry"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

func testConfig() config.FallZoneConfig {
	return config.FallZoneConfig{
		FirstAlertScoreThreshold:      2,
		BottomPointDisappearThreshold: 0.99,
		MaxMissingFrames:              14,
		BottomPointDistance:           15,
		ImgHeight:                     640,
		StairAngleDeg:                 35,
		StairLandingHeight:            287,
		MaxAge:                        70,
	}
}

// descendingPixels is a synthetic wide-base-at-bottom, narrow-at-top mask
// with its vanishing point below the computed reference y, which the engine
// reads as a descending staircase.
func descendingPixels(bottomY float64) []geometry.Point {
	return []geometry.Point{
		{X: 380, Y: 100},
		{X: 420, Y: 100},
		{X: 200, Y: bottomY},
		{X: 600, Y: bottomY},
	}
}

func TestFallZoneEngineNoMaskStaysSafe(t *testing.T) {
	e := New(testConfig())
	for f := int64(1); f <= 5; f++ {
		sev := e.Update(f, []Observation{{TrackID: 1, MaskPixels: nil}})
		assert.Equal(t, risk.Safe, sev)
	}
}

func TestFallZoneEngineDescendingEscalatesToWarning(t *testing.T) {
	e := New(testConfig())
	pixels := descendingPixels(500)

	sev := e.Update(1, []Observation{{TrackID: 1, MaskPixels: pixels}})
	assert.Equal(t, risk.Safe, sev, "single descending frame should not yet reach the score threshold")

	sev = e.Update(2, []Observation{{TrackID: 1, MaskPixels: pixels}})
	assert.Equal(t, risk.Warning, sev)
}

func TestFallZoneEngineBottomPointMovementEscalatesToDanger(t *testing.T) {
	e := New(testConfig())
	pixels := descendingPixels(500)
	e.Update(1, []Observation{{TrackID: 1, MaskPixels: pixels}})
	e.Update(2, []Observation{{TrackID: 1, MaskPixels: pixels}})
	require.Equal(t, risk.Warning, e.tracks[1].status)

	// Bottom points move up by >= BottomPointDistance from the first-alert
	// position.
	moved := descendingPixels(480)
	sev := e.Update(3, []Observation{{TrackID: 1, MaskPixels: moved}})
	assert.Equal(t, risk.Danger, sev)
}

func TestFallZoneEngineBottomPointDisappearEscalatesToDanger(t *testing.T) {
	e := New(testConfig())
	pixels := descendingPixels(500)
	e.Update(1, []Observation{{TrackID: 1, MaskPixels: pixels}})
	e.Update(2, []Observation{{TrackID: 1, MaskPixels: pixels}})
	require.Equal(t, risk.Warning, e.tracks[1].status)

	// Bottom point crosses the disappearance threshold (0.99 * 640 = 633.6).
	disappearing := descendingPixels(635)
	sev := e.Update(3, []Observation{{TrackID: 1, MaskPixels: disappearing}})
	assert.Equal(t, risk.Danger, sev)
}

func TestFallZoneEngineResetsAfterAbsence(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	pixels := descendingPixels(500)
	e.Update(1, []Observation{{TrackID: 1, MaskPixels: pixels}})
	e.Update(2, []Observation{{TrackID: 1, MaskPixels: pixels}})
	require.Equal(t, risk.Warning, e.tracks[1].status)

	var sev risk.Severity
	for f := int64(3); f <= 2+int64(cfg.MaxMissingFrames); f++ {
		sev = e.Update(f, nil)
	}
	assert.Equal(t, risk.Safe, sev)
}
