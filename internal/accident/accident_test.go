package accident

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
	"gocv.io/x/gocv"
)

func testConfig() config.AccidentConfig {
	return config.AccidentConfig{
		MotionMagnitudeThreshold: 75.0,
		SafeThreshold:            3,
		HistoryLen:               20,
		BaseIntervalMS:           1000.0 / 7.0,
	}
}

func TestMeanMagnitudeEmpty(t *testing.T) {
	assert.Zero(t, meanMagnitude(nil, nil))
}

func TestMeanMagnitudeComputesAverageDistance(t *testing.T) {
	old := []gocv.Point2f{{X: 0, Y: 0}, {X: 0, Y: 0}}
	nw := []gocv.Point2f{{X: 3, Y: 4}, {X: 6, Y: 8}}
	// distances 5 and 10, mean 7.5
	assert.InDelta(t, 7.5, meanMagnitude(old, nw), 1e-9)
}

func TestDetectorStaysSafeBelowThreshold(t *testing.T) {
	d := New(testConfig())
	for i := 0; i < 5; i++ {
		d.pushHistory(10)
		d.updateStatus()
	}
	assert.Equal(t, risk.AccidentSafe, d.detected)
}

func TestDetectorEscalatesOnSustainedHighMotion(t *testing.T) {
	d := New(testConfig())
	for i := 0; i < 5; i++ {
		d.pushHistory(200)
		d.updateStatus()
	}
	assert.Equal(t, risk.AccidentIncident, d.detected)
}

func TestDetectorNeedsFiveSamplesBeforeDeciding(t *testing.T) {
	d := New(testConfig())
	for i := 0; i < 4; i++ {
		d.pushHistory(200)
		d.updateStatus()
	}
	assert.Equal(t, risk.AccidentSafe, d.detected, "fewer than 5 history samples must not trigger a decision")
}

func TestDetectorRecoversAfterSafeThreshold(t *testing.T) {
	cfg := testConfig()
	d := New(cfg)
	for i := 0; i < 5; i++ {
		d.pushHistory(200)
		d.updateStatus()
	}
	assert.Equal(t, risk.AccidentIncident, d.detected)

	// Sustained calm motion flushes the high-motion samples out of the
	// rolling 5-sample window, then SafeThreshold consecutive calm
	// decisions return the detector to SAFE.
	for i := 0; i < 10; i++ {
		d.pushHistory(1)
		d.updateStatus()
	}
	assert.Equal(t, risk.AccidentSafe, d.detected)
}

func TestHistoryBoundedToConfiguredLength(t *testing.T) {
	cfg := testConfig()
	d := New(cfg)
	for i := 0; i < cfg.HistoryLen+10; i++ {
		d.pushHistory(float64(i))
	}
	assert.Len(t, d.history, cfg.HistoryLen)
}
