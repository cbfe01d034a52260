package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

func testConfig() config.VehicleConfig {
	return config.VehicleConfig{
		WarningThreshold:       0.3,
		DangerThreshold:        0.6,
		MinDetectionConfidence: 0.5,
		UserLookedAwayFrames:   7,
		MaxAge:                 30,
		MinValidFrames:         2,
	}
}

func TestVehicleEngineNoDetectionsStaysSafe(t *testing.T) {
	e := New(testConfig())
	for f := int64(1); f <= 5; f++ {
		assert.Equal(t, risk.Safe, e.Update(f, nil))
	}
}

func TestVehicleEngineStableHeightStaysSafe(t *testing.T) {
	e := New(testConfig())
	var sev risk.Severity
	for f := int64(1); f <= 10; f++ {
		sev = e.Update(f, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	}
	assert.Equal(t, risk.Safe, sev)
}

func TestVehicleEngineGrowthEscalatesToWarningThenDanger(t *testing.T) {
	e := New(testConfig())
	// Frame 1 records the initial height and frame 2 is the first valid
	// frame; the MinValidFrames gate is met from frame 3.
	e.Update(1, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	sev := e.Update(2, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	assert.Equal(t, risk.Safe, sev)

	// growth = (135-100)/100 = 0.35 > WarningThreshold(0.3)
	sev = e.Update(3, []Observation{{TrackID: 1, Height: 135, Score: 0.9}})
	assert.Equal(t, risk.Warning, sev)

	// growth = (170-100)/100 = 0.70 > DangerThreshold(0.6)
	sev = e.Update(4, []Observation{{TrackID: 1, Height: 170, Score: 0.9}})
	assert.Equal(t, risk.Danger, sev)
}

func TestVehicleEngineLowConfidenceIgnored(t *testing.T) {
	e := New(testConfig())
	e.Update(1, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	e.Update(2, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	sev := e.Update(3, []Observation{{TrackID: 1, Height: 300, Score: 0.1}})
	assert.Equal(t, risk.Safe, sev)
}

func TestVehicleEngineLookedAwayResetsDanger(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	e.Update(1, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	e.Update(2, []Observation{{TrackID: 1, Height: 100, Score: 0.9}})
	e.Update(3, []Observation{{TrackID: 1, Height: 170, Score: 0.9}})
	sev := e.Update(4, []Observation{{TrackID: 1, Height: 300, Score: 0.9}})
	assert.Equal(t, risk.Danger, sev)

	var last risk.Severity
	for f := int64(5); f <= 4+int64(cfg.UserLookedAwayFrames); f++ {
		last = e.Update(f, nil)
	}
	assert.Equal(t, risk.Safe, last)
}
