package material

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/risk"
)

func testConfig() config.MaterialConfig {
	return config.MaterialConfig{
		HistorySize:               30,
		MinFramesForDetection:     5,
		FirstAlertThreshold:       1.10,
		FirstAlertConsecutive:     3,
		SecondAlertRatioFromInit:  1.35,
		SecondAlertRatioFromAlert: 1.25,
		SecondAlertConsecutive:    3,
		MinDetectionConfidence:    0.7,
		MaxMissingFrames:          10,
	}
}

func observe(e *Engine, frame int64, trackID int64, size, score float64) risk.Severity {
	return e.Update(frame, []Observation{{TrackID: trackID, ShorterSide: size, Score: score, HasBox: true}})
}

func TestMaterialEngineNoDetectionsStaysSafe(t *testing.T) {
	e := New(testConfig())
	for f := int64(1); f <= 10; f++ {
		sev := e.Update(f, nil)
		assert.Equal(t, risk.Safe, sev)
	}
}

func TestMaterialEngineStableSizeStaysSafe(t *testing.T) {
	e := New(testConfig())
	var sev risk.Severity
	for f := int64(1); f <= 20; f++ {
		sev = observe(e, f, 1, 100, 0.9)
	}
	assert.Equal(t, risk.Safe, sev)
}

func TestMaterialEngineGrowthEscalatesToWarning(t *testing.T) {
	e := New(testConfig())
	// Establish a baseline over MinFramesForDetection frames.
	for f := int64(1); f <= 5; f++ {
		observe(e, f, 1, 100, 0.9)
	}
	// Grow past FirstAlertThreshold (1.10) for FirstAlertConsecutive frames.
	var sev risk.Severity
	for f := int64(6); f <= 8; f++ {
		sev = observe(e, f, 1, 115, 0.9)
	}
	assert.Equal(t, risk.Warning, sev)
}

func TestMaterialEngineGrowthEscalatesToDanger(t *testing.T) {
	e := New(testConfig())
	for f := int64(1); f <= 5; f++ {
		observe(e, f, 1, 100, 0.9)
	}
	for f := int64(6); f <= 8; f++ {
		observe(e, f, 1, 115, 0.9)
	}
	// Now grow past SecondAlertRatioFromInit (1.35) for SecondAlertConsecutive frames.
	var sev risk.Severity
	for f := int64(9); f <= 11; f++ {
		sev = observe(e, f, 1, 140, 0.9)
	}
	assert.Equal(t, risk.Danger, sev)
}

func TestMaterialEngineLowConfidenceIgnored(t *testing.T) {
	e := New(testConfig())
	for f := int64(1); f <= 20; f++ {
		sev := observe(e, f, 1, 100+float64(f)*10, 0.1) // below MinDetectionConfidence
		assert.Equal(t, risk.Safe, sev)
	}
}

func TestMaterialEngineResetsAfterAbsence(t *testing.T) {
	cfg := testConfig()
	e := New(cfg)
	for f := int64(1); f <= 5; f++ {
		observe(e, f, 1, 100, 0.9)
	}
	for f := int64(6); f <= 8; f++ {
		observe(e, f, 1, 115, 0.9)
	}
	require.Equal(t, risk.Warning, e.tracks[1].status)

	// Absent for MaxMissingFrames frames resets status to SAFE.
	var sev risk.Severity
	for f := int64(9); f <= 9+int64(cfg.MaxMissingFrames); f++ {
		sev = e.Update(f, nil)
	}
	assert.Equal(t, risk.Safe, sev)
}
