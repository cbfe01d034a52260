package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesFixedConstants(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.5, cfg.Tracker.TrackThresh)
	assert.Equal(t, 0.8, cfg.Tracker.MatchThresh)
	assert.Equal(t, 1.10, cfg.Material.FirstAlertThreshold)
	assert.Equal(t, 0.99, cfg.FallZone.BottomPointDisappearThreshold)
	assert.Equal(t, 640.0, cfg.FallZone.ImgHeight)
	assert.Equal(t, 0.3, cfg.Vehicle.WarningThreshold)
	assert.Equal(t, 0.6, cfg.Vehicle.DangerThreshold)
	assert.Equal(t, 75.0, cfg.Accident.MotionMagnitudeThreshold)
}

func TestDefaultClassSets(t *testing.T) {
	cfg := Default()

	_, isVehicle := cfg.Classes.VehicleClasses[1]
	assert.True(t, isVehicle)

	_, isMaterial := cfg.Classes.MaterialClasses[3]
	assert.True(t, isMaterial)

	_, isFallZone := cfg.Classes.FallZoneClasses[4]
	assert.True(t, isFallZone)
}

func TestLoadWithoutConfigFileKeepsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Tracker, cfg.Tracker)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadRespectsEnvOverride(t *testing.T) {
	t.Setenv("RISKCORE_LOG_LEVEL", "debug")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
