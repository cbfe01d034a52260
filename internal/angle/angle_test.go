package angle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adverant/nexus/riskcore/internal/config"
)

func TestHistogramMostCommonAngleEmpty(t *testing.T) {
	h := New(config.CameraIntrinsics{})
	assert.Equal(t, 0, h.MostCommonAngle())
	_, ok := h.CurrentAngle()
	assert.False(t, ok)
}

func TestHistogramBucketsToNearestTen(t *testing.T) {
	h := New(config.CameraIntrinsics{})
	h.Update(3)
	h.Update(4)
	h.Update(-2)
	assert.Equal(t, 0, h.MostCommonAngle())

	current, ok := h.CurrentAngle()
	assert.True(t, ok)
	assert.Equal(t, -2.0, current)
}

func TestHistogramTracksLeadingBucket(t *testing.T) {
	h := New(config.CameraIntrinsics{})
	for i := 0; i < 3; i++ {
		h.Update(12) // buckets to 10
	}
	for i := 0; i < 5; i++ {
		h.Update(21) // buckets to 20
	}
	assert.Equal(t, 20, h.MostCommonAngle())

	stats := h.Stats()
	assert.Equal(t, 3, stats[10])
	assert.Equal(t, 5, stats[20])
}

func TestHistogramUpdateWithHomographyNoOpWithoutHomography(t *testing.T) {
	h := New(config.CameraIntrinsics{FX: 300, FY: 300, CX: 320, CY: 240})
	h.UpdateWithHomography()
	assert.Equal(t, 0, h.MostCommonAngle())
	_, ok := h.CurrentAngle()
	assert.False(t, ok)
}
