package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiateSetsMeanFromMeasurement(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	for i, want := range []float64{100, 200, 0.5, 50} {
		assert.Equal(t, want, s.Mean.AtVec(i))
	}
	for i := 4; i < stateDim; i++ {
		assert.Zero(t, s.Mean.AtVec(i))
	}
}

func TestPredictHoldsPositionWithZeroVelocity(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	predicted := f.Predict(s)

	assert.InDelta(t, 100, predicted.Mean.AtVec(0), 1e-9)
	assert.InDelta(t, 200, predicted.Mean.AtVec(1), 1e-9)
}

func TestPredictAppliesConstantVelocity(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})
	s.Mean.SetVec(4, 10) // vx
	s.Mean.SetVec(5, -5) // vy

	predicted := f.Predict(s)

	assert.InDelta(t, 110, predicted.Mean.AtVec(0), 1e-9)
	assert.InDelta(t, 195, predicted.Mean.AtVec(1), 1e-9)
}

func TestProjectReturnsPositionSubvector(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	mean, cov := f.Project(s)

	require.Equal(t, 4, mean.Len())
	for i, want := range []float64{100, 200, 0.5, 50} {
		assert.Equal(t, want, mean.AtVec(i))
	}
	r, c := cov.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
}

func TestUpdateMovesMeanTowardMeasurement(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})
	predicted := f.Predict(s)

	updated, ok := f.Update(predicted, [4]float64{110, 200, 0.5, 50})
	require.True(t, ok)

	// Correction should move x toward the measurement, never past it,
	// since the prior mean was exactly 100.
	assert.Greater(t, updated.Mean.AtVec(0), 100.0)
	assert.LessOrEqual(t, updated.Mean.AtVec(0), 110.0)
}

func TestGatingDistanceGaussianIsSquaredEuclidean(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	dists, ok := f.GatingDistance(s, [][4]float64{{103, 204, 0.5, 50}}, false, GatingGaussian)
	require.True(t, ok)
	require.Len(t, dists, 1)
	assert.InDelta(t, 3*3+4*4, dists[0], 1e-6)
}

func TestGatingDistanceMahalanobisZeroAtMean(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	dists, ok := f.GatingDistance(s, [][4]float64{{100, 200, 0.5, 50}}, false, GatingMahalanobis)
	require.True(t, ok)
	require.Len(t, dists, 1)
	assert.InDelta(t, 0, dists[0], 1e-6)
}

func TestGatingDistanceOnlyPositionUsesTwoDims(t *testing.T) {
	f := New()
	s := f.Initiate([4]float64{100, 200, 0.5, 50})

	dists, ok := f.GatingDistance(s, [][4]float64{{106, 208, 99, 99}}, true, GatingGaussian)
	require.True(t, ok)
	require.Len(t, dists, 1)
	assert.InDelta(t, math.Pow(6, 2)+math.Pow(8, 2), dists[0], 1e-6)
}
