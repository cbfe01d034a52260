// Package kalman implements the 8-dimensional constant-velocity Kalman
// filter used to predict and correct track bounding boxes in xyah form
// (center x, center y, aspect ratio, height, plus their velocities),
// grounded on the ByteTrack KalmanFilter reference implementation. Matrix
// operations are backed by gonum instead of hand-rolled linear algebra.
package kalman

import (
	"gonum.org/v1/gonum/mat"
)

const ndim = 4
const stateDim = 2 * ndim

// Chi2inv95 is the 95% inverse chi-square table used for gating distance
// thresholds, indexed by degrees of freedom.
var Chi2inv95 = map[int]float64{
	1: 3.8415,
	2: 5.9915,
	3: 7.8147,
	4: 9.4877,
	5: 11.070,
	6: 12.592,
	7: 14.067,
	8: 15.507,
	9: 16.919,
}

// Filter is the 8D Kalman filter over (x, y, a, h, vx, vy, va, vh).
type Filter struct {
	motionMat *mat.Dense // 8x8
	updateMat *mat.Dense // 4x8

	stdWeightPosition float64
	stdWeightVelocity float64
}

// New builds a Filter with Δt=1 and ByteTrack's standard position/velocity
// noise weights.
func New() *Filter {
	motion := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		motion.Set(i, i, 1)
	}
	for i := 0; i < ndim; i++ {
		motion.Set(i, ndim+i, 1) // dt = 1
	}

	update := mat.NewDense(ndim, stateDim, nil)
	for i := 0; i < ndim; i++ {
		update.Set(i, i, 1)
	}

	return &Filter{
		motionMat:         motion,
		updateMat:         update,
		stdWeightPosition: 1.0 / 20,
		stdWeightVelocity: 1.0 / 160,
	}
}

// State is the filter's mean vector and covariance for a single track.
type State struct {
	Mean       *mat.VecDense // length 8
	Covariance *mat.Dense    // 8x8
}

// Initiate creates a new track's filter state from an (x,y,a,h) measurement.
func (f *Filter) Initiate(measurement [4]float64) State {
	mean := mat.NewVecDense(stateDim, nil)
	for i := 0; i < ndim; i++ {
		mean.SetVec(i, measurement[i])
	}

	h := measurement[3]
	std := [stateDim]float64{
		2 * f.stdWeightPosition * h,
		2 * f.stdWeightPosition * h,
		1e-2,
		2 * f.stdWeightPosition * h,
		10 * f.stdWeightVelocity * h,
		10 * f.stdWeightVelocity * h,
		1e-5,
		10 * f.stdWeightVelocity * h,
	}
	cov := diagSquare(std[:])
	return State{Mean: mean, Covariance: cov}
}

// Predict advances the state one frame under the constant-velocity model.
func (f *Filter) Predict(s State) State {
	h := s.Mean.AtVec(3)
	stdPos := []float64{
		f.stdWeightPosition * h,
		f.stdWeightPosition * h,
		1e-2,
		f.stdWeightPosition * h,
	}
	stdVel := []float64{
		f.stdWeightVelocity * h,
		f.stdWeightVelocity * h,
		1e-5,
		f.stdWeightVelocity * h,
	}
	motionCov := diagSquare(append(stdPos, stdVel...))

	var newMean mat.VecDense
	newMean.MulVec(f.motionMat, s.Mean)

	var tmp, newCov mat.Dense
	tmp.Mul(f.motionMat, s.Covariance)
	newCov.Mul(&tmp, f.motionMat.T())
	newCov.Add(&newCov, motionCov)

	return State{Mean: &newMean, Covariance: &newCov}
}

// Project projects the state into the 4D measurement space, adding the
// fixed measurement-noise covariance.
func (f *Filter) Project(s State) (mean *mat.VecDense, cov *mat.Dense) {
	h := s.Mean.AtVec(3)
	std := []float64{
		f.stdWeightPosition * h,
		f.stdWeightPosition * h,
		1e-1,
		f.stdWeightPosition * h,
	}
	innovationCov := diagSquare(std)

	projMean := mat.NewVecDense(ndim, nil)
	projMean.MulVec(f.updateMat, s.Mean)

	var tmp, projCov mat.Dense
	tmp.Mul(f.updateMat, s.Covariance)
	projCov.Mul(&tmp, f.updateMat.T())
	projCov.Add(&projCov, innovationCov)

	return projMean, &projCov
}

// Update performs the Kalman correction step using a Cholesky solve of the
// projected covariance to obtain the Kalman gain, mirroring the reference
// implementation's scipy.linalg.cho_factor/cho_solve usage.
func (f *Filter) Update(s State, measurement [4]float64) (State, bool) {
	projMean, projCov := f.Project(s)

	var chol mat.Cholesky
	if ok := chol.Factorize(asSymDense(projCov)); !ok {
		return s, false
	}

	// kalmanGain^T = cho_solve(projCov, (covariance * updateMat^T)^T)
	var covUT mat.Dense
	covUT.Mul(s.Covariance, f.updateMat.T())

	var kalmanGainT mat.Dense
	if err := chol.SolveTo(&kalmanGainT, covUT.T()); err != nil {
		return s, false
	}

	meas := mat.NewVecDense(ndim, measurement[:])
	var innovation mat.VecDense
	innovation.SubVec(meas, projMean)

	var delta mat.VecDense
	delta.MulVec(kalmanGainT.T(), &innovation)

	var newMean mat.VecDense
	newMean.AddVec(s.Mean, &delta)

	var kgProjCov, kgProjCovKgT mat.Dense
	kgProjCov.Mul(kalmanGainT.T(), projCov)
	kgProjCovKgT.Mul(&kgProjCov, &kalmanGainT)

	var newCov mat.Dense
	newCov.Sub(s.Covariance, &kgProjCovKgT)

	return State{Mean: &newMean, Covariance: &newCov}, true
}

// GatingMetric selects the distance metric used by GatingDistance.
type GatingMetric int

const (
	GatingGaussian GatingMetric = iota
	GatingMahalanobis
)

// GatingDistance computes the squared distance between the state and each
// of a set of measurements, in either squared-Euclidean ("gaussian") or
// squared-Mahalanobis ("maha") form.
func (f *Filter) GatingDistance(s State, measurements [][4]float64, onlyPosition bool, metric GatingMetric) ([]float64, bool) {
	projMean, projCov := f.Project(s)

	dim := ndim
	if onlyPosition {
		dim = 2
	}

	meanSlice := make([]float64, dim)
	for i := 0; i < dim; i++ {
		meanSlice[i] = projMean.AtVec(i)
	}
	covSub := projCov.Slice(0, dim, 0, dim).(*mat.Dense)

	diffs := make([][]float64, len(measurements))
	for i, m := range measurements {
		d := make([]float64, dim)
		for j := 0; j < dim; j++ {
			d[j] = m[j] - meanSlice[j]
		}
		diffs[i] = d
	}

	out := make([]float64, len(measurements))
	switch metric {
	case GatingGaussian:
		for i, d := range diffs {
			var sum float64
			for _, v := range d {
				sum += v * v
			}
			out[i] = sum
		}
		return out, true
	case GatingMahalanobis:
		var chol mat.Cholesky
		if ok := chol.Factorize(asSymDense(covSub)); !ok {
			return nil, false
		}
		var lower mat.TriDense
		chol.LTo(&lower)

		for i, d := range diffs {
			z := mat.NewVecDense(dim, nil)
			dv := mat.NewVecDense(dim, d)
			if err := z.SolveVec(&lower, dv); err != nil {
				return nil, false
			}
			var sum float64
			for j := 0; j < dim; j++ {
				sum += z.AtVec(j) * z.AtVec(j)
			}
			out[i] = sum
		}
		return out, true
	default:
		return nil, false
	}
}

func diagSquare(std []float64) *mat.Dense {
	n := len(std)
	d := mat.NewDense(n, n, nil)
	for i, v := range std {
		d.Set(i, i, v*v)
	}
	return d
}

func asSymDense(d *mat.Dense) mat.Symmetric {
	r, _ := d.Dims()
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			v := (d.At(i, j) + d.At(j, i)) / 2
			sym.SetSym(i, j, v)
		}
	}
	return sym
}
