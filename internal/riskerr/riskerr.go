// Package riskerr defines the error taxonomy shared across the risk-assessment
// core as four sentinels. internal/transport wraps its frame-decoding
// failures with ErrTransientInput via fmt.Errorf's %w; the underlying cause
// is formatted into the message with %v, so it is not itself unwrappable.
// The tracker, Kalman filter and engines report failures through boolean
// results rather than these sentinels.
package riskerr

import "errors"

// ErrTransientInput covers malformed frame bytes, undersized binary payloads,
// base64 decode failures, empty mask contours, and degenerate trapezoids.
// The affected frame or track is skipped; pipeline state is left untouched.
var ErrTransientInput = errors.New("riskcore: transient input error")

// ErrNumericFailure covers Cholesky failures, RANSAC failures, and
// non-invertible projections. The analytical step takes its "no update"
// branch and state machines retain their previous severity.
var ErrNumericFailure = errors.New("riskcore: numeric failure")

// ErrDetectorFailure covers empty detector output (no boxes). Engines mark
// their trackers as missing for the frame; the accident detector still runs.
var ErrDetectorFailure = errors.New("riskcore: detector failure")

// ErrPipelineFatal covers device disconnect and task cancellation. All
// per-device state is released and no further output is emitted for that
// device.
var ErrPipelineFatal = errors.New("riskcore: pipeline fatal")

// Is reports whether err is classified as sentinel, following the same
// errors.Is contract as the standard library.
func Is(err, sentinel error) bool {
	return errors.Is(err, sentinel)
}
