// Package models holds the ambient data types that cross package
// boundaries in riskcore: the wire frame envelope, the per-frame input
// bundle assembled from the (out-of-scope) detector/preprocessor, and the
// downstream risk event.
package models

import (
	"strconv"
	"time"

	"github.com/adverant/nexus/riskcore/internal/geometry"
	"gocv.io/x/gocv"
	"github.com/google/uuid"
)

// FrameEnvelope is the decoded form of the wire payload: either a 4-byte
// LE capture-interval-ms prefix followed by JPEG bytes, or a base64 data
// URI, in which case CaptureIntervalMS is the caller-assigned default.
type FrameEnvelope struct {
	DeviceID          string
	CaptureIntervalMS int64
	JPEG              []byte
	ReceivedAt        time.Time
}

// RawDetection is one box+score+class(+mask) observation handed to the
// tracker for a frame, as produced by the upstream detector adapter.
type RawDetection struct {
	Box     geometry.Box
	Score   float64
	ClassID int
	Mask    gocv.Mat // zero value (Empty()==true) when no mask was produced
}

// FrameInput bundles everything a Pipeline needs to process one frame: the
// decoded detections, the preprocessed grayscale frame for the accident
// detector, and the scale factor the detector's resized frame was run at.
type FrameInput struct {
	FrameSeq          int64
	Detections        []RawDetection
	Gray              gocv.Mat
	Scale             float64
	CaptureIntervalMS float64
}

// RiskEvent is the orchestrator's output, handed to the notifier's
// notify(device_id, risk_code, optional event_blob_key) contract.
type RiskEvent struct {
	DeviceID          string
	FrameSeq          int64
	RiskCode          int
	CaptureIntervalMS int64
	EventBlobKey      *string
}

// EventBlobKey formats the event-blob key convention:
// device:{device_id}:event:{epoch_ms}.
func EventBlobKey(deviceID string, epochMS int64) string {
	return "device:" + deviceID + ":event:" + strconv.FormatInt(epochMS, 10)
}

// NewEventID generates a unique identifier for a persisted risk event.
func NewEventID() string {
	return uuid.New().String()
}
