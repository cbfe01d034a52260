// Package pipeline wires one device's tracker, three per-class risk
// engines, accident detector, and angle histogram into the per-frame
// fusion: the tracking+per-class path and the accident path run
// concurrently, the three per-class engines run concurrently within the
// first path, and the orchestrator folds the two paths' outputs into a
// single risk code.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/riskcore/internal/accident"
	"github.com/adverant/nexus/riskcore/internal/angle"
	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/engines/fallzone"
	"github.com/adverant/nexus/riskcore/internal/engines/material"
	"github.com/adverant/nexus/riskcore/internal/engines/vehicle"
	"github.com/adverant/nexus/riskcore/internal/geometry"
	"github.com/adverant/nexus/riskcore/internal/models"
	"github.com/adverant/nexus/riskcore/internal/orchestrator"
	"github.com/adverant/nexus/riskcore/internal/risk"
	"github.com/adverant/nexus/riskcore/internal/tracking"
)

// Pipeline owns one device's entire risk-assessment state: the tracker,
// the three per-class engines, the accident detector and its angle
// histogram, and a latest-frame-wins backpressure slot.
type Pipeline struct {
	deviceID string
	cfg      config.Config
	log      *logrus.Entry

	tracker   *tracking.Tracker
	material  *material.Engine
	fallZone  *fallzone.Engine
	vehicle   *vehicle.Engine
	accidentD *accident.Detector
	angleHist *angle.Histogram

	enginePool *pond.WorkerPool

	mu             sync.Mutex
	pending        *models.FrameInput
	pendingAccumMS float64
	hasPending     bool
	notify         chan struct{}
}

// trackIDs is the process-wide track-id allocator shared by every device's
// tracker, so track ids are never reused across devices.
var trackIDs = tracking.NewIDAllocator()

// New builds a Pipeline for one device. frameRate feeds the tracker's
// track-buffer-to-frames conversion.
func New(deviceID string, cfg config.Config, frameRate float64, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	ids := trackIDs
	return &Pipeline{
		deviceID: deviceID,
		cfg:      cfg,
		log:      log.WithField("device_id", deviceID),

		tracker: tracking.New(ids, tracking.Config{
			TrackThresh:       cfg.Tracker.TrackThresh,
			TrackBuffer:       cfg.Tracker.TrackBuffer,
			MatchThresh:       cfg.Tracker.MatchThresh,
			MOT20:             cfg.Tracker.MOT20,
			PositionWeight:    cfg.Tracker.PositionW,
			MaxCenterDist:     cfg.Tracker.MaxCenterDist,
			RotatedBoxClasses: cfg.Classes.SpecificClasses,
		}, frameRate),
		material:  material.New(cfg.Material),
		fallZone:  fallzone.New(cfg.FallZone),
		vehicle:   vehicle.New(cfg.Vehicle),
		accidentD: accident.New(cfg.Accident),
		angleHist: angle.New(cfg.Intrinsics),

		enginePool: pond.New(3, 3, pond.MinWorkers(3)),
		notify:     make(chan struct{}, 1),
	}
}

// Close releases the pipeline's OpenCV resources and stops its worker pool.
func (p *Pipeline) Close() {
	p.enginePool.StopAndWait()
	p.accidentD.Close()
}

// Submit installs input as the pipeline's pending frame, implementing a
// latest-frame-wins backpressure policy: a frame that arrives while a
// previous one is still pending replaces it, folding the replaced frame's
// capture interval into the new frame's so the engines' frame-rate
// normalization stays correct.
func (p *Pipeline) Submit(input models.FrameInput) {
	p.mu.Lock()
	if p.hasPending {
		input.CaptureIntervalMS += p.pendingAccumMS
	}
	p.pending = &input
	p.pendingAccumMS = input.CaptureIntervalMS
	p.hasPending = true
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// take removes and returns the current pending frame, if any.
func (p *Pipeline) take() (models.FrameInput, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasPending {
		return models.FrameInput{}, false
	}
	input := *p.pending
	p.pending = nil
	p.hasPending = false
	p.pendingAccumMS = 0
	return input, true
}

// Run drains pending frames until ctx is cancelled, invoking onEvent for
// each frame's fused risk event.
func (p *Pipeline) Run(ctx context.Context, onEvent func(models.RiskEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.notify:
			input, ok := p.take()
			if !ok {
				continue
			}
			event := p.processFrame(ctx, input)
			onEvent(event)
		}
	}
}

// processFrame runs the tracked path (tracker + three-engine fan-out) and
// the accident path in parallel; their outputs are fused once both
// complete.
func (p *Pipeline) processFrame(ctx context.Context, input models.FrameInput) models.RiskEvent {
	var sev orchestrator.EngineSeverities
	var accidentState risk.AccidentState

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		sev = p.runTrackedPath(input)
		return nil
	})
	g.Go(func() error {
		accidentState = p.runAccidentPath(input)
		return nil
	})
	_ = g.Wait()

	riskCode := orchestrator.Fuse(sev, accidentState)

	event := models.RiskEvent{
		DeviceID:          p.deviceID,
		FrameSeq:          input.FrameSeq,
		RiskCode:          riskCode,
		CaptureIntervalMS: int64(input.CaptureIntervalMS),
	}
	if key := blobKeyFor(p.deviceID, time.Now().UnixMilli(), riskCode); key != "" {
		event.EventBlobKey = &key
	}
	return event
}

// runTrackedPath runs the tracker, routes tracks by class, and fans the
// three per-class engines out across the fixed worker pool.
func (p *Pipeline) runTrackedPath(input models.FrameInput) orchestrator.EngineSeverities {
	dets := make([]tracking.Detection, len(input.Detections))
	for i, d := range input.Detections {
		dets[i] = tracking.Detection{Box: d.Box, Score: d.Score, ClassID: d.ClassID, Mask: d.Mask}
	}

	tracks := p.tracker.Update(dets, input.Scale)
	groups := tracking.RouteByClass(tracks, p.cfg.Classes.VehicleClasses, p.cfg.Classes.MaterialClasses, p.cfg.Classes.FallZoneClasses)

	frame := input.FrameSeq

	var wg sync.WaitGroup
	var materialSev, fallZoneSev, vehicleSev risk.Severity

	wg.Add(3)
	p.enginePool.Submit(func() {
		defer wg.Done()
		materialSev = p.material.Update(frame, materialObservations(groups.Material))
	})
	p.enginePool.Submit(func() {
		defer wg.Done()
		fallZoneSev = p.fallZone.Update(frame, fallZoneObservations(groups.FallZone))
	})
	p.enginePool.Submit(func() {
		defer wg.Done()
		vehicleSev = p.vehicle.Update(frame, vehicleObservations(groups.Vehicle))
	})
	wg.Wait()

	return orchestrator.EngineSeverities{Material: materialSev, FallZone: fallZoneSev, Vehicle: vehicleSev}
}

// runAccidentPath runs optical-flow accident detection on the frame's
// preprocessed grayscale image and feeds the homography decomposition into
// the device's angle histogram.
func (p *Pipeline) runAccidentPath(input models.FrameInput) risk.AccidentState {
	if input.Gray.Empty() {
		return risk.AccidentSafe
	}
	state := p.accidentD.Detect(input.Gray, input.CaptureIntervalMS, p.angleHist)
	p.angleHist.UpdateWithHomography()
	return state
}

func materialObservations(tracks []*tracking.Track) []material.Observation {
	out := make([]material.Observation, len(tracks))
	for i, t := range tracks {
		obs := material.Observation{TrackID: t.ID, Score: t.Score}
		if t.RotatedBox != nil {
			obs.HasBox = true
			obs.ShorterSide = t.RotatedBox.ShorterSide()
		}
		out[i] = obs
	}
	return out
}

func fallZoneObservations(tracks []*tracking.Track) []fallzone.Observation {
	out := make([]fallzone.Observation, len(tracks))
	for i, t := range tracks {
		var pixels []geometry.Point
		if !t.Mask.Empty() {
			pixels = geometry.MaskPoints(t.Mask)
		}
		out[i] = fallzone.Observation{TrackID: t.ID, MaskPixels: pixels}
	}
	return out
}

func vehicleObservations(tracks []*tracking.Track) []vehicle.Observation {
	out := make([]vehicle.Observation, len(tracks))
	for i, t := range tracks {
		out[i] = vehicle.Observation{TrackID: t.ID, Height: t.Box().Height(), Score: t.Score}
	}
	return out
}

// blobKeyFor returns the persisted-event blob key for risk codes that
// represent a DANGER-level or INCIDENT condition (the codes worth
// retaining a frame snapshot for): 2/5/8 (per-engine DANGER) and 3/6/9/10
// (INCIDENT), and "" otherwise. epochMS is the event's wall-clock
// timestamp, not the frame sequence number.
func blobKeyFor(deviceID string, epochMS int64, riskCode int) string {
	switch riskCode {
	case 2, 5, 8, 3, 6, 9, 10:
		return models.EventBlobKey(deviceID, epochMS)
	default:
		return ""
	}
}
