// Command riskcore runs the construction-site risk-assessment core as a
// standalone Redis Streams consumer, or as a one-shot subprocess that
// scores a single batch of pre-decoded frames read from stdin, selected
// by RISKCORE_MODE.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/adverant/nexus/riskcore/internal/config"
	"github.com/adverant/nexus/riskcore/internal/logging"
	"github.com/adverant/nexus/riskcore/internal/models"
	"github.com/adverant/nexus/riskcore/internal/notifier"
	"github.com/adverant/nexus/riskcore/internal/pipeline"
	"github.com/adverant/nexus/riskcore/internal/transport"
)

// defaultFrameRate is the helmet camera's nominal capture rate (7 fps,
// matching config.AccidentConfig.BaseIntervalMS = 1000/7), used to scale
// each device Pipeline's tracker track-buffer.
const defaultFrameRate = 7.0

func main() {
	mode := getEnv("RISKCORE_MODE", "standalone")
	if mode == "subprocess" {
		runSubprocessMode()
		return
	}
	runStandaloneMode()
}

// runSubprocessMode reads a JSON array of frame inputs from stdin, scores
// them against a single ephemeral Pipeline, and writes the resulting risk
// events to stdout as JSON — for callers that want one-shot scoring
// without standing up Redis. A frame replaced by a later one before it is
// processed yields no event of its own; its capture interval is folded
// into the later frame's.
func runSubprocessMode() {
	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	var requests []subprocessFrame
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		fail(log, "failed to read stdin: %v", err)
	}
	if err := json.Unmarshal(raw, &requests); err != nil {
		fail(log, "failed to parse stdin as a JSON frame array: %v", err)
	}

	cfg := config.Default()
	p := pipeline.New("subprocess", cfg, defaultFrameRate, log)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make([]models.RiskEvent, 0, len(requests))
	var mu sync.Mutex
	done := make(chan struct{})
	if len(requests) == 0 {
		close(done)
	}

	go func() {
		_ = p.Run(ctx, func(event models.RiskEvent) {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			// The last submitted frame is never replaced, so its event ends
			// the batch.
			if event.FrameSeq == int64(len(requests)) {
				close(done)
			}
		})
	}()

	for i, req := range requests {
		p.Submit(models.FrameInput{
			FrameSeq:          int64(i + 1),
			CaptureIntervalMS: req.CaptureIntervalMS,
		})
	}

	<-done

	out, _ := json.Marshal(events)
	fmt.Println(string(out))
}

// subprocessFrame is the minimal stdin schema for subprocess mode: the
// image bytes and mask inputs that drive Detections/Gray are intentionally
// omitted here since the upstream detector and preprocessor run outside
// this process; subprocess mode only exercises the capture-interval and
// backpressure/fusion plumbing end to end.
type subprocessFrame struct {
	CaptureIntervalMS float64 `json:"captureIntervalMs"`
}

// runStandaloneMode runs the Redis Streams ingestion loop, routing each
// decoded frame to its device's Pipeline and forwarding fused risk events
// to the notifier.
func runStandaloneMode() {
	cfg, err := config.Load(getEnv("RISKCORE_CONFIG_FILE", ""))
	if err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Info("riskcore starting")

	ingest, err := transport.NewStreamIngest(transport.StreamIngestConfig{RedisURL: cfg.RedisURL})
	if err != nil {
		log.Fatalf("failed to initialize stream ingest: %v", err)
	}
	defer ingest.Close()
	log.Info("stream ingest connected")

	notify, err := notifier.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to initialize notifier: %v", err)
	}
	defer notify.Close()
	log.Info("notifier connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := newPipelineRegistry(ctx, cfg, log)
	defer registry.closeAll()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- ingest.Run(ctx, nil, func(deviceID string, input models.FrameInput) {
			registry.get(deviceID).Submit(input)
		})
	}()

	notifyCtx, notifyCancel := context.WithCancel(context.Background())
	defer notifyCancel()
	go func() {
		for event := range registry.events() {
			if err := notify.Notify(notifyCtx, event); err != nil {
				log.WithError(err).WithField("device_id", event.DeviceID).Warn("failed to enqueue risk notification")
			}
		}
	}()

	log.Info("riskcore ready - waiting for frames")

	select {
	case <-sigChan:
		log.Info("shutdown signal received, stopping gracefully")
		cancel()
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			log.WithError(err).Error("stream ingest stopped unexpectedly")
		}
	}

	log.Info("riskcore stopped")
}

// pipelineRegistry lazily creates and owns one Pipeline per device,
// fanning every device's risk events into a single shared channel for the
// notifier goroutine: one pipeline per device, one notification path for
// the whole process.
type pipelineRegistry struct {
	mu        sync.Mutex
	ctx       context.Context
	cfg       config.Config
	log       *logrus.Logger
	pipelines map[string]*pipeline.Pipeline
	out       chan models.RiskEvent
}

func newPipelineRegistry(ctx context.Context, cfg config.Config, log *logrus.Logger) *pipelineRegistry {
	return &pipelineRegistry{
		ctx:       ctx,
		cfg:       cfg,
		log:       log,
		pipelines: make(map[string]*pipeline.Pipeline),
		out:       make(chan models.RiskEvent, 256),
	}
}

func (r *pipelineRegistry) get(deviceID string) *pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pipelines[deviceID]; ok {
		return p
	}

	p := pipeline.New(deviceID, r.cfg, defaultFrameRate, r.log)
	r.pipelines[deviceID] = p

	go func() {
		_ = p.Run(r.ctx, func(event models.RiskEvent) {
			r.out <- event
		})
	}()

	return p
}

func (r *pipelineRegistry) events() <-chan models.RiskEvent {
	return r.out
}

func (r *pipelineRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pipelines {
		p.Close()
	}
}

func fail(log *logrus.Logger, format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
