package transport

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gocv.io/x/gocv"

	"github.com/adverant/nexus/riskcore/internal/models"
	"github.com/adverant/nexus/riskcore/internal/riskerr"
)

// StreamIngestConfig configures one Redis Streams frame-ingestion worker.
type StreamIngestConfig struct {
	RedisURL      string
	ConsumerGroup string // Default: "riskcore"
	ConsumerName  string // Default: "riskcore-<unix-ts>"
	MaxBatchSize  int64  // Default: 16
	BlockTimeout  time.Duration // Default: 1s
}

// StreamIngest reads device frame streams (key pattern "riskcore:frames:*")
// via XREADGROUP and hands decoded frames to a per-device sink, ACKing each
// message after handling it. Messages dropped as malformed are ACKed as
// well, and the sink does not queue durably (Pipeline.Submit may replace a
// pending frame), so an ACKed frame is not guaranteed to be scored.
type StreamIngest struct {
	client *redis.Client
	cfg    StreamIngestConfig
}

// NewStreamIngest connects to Redis and validates the connection.
func NewStreamIngest(cfg StreamIngestConfig) (*StreamIngest, error) {
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "riskcore"
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = fmt.Sprintf("riskcore-%d", time.Now().Unix())
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = 16
	}
	if cfg.BlockTimeout == 0 {
		cfg.BlockTimeout = time.Second
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("transport: failed to connect to Redis: %w", err)
	}

	return &StreamIngest{client: client, cfg: cfg}, nil
}

// Close releases the underlying Redis client.
func (si *StreamIngest) Close() error {
	return si.client.Close()
}

// Sink accepts one decoded frame for a device. It must not block on the
// downstream pipeline's own backpressure — Pipeline.Submit already applies
// the latest-frame-wins policy, so the sink is expected to be non-blocking.
type Sink func(deviceID string, input models.FrameInput)

// Detect is the upstream YOLO-style segmentation detector's interface
// boundary: the core only consumes its output. A nil Detect leaves every
// frame's Detections empty (the "no detections" edge case, exercised
// independent of the detector's availability).
type Detect func(gray gocv.Mat) []models.RawDetection

// streamKeyPattern is the SCAN pattern matching every device's frame
// stream.
const streamKeyPattern = "riskcore:frames:*"

// Run discovers device frame streams by SCANning streamKeyPattern, then
// polls them via XREADGROUP until ctx is cancelled, decoding each
// message's envelope, invoking detect to obtain this frame's detections,
// and handing the assembled FrameInput to sink. Newly created device
// streams are picked up on the next discovery pass (every loop iteration).
func (si *StreamIngest) Run(ctx context.Context, detect Detect, sink Sink) error {
	var frameSeq int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		keys, err := si.discoverStreams(ctx)
		if err != nil {
			return fmt.Errorf("transport: stream discovery failed: %w", err)
		}
		if len(keys) == 0 {
			time.Sleep(si.cfg.BlockTimeout)
			continue
		}

		for _, key := range keys {
			si.client.XGroupCreateMkStream(ctx, key, si.cfg.ConsumerGroup, "0")
		}

		args := make([]string, 0, len(keys)*2)
		args = append(args, keys...)
		for range keys {
			args = append(args, ">")
		}

		result, err := si.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    si.cfg.ConsumerGroup,
			Consumer: si.cfg.ConsumerName,
			Streams:  args,
			Count:    si.cfg.MaxBatchSize,
			Block:    si.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return fmt.Errorf("transport: XREADGROUP failed: %w", err)
		}

		for _, stream := range result {
			deviceID := deviceIDFromStreamKey(stream.Stream)
			for _, message := range stream.Messages {
				frameSeq++
				if err := si.handleMessage(deviceID, frameSeq, message, detect, sink); err != nil {
					log.Printf("transport: device %s dropped message %s: %v", deviceID, message.ID, err)
				}
				si.client.XAck(ctx, stream.Stream, si.cfg.ConsumerGroup, message.ID)
			}
		}
	}
}

func (si *StreamIngest) discoverStreams(ctx context.Context) ([]string, error) {
	var keys []string
	iter := si.client.Scan(ctx, 0, streamKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (si *StreamIngest) handleMessage(deviceID string, frameSeq int64, message redis.XMessage, detect Detect, sink Sink) error {
	raw, ok := message.Values["frame"].(string)
	if !ok {
		return fmt.Errorf("%w: message missing \"frame\" field", riskerr.ErrTransientInput)
	}

	decoded, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", riskerr.ErrTransientInput, err)
	}

	gray, err := decodeJPEGGray(decoded.JPEG)
	if err != nil {
		return fmt.Errorf("%w: %v", riskerr.ErrTransientInput, err)
	}

	var detections []models.RawDetection
	if detect != nil {
		detections = detect(gray)
	}

	sink(deviceID, models.FrameInput{
		FrameSeq:          frameSeq,
		Detections:        detections,
		Gray:              gray,
		Scale:             1.0,
		CaptureIntervalMS: float64(decoded.CaptureIntervalMS),
	})
	return nil
}

func decodeJPEGGray(jpeg []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(jpeg, gocv.IMReadGrayScale)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("jpeg decode failed: %w", err)
	}
	if mat.Empty() {
		return gocv.Mat{}, fmt.Errorf("jpeg decode produced an empty frame")
	}
	return mat, nil
}

func deviceIDFromStreamKey(key string) string {
	const prefix = "riskcore:frames:"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}
