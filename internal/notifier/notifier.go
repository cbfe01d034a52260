// Package notifier implements the at-least-once notify(device_id,
// risk_code, event_blob_key) contract as an asynq task producer: it
// enqueues one outbound notification task per risk event.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/riskcore/internal/models"
)

const (
	// TaskTypeNotify is the asynq task type name for an outbound risk
	// notification.
	TaskTypeNotify = "riskcore:notify"

	queueCritical = "riskcore:critical"
	queueDefault  = "riskcore:default"
)

// Payload is the JSON body of a riskcore:notify task.
type Payload struct {
	DeviceID          string  `json:"deviceId"`
	FrameSeq          int64   `json:"frameSeq"`
	RiskCode          int     `json:"riskCode"`
	CaptureIntervalMS int64   `json:"captureIntervalMs"`
	EventBlobKey      *string `json:"eventBlobKey,omitempty"`
	EnqueuedAt        time.Time `json:"enqueuedAt"`
}

// Notifier enqueues RiskEvents onto the asynq queue for at-least-once
// delivery to the upstream HTTP notification channel (this package only
// owns the durable hand-off to it).
type Notifier struct {
	client *asynq.Client
}

// New builds a Notifier from a Redis connection URL.
func New(redisURL string) (*Notifier, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("notifier: failed to parse Redis URL: %w", err)
	}
	return &Notifier{client: asynq.NewClient(redisOpt)}, nil
}

// Close releases the underlying asynq client.
func (n *Notifier) Close() error {
	return n.client.Close()
}

// Notify enqueues event for delivery, routing DANGER/INCIDENT-tier risk
// codes onto the critical queue so they are dequeued ahead of routine
// SAFE/WARNING updates.
func (n *Notifier) Notify(ctx context.Context, event models.RiskEvent) error {
	payload := Payload{
		DeviceID:          event.DeviceID,
		FrameSeq:          event.FrameSeq,
		RiskCode:          event.RiskCode,
		CaptureIntervalMS: event.CaptureIntervalMS,
		EventBlobKey:      event.EventBlobKey,
		EnqueuedAt:        time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notifier: failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeNotify, body)
	opts := []asynq.Option{
		asynq.Queue(queueForRiskCode(event.RiskCode)),
		asynq.MaxRetry(5),
		asynq.Retention(24 * time.Hour),
	}

	_, err = n.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("notifier: enqueue failed: %w", err)
	}
	return nil
}

func queueForRiskCode(riskCode int) string {
	switch riskCode {
	case 2, 5, 8, 3, 6, 9, 10:
		return queueCritical
	default:
		return queueDefault
	}
}

// NewServer builds the asynq server + mux pair for a downstream consumer
// of riskcore:notify tasks (deployments that want in-process delivery
// rather than a separate HTTP relay can register a handler here
// instead).
func NewServer(redisURL string, concurrency int, handler asynq.HandlerFunc) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("notifier: failed to parse Redis URL: %w", err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueCritical: 6,
			queueDefault:  1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return time.Duration(1<<uint(n)) * time.Second
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeNotify, handler)

	return server, mux, nil
}
