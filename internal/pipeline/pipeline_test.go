package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adverant/nexus/riskcore/internal/models"
)

func TestBlobKeyForDangerAndIncidentCodes(t *testing.T) {
	for _, code := range []int{2, 3, 5, 6, 8, 9, 10} {
		key := blobKeyFor("dev-1", 42, code)
		assert.Equal(t, "device:dev-1:event:42", key, "risk code %d", code)
	}
}

func TestBlobKeyForRoutineCodesIsEmpty(t *testing.T) {
	for _, code := range []int{0, 1, 4, 7} {
		assert.Empty(t, blobKeyFor("dev-1", 42, code), "risk code %d", code)
	}
}

func TestTakeWithNoPendingFrameReturnsFalse(t *testing.T) {
	p := &Pipeline{}
	_, ok := p.take()
	assert.False(t, ok)
}

func TestSubmitThenTakeRoundTrips(t *testing.T) {
	p := &Pipeline{notify: make(chan struct{}, 1)}
	p.Submit(models.FrameInput{FrameSeq: 1, CaptureIntervalMS: 100})

	input, ok := p.take()
	require.True(t, ok)
	assert.Equal(t, int64(1), input.FrameSeq)
	assert.Equal(t, 100.0, input.CaptureIntervalMS)

	_, ok = p.take()
	assert.False(t, ok, "a second take without an intervening submit must find nothing pending")
}

func TestSubmitAccumulatesCaptureIntervalOfReplacedFrame(t *testing.T) {
	p := &Pipeline{notify: make(chan struct{}, 1)}
	p.Submit(models.FrameInput{FrameSeq: 1, CaptureIntervalMS: 100})
	// A second frame arrives before the first is taken; its capture
	// interval absorbs the replaced frame's so downstream frame-rate
	// normalization stays correct.
	p.Submit(models.FrameInput{FrameSeq: 2, CaptureIntervalMS: 150})

	input, ok := p.take()
	require.True(t, ok)
	assert.Equal(t, int64(2), input.FrameSeq)
	assert.Equal(t, 250.0, input.CaptureIntervalMS)
}

func TestSubmitNotifiesWithoutBlocking(t *testing.T) {
	p := &Pipeline{notify: make(chan struct{}, 1)}
	p.Submit(models.FrameInput{FrameSeq: 1})
	p.Submit(models.FrameInput{FrameSeq: 2}) // notify channel already full, must not block

	select {
	case <-p.notify:
	default:
		t.Fatal("expected a pending notification")
	}
}
