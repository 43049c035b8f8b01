package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNowMarkerEmitsImmediatelyAndOnTicks(t *testing.T) {
	marker := NewNowMarker(FixedClock{Instant: testNow}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	offsets := make(chan float64, 16)
	done := make(chan struct{})
	go func() {
		marker.Run(ctx, func(offset float64, _ time.Time) {
			offsets <- offset
		})
		close(done)
	}()

	// first emission happens without waiting for a tick
	select {
	case offset := <-offsets:
		// 10:00 with a 9-hour base -> one full row
		assert.Equal(t, 120.0, offset)
	case <-time.After(time.Second):
		t.Fatal("no immediate emission")
	}

	// then at least one periodic emission
	select {
	case offset := <-offsets:
		assert.Equal(t, 120.0, offset)
	case <-time.After(time.Second):
		t.Fatal("no periodic emission")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestNowMarkerDefaults(t *testing.T) {
	marker := NewNowMarker(nil, 0)
	require.NotNil(t, marker)
	assert.Equal(t, time.Minute, marker.interval)
}
