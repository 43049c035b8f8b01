package schedule

import (
	"context"
	"time"
)

// NowMarker periodically recomputes the calendar's current-time marker
// while a view is active. It mirrors the UI's one-minute refresh: the
// marker position and the passed-state overlay both depend on the wall
// clock, so consumers re-read them on every tick.
type NowMarker struct {
	clock    Clock
	interval time.Duration
}

func NewNowMarker(clock Clock, interval time.Duration) *NowMarker {
	if clock == nil {
		clock = SystemClock()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &NowMarker{clock: clock, interval: interval}
}

// Run invokes fn with the current marker offset immediately and then on
// every interval until ctx is canceled. It blocks; run it in its own
// goroutine when the caller has other work.
func (m *NowMarker) Run(ctx context.Context, fn func(offset float64, at time.Time)) {
	emit := func() {
		at := m.clock.Now()
		fn(NowMarkerOffset(at), at)
	}
	emit()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}
