package timed

import (
	"context"
	"time"
)

// DefaultResolution is the polling interval of WallClock timers.
const DefaultResolution = 100 * time.Millisecond

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop cancels the timer. Stopping a fired or stopped timer is a no-op.
	Stop()
}

// Clock schedules callbacks. Callbacks run on a goroutine owned by the clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock runs timers against the wall clock.
type WallClock struct {
	Resolution time.Duration
}

// NewWallClock creates a wall clock polling at the given resolution.
func NewWallClock(resolution time.Duration) *WallClock {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &WallClock{Resolution: resolution}
}

// Now returns the current wall time.
func (w *WallClock) Now() time.Time {
	return toWallTime(time.Now())
}

// AfterFunc calls f once the wall clock passes now+d.
func (w *WallClock) AfterFunc(d time.Duration, f func()) Timer {
	ctx, cancel := context.WithCancel(context.Background())

	resolution := w.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if d < resolution {
		resolution = max(d, time.Millisecond)
	}

	// Compare against wall time on every poll so a suspended process
	// does not stretch the delay.
	endTime := toWallTime(time.Now()).Add(d)
	go func() {
		ticker := time.NewTicker(resolution)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !toWallTime(time.Now()).Before(endTime) {
					if ctx.Err() == nil {
						f()
					}
					return
				}
			}
		}
	}()

	return cancelTimer(cancel)
}

type cancelTimer context.CancelFunc

func (c cancelTimer) Stop() { c() }

// toWallTime returns the time with monotonic clock stripped.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
