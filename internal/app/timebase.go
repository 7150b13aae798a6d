package app

import (
	"sync/atomic"
	"time"
)

// TicksPerSecond is the resolution of TimeBase ticks (nanoseconds).
const TicksPerSecond = int64(time.Second)

// TimeBase pairs a monotonic tick counter with the wall-clock instant at
// which it started. Ticks are taken by the ingestor and converted back to
// wall-clock time by the synchronizer.
//
// A TimeBase belongs to exactly one capture session. Stop freezes it; a
// new session creates a new TimeBase with an unrelated epoch.
type TimeBase struct {
	startWall time.Time
	origin    time.Time
	stopped   atomic.Int64
	clock     func() time.Time
}

// StartTimeBase records the current wall-clock time and monotonic origin.
// A nil clock selects time.Now.
func StartTimeBase(clock func() time.Time) *TimeBase {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	tb := &TimeBase{
		startWall: now,
		origin:    now,
		clock:     clock,
	}
	tb.stopped.Store(-1)
	return tb
}

// StartWallClock returns the wall-clock instant of session start.
func (tb *TimeBase) StartWallClock() time.Time {
	return tb.startWall
}

// Now returns the ticks elapsed since the origin.
// After Stop it keeps returning the tick at which the counter was halted.
func (tb *TimeBase) Now() int64 {
	if v := tb.stopped.Load(); v >= 0 {
		return v
	}
	d := tb.clock().Sub(tb.origin)
	if d < 0 {
		return 0
	}
	return int64(d)
}

// WallClock converts a tick to wall-clock time with microsecond resolution.
func (tb *TimeBase) WallClock(tick int64) time.Time {
	secs := tick / TicksPerSecond
	frac := tick % TicksPerSecond
	d := time.Duration(secs)*time.Second + time.Duration(frac*int64(time.Second)/TicksPerSecond)
	return tb.startWall.Add(d).Truncate(time.Microsecond)
}

// Stop halts the counter. It is not resumable.
func (tb *TimeBase) Stop() {
	tb.stopped.CompareAndSwap(-1, tb.Now())
}

// Stopped reports whether Stop has been called.
func (tb *TimeBase) Stopped() bool {
	return tb.stopped.Load() >= 0
}
