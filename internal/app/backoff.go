package app

import (
	"context"
	"time"
)

// Default idle wait bounds for a stage whose input is momentarily empty.
// The cap stays well below the 10ms latency budget of a multi-megabit link.
const (
	DefaultIdleInitial = time.Millisecond
	DefaultIdleMax     = 8 * time.Millisecond
)

// backoff grows an idle wait exponentially while a stage sees no input.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultIdleInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Sleep waits for the current duration, or until ctx is done, and doubles
// the next wait up to max.
func (b *backoff) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.current)
	defer t.Stop()

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *backoff) Current() time.Duration {
	return b.current
}
