package app

import (
	"context"
	"sync"
	"sync/atomic"
)

// OverflowPolicy selects what a bounded Queue does when it is full.
type OverflowPolicy int

const (
	// DropOldest discards the item at the head to make room.
	DropOldest OverflowPolicy = iota
	// DropNewest discards the incoming item.
	DropNewest
)

// String returns the policy name used in configuration.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy maps a configuration name to a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	switch s {
	case "", "drop-oldest":
		return DropOldest, true
	case "drop-newest":
		return DropNewest, true
	}
	return DropOldest, false
}

// Queue is a FIFO connecting two pipeline stages. It is safe for one
// producer and one consumer running concurrently.
//
// With limit 0 the queue grows without bound and the producer never waits,
// so a slow consumer shows up as memory growth rather than stalled reads.
// With a positive limit, items beyond it are dropped according to policy
// and counted.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	limit   int
	policy  OverflowPolicy
	ready   chan struct{}
	dropped atomic.Uint64
}

// NewQueue creates a queue. limit <= 0 means unbounded.
func NewQueue[T any](limit int, policy OverflowPolicy) *Queue[T] {
	if limit < 0 {
		limit = 0
	}
	return &Queue[T]{
		limit:  limit,
		policy: policy,
		ready:  make(chan struct{}, 1),
	}
}

// Push appends one item.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.appendLocked(v)
	q.mu.Unlock()
	q.signal()
}

// PushAll appends items in order.
func (q *Queue[T]) PushAll(vs []T) {
	if len(vs) == 0 {
		return
	}
	q.mu.Lock()
	for _, v := range vs {
		q.appendLocked(v)
	}
	q.mu.Unlock()
	q.signal()
}

func (q *Queue[T]) appendLocked(v T) {
	if q.limit > 0 && len(q.items)-q.head >= q.limit {
		q.dropped.Add(1)
		if q.policy == DropNewest {
			return
		}
		var zero T
		q.items[q.head] = zero
		q.head++
		if q.head >= len(q.items)/2 {
			n := copy(q.items, q.items[q.head:])
			clear(q.items[n:])
			q.items = q.items[:n]
			q.head = 0
		}
	}
	q.items = append(q.items, v)
}

func (q *Queue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Drain removes every queued item and appends it to dst.
func (q *Queue[T]) Drain(dst []T) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	dst = append(dst, q.items[q.head:]...)
	q.reset()
	return dst
}

// reset drops the backing array when it has grown large so that a burst
// does not pin memory for the rest of the session.
func (q *Queue[T]) reset() {
	if cap(q.items) > 1<<16 {
		q.items = nil
	} else {
		clear(q.items)
		q.items = q.items[:0]
	}
	q.head = 0
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Dropped returns the number of items discarded because the queue was full.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// Wait blocks until the queue is non-empty or ctx is done.
func (q *Queue[T]) Wait(ctx context.Context) error {
	for {
		if q.Len() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.ready:
		}
	}
}
