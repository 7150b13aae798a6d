package app

import (
	"context"
	"sync/atomic"

	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/pkg/log"
)

// syncWindow is a ring of at most PacketSize stamped bytes.
type syncWindow struct {
	buf  [domain.PacketSize]domain.StampedByte
	head int
	n    int
}

func (w *syncWindow) push(b domain.StampedByte) {
	w.buf[(w.head+w.n)%domain.PacketSize] = b
	w.n++
}

func (w *syncWindow) at(i int) domain.StampedByte {
	return w.buf[(w.head+i)%domain.PacketSize]
}

func (w *syncWindow) dropFront(k int) {
	w.head = (w.head + k) % domain.PacketSize
	w.n -= k
}

// Synchronizer recovers frame boundaries from an unsynchronized byte
// stream. Once the window holds PacketSize bytes it inspects only the first
// two: a sync marker there emits a frame and consumes PacketSize bytes,
// anything else slides the window by one byte.
type Synchronizer struct {
	tb     *TimeBase
	window syncWindow

	frames  atomic.Uint64
	skipped atomic.Uint64
}

// NewSynchronizer creates a synchronizer stamping frames with tb.
func NewSynchronizer(tb *TimeBase) *Synchronizer {
	return &Synchronizer{tb: tb}
}

// Push appends one byte to the window and reports the frame it completes,
// if any.
func (s *Synchronizer) Push(b domain.StampedByte) (domain.RecoveredFrame, bool) {
	w := &s.window
	w.push(b)
	if w.n < domain.PacketSize {
		return domain.RecoveredFrame{}, false
	}

	first := w.at(0)
	if first.Value != domain.Sync0 || w.at(1).Value != domain.Sync1 {
		w.dropFront(1)
		s.skipped.Add(1)
		return domain.RecoveredFrame{}, false
	}

	f := domain.RecoveredFrame{Timestamp: s.tb.WallClock(first.Tick)}
	for i := 0; i < domain.PacketSize; i++ {
		f.Bytes[i] = w.at(i).Value
	}
	w.dropFront(domain.PacketSize)
	s.frames.Add(1)
	return f, true
}

// Pending returns the number of bytes held in the window.
func (s *Synchronizer) Pending() int {
	return s.window.n
}

// Frames returns the number of frames recovered so far.
func (s *Synchronizer) Frames() uint64 {
	return s.frames.Load()
}

// Skipped returns the number of bytes discarded while resynchronizing.
func (s *Synchronizer) Skipped() uint64 {
	return s.skipped.Load()
}

// Run drains in into the window until ctx is done, pushing recovered frames
// to out. It never fails on malformed input; it only returns ctx.Err().
func (s *Synchronizer) Run(ctx context.Context, in *Queue[domain.StampedByte], out *Queue[domain.RecoveredFrame], logger log.Logger) error {
	var (
		batch  []domain.StampedByte
		frames []domain.RecoveredFrame
		synced bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := in.Wait(ctx); err != nil {
			return err
		}

		batch = in.Drain(batch[:0])
		frames = frames[:0]
		for _, b := range batch {
			if f, ok := s.Push(b); ok {
				frames = append(frames, f)
			}
		}
		out.PushAll(frames)

		if !synced && len(frames) > 0 {
			synced = true
			logger.Info("stream synchronized", log.Uint64("skipped_bytes", s.skipped.Load()))
		}
	}
}
