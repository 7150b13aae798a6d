package app

import (
	"context"
	"sync/atomic"

	"github.com/bft-labs/canlog/internal/domain"
	"github.com/bft-labs/canlog/internal/ports"
	"github.com/bft-labs/canlog/pkg/log"
)

// TransferBufferSize bounds a single read burst.
const TransferBufferSize = 8192

// Ingestor reads the serial link in bursts and stamps every byte of a
// burst with one capture tick. It is the only reader of the source and the
// only writer of the byte queue.
type Ingestor struct {
	port   string
	src    ports.ByteSource
	tb     *TimeBase
	out    *Queue[domain.StampedByte]
	idle   *backoff
	logger log.Logger

	bytesRead atomic.Uint64
	bursts    atomic.Uint64
}

// NewIngestor creates an ingestor for an already-open source.
func NewIngestor(port string, src ports.ByteSource, tb *TimeBase, out *Queue[domain.StampedByte], logger log.Logger) *Ingestor {
	return &Ingestor{
		port:   port,
		src:    src,
		tb:     tb,
		out:    out,
		idle:   newBackoff(DefaultIdleInitial, DefaultIdleMax),
		logger: logger,
	}
}

// Run reads until ctx is done or the source fails. A read failure is
// returned as a *domain.ConnectionError; it is never retried.
func (in *Ingestor) Run(ctx context.Context) error {
	buf := make([]byte, TransferBufferSize)
	stamped := make([]domain.StampedByte, 0, TransferBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := in.src.Read(buf)
		if n > 0 {
			// One tick per burst, taken as soon as the read returns.
			tick := in.tb.Now()
			stamped = stamped[:0]
			for _, b := range buf[:n] {
				stamped = append(stamped, domain.StampedByte{Value: b, Tick: tick})
			}
			in.out.PushAll(stamped)
			in.bytesRead.Add(uint64(n))
			in.bursts.Add(1)
			in.idle.Reset()
		}
		if err != nil {
			if ctx.Err() != nil {
				// The session closed the port after cancellation.
				return ctx.Err()
			}
			in.logger.Error("serial read failed",
				log.String("port", in.port),
				log.Err(err),
			)
			return &domain.ConnectionError{Port: in.port, Op: "read", Err: err}
		}
		if n == 0 {
			if err := in.idle.Sleep(ctx); err != nil {
				return err
			}
		}
	}
}

// BytesRead returns the total number of bytes read.
func (in *Ingestor) BytesRead() uint64 {
	return in.bytesRead.Load()
}

// Bursts returns the number of non-empty reads.
func (in *Ingestor) Bursts() uint64 {
	return in.bursts.Load()
}
