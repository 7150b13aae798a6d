package canlog

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/canlog/internal/adapters/fs"
	"github.com/bft-labs/canlog/internal/app"
	"github.com/bft-labs/canlog/pkg/log"
)

// reportStatus logs the operator readout every StatusInterval and refreshes
// the status file, until ctx is done.
func (c *Capture) reportStatus(ctx context.Context, session *app.Session) {
	ticker := time.NewTicker(c.config.StatusInterval)
	defer ticker.Stop()

	c.saveStatus(ctx, session)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counters := session.Counters()
			c.logger.Debug("status",
				log.String("port", counters.Port),
				log.Int("byte_queue", counters.ByteQueueDepth),
				log.Int("frame_queue", counters.FrameQueueDepth),
			)
			c.saveStatus(ctx, session)
		}
	}
}

// saveStatus writes the current state and counters when a status file is
// configured. session may be nil when no port was ever opened.
func (c *Capture) saveStatus(ctx context.Context, session *app.Session) {
	if c.status == nil {
		return
	}

	st := Status{
		State:     c.Status().String(),
		UpdatedAt: c.opts.clock(),
		Counters:  Counters{Port: c.config.Port},
	}
	if session != nil {
		st.StartedAt = session.StartedAt()
		st.Counters = session.Counters()
	}

	if err := c.status.Save(ctx, st); err != nil {
		c.logger.Warn("failed to write status file", log.Err(err))
	}
}

// ReadStatus loads the status file a capture configured with
// WithStatusFile(dir) maintains. A missing file yields an empty Status.
func ReadStatus(ctx context.Context, dir string) (Status, error) {
	return fs.NewStatusFileRepository(dir).Load(ctx)
}

// FormatReadout renders the operator readout line for counters.
func FormatReadout(c Counters) string {
	return fmt.Sprintf("Port: %s | Q: %d | Log: %d", c.Port, c.ByteQueueDepth, c.FrameQueueDepth)
}
