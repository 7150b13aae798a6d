// Package canlog provides an embeddable CAN-bus serial logger.
//
// A capture reads a high-speed serial link carrying 20-byte frames that
// start with the sync marker AA 55, recovers frame boundaries from the
// unsynchronized byte stream, stamps every frame with its capture time and
// appends the frames as text records to one CSV file per wall-clock minute:
//
//	13:37:02.123456,AA 55 00 01 02 03 04 05 06 07 08 09 0A 0B 0C 0D 0E 0F 10 11
//
// The pipeline has three stages connected by queues: the ingestor reads the
// port in bursts and stamps every byte of a burst with one monotonic tick,
// the synchronizer slides a 20-byte window over the stream and emits a
// frame whenever the window starts with the marker, and the batch writer
// drains the frames every FlushInterval into Logs/CAN_<yyyyMMdd>_<HHmm>.csv.
//
// # Basic Usage
//
//	cfg := canlog.Config{Port: "/dev/ttyUSB0", Baud: 921600}
//
//	c, err := canlog.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Start(context.Background()); err != nil {
//	    log.Fatal(err) // *canlog.ConnectionError if the port cannot be opened
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := c.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// Frames still queued when Stop is called are discarded unless
// [Config.FlushOnStop] is set.
//
// # Errors
//
// A serial read failure ends the capture: it moves to [StateCrashed], the
// [Capture.Done] channel closes and [Capture.Err] returns the
// [*ConnectionError]. There is no automatic reconnection. A failed log
// file append loses that batch only; it is reported through
// [EventHandler.OnPersistenceError] and acquisition continues.
//
// # Event Handling
//
// Implement [EventHandler], or embed [BaseEventHandler], and pass it via
// [WithEventHandler]. Events are called synchronously from the pipeline
// goroutines.
//
// # Dependency Injection
//
// For testing, the serial port and the log files can be replaced:
//
//	c, err := canlog.New(cfg,
//	    canlog.WithPortOpener(fakeOpener),
//	    canlog.WithLogSink(memorySink),
//	)
//
// # Plugins
//
// Optional functionality runs as a [Plugin]:
//
//	import "github.com/bft-labs/canlog/plugins/logretention"
//
//	c, err := canlog.New(cfg,
//	    logretention.WithLogRetention(logretention.DefaultConfig()),
//	)
package canlog
