package ports

// ByteSource is an open serial connection.
// The ingestor is its only reader; Close is called by the session
// after the ingestor has been asked to stop.
type ByteSource interface {
	// Read copies the bytes that are currently available into p.
	// It returns 0, nil when nothing arrived within the source's poll
	// timeout. Any error is treated as a lost connection.
	Read(p []byte) (int, error)

	// Close releases the connection. Close unblocks a pending Read.
	Close() error
}

// PortOpener opens the serial link identified by name at the given baud rate.
type PortOpener func(name string, baud int) (ByteSource, error)
