// Package serial opens serial links with github.com/tarm/serial.
package serial

import (
	"errors"
	"io"
	"time"

	"github.com/tarm/serial"

	"github.com/bft-labs/canlog/internal/ports"
)

// DefaultReadTimeout bounds how long a Read waits for the first byte.
// tarm/serial rounds POSIX timeouts to 100ms.
const DefaultReadTimeout = 100 * time.Millisecond

// Port is an open serial link.
type Port struct {
	rwc io.ReadWriteCloser
}

// Open opens name at baud with DefaultReadTimeout.
func Open(name string, baud int) (ports.ByteSource, error) {
	p, err := OpenWithTimeout(name, baud, DefaultReadTimeout)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// OpenWithTimeout opens name at baud; a Read returns 0, nil when nothing
// arrives within timeout.
func OpenWithTimeout(name string, baud int, timeout time.Duration) (*Port, error) {
	rwc, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Port{rwc: rwc}, nil
}

// Read copies the available bytes into p.
func (p *Port) Read(b []byte) (int, error) {
	n, err := p.rwc.Read(b)
	if n == 0 && errors.Is(err, io.EOF) {
		// A poll timeout on POSIX systems.
		return 0, nil
	}
	return n, err
}

// Close releases the port.
func (p *Port) Close() error {
	return p.rwc.Close()
}

var (
	_ ports.ByteSource = (*Port)(nil)
	_ ports.PortOpener = Open
)
