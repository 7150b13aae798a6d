package domain

import (
	"fmt"
	"strings"
	"time"
)

// Protocol constants of the logger link. They are fixed by the device
// firmware and are not runtime configuration.
const (
	// PacketSize is the length of one frame in bytes, sync header included.
	PacketSize = 20

	// Sync0 and Sync1 form the two-byte marker that starts every frame.
	Sync0 byte = 0xAA
	Sync1 byte = 0x55
)

// RecordTimeLayout renders a frame timestamp as HH:mm:ss.ffffff.
const RecordTimeLayout = "15:04:05.000000"

// StampedByte is a single byte read from the link together with the
// monotonic tick of the read burst it arrived in.
type StampedByte struct {
	// Value is the raw byte.
	Value byte

	// Tick is the capture tick shared by every byte of the same burst.
	Tick int64
}

// RecoveredFrame is a frame located in the byte stream.
// Bytes[0] is always Sync0 and Bytes[1] is always Sync1.
type RecoveredFrame struct {
	// Timestamp is the wall-clock capture time of the first frame byte,
	// truncated to microseconds.
	Timestamp time.Time

	// Bytes holds the raw frame, sync header included.
	Bytes [PacketSize]byte
}

// Valid reports whether the frame starts with the sync marker.
func (f RecoveredFrame) Valid() bool {
	return f.Bytes[0] == Sync0 && f.Bytes[1] == Sync1
}

const hexDigits = "0123456789ABCDEF"

// FormatRecord serializes a frame to a log line:
// "<HH:mm:ss.ffffff>,<AA 55 ...>" with upper-case hex bytes separated by
// single spaces.
func FormatRecord(f RecoveredFrame) string {
	var sb strings.Builder
	sb.Grow(len(RecordTimeLayout) + 1 + PacketSize*3)
	sb.WriteString(f.Timestamp.Format(RecordTimeLayout))
	sb.WriteByte(',')
	for i, b := range f.Bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0x0f])
	}
	return sb.String()
}

// ParseRecord decodes a log line produced by FormatRecord.
// It returns the time-of-day field unchanged and the decoded frame bytes.
func ParseRecord(line string) (string, [PacketSize]byte, error) {
	var out [PacketSize]byte

	line = strings.TrimRight(line, "\r\n")
	ts, hexField, ok := strings.Cut(line, ",")
	if !ok {
		return "", out, fmt.Errorf("record %q: missing separator", line)
	}
	if _, err := time.Parse(RecordTimeLayout, ts); err != nil {
		return "", out, fmt.Errorf("record %q: parse time: %w", line, err)
	}

	fields := strings.Fields(hexField)
	if len(fields) != PacketSize {
		return "", out, fmt.Errorf("record %q: got %d bytes, want %d", line, len(fields), PacketSize)
	}
	for i, s := range fields {
		if len(s) != 2 {
			return "", out, fmt.Errorf("record %q: byte %d: invalid hex %q", line, i, s)
		}
		hi, okHi := hexValue(s[0])
		lo, okLo := hexValue(s[1])
		if !okHi || !okLo {
			return "", out, fmt.Errorf("record %q: byte %d: invalid hex %q", line, i, s)
		}
		out[i] = hi<<4 | lo
	}
	return ts, out, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// LogFileName returns the batch file name for the minute containing t,
// e.g. "CAN_20240131_1405.csv".
func LogFileName(t time.Time) string {
	return "CAN_" + t.Format("20060102_1504") + ".csv"
}
