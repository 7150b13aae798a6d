package canlog

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/canlog/internal/domain"
)

// maxMalformedReported bounds VerifyResult.Malformed.
const maxMalformedReported = 20

// VerifyResult summarizes a decoded log file.
type VerifyResult struct {
	Records        int
	MalformedCount int
	// Malformed holds the first malformed lines with their line numbers.
	Malformed []MalformedLine
	// Unsynced counts well-formed records not starting with the sync marker.
	Unsynced int
}

// MalformedLine is a line that does not decode as a record.
type MalformedLine struct {
	Line int
	Err  error
}

// OK reports whether every line decoded to a synchronized record.
func (r VerifyResult) OK() bool {
	return r.MalformedCount == 0 && r.Unsynced == 0
}

// VerifyFile decodes every record of a CAN_*.csv log file.
func VerifyFile(path string) (VerifyResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{}, err
	}
	defer f.Close()
	return Verify(f)
}

// Verify decodes every record read from r. Empty lines are skipped.
func Verify(r io.Reader) (VerifyResult, error) {
	var res VerifyResult
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		_, b, err := domain.ParseRecord(line)
		if err != nil {
			res.MalformedCount++
			if len(res.Malformed) < maxMalformedReported {
				res.Malformed = append(res.Malformed, MalformedLine{Line: lineNo, Err: err})
			}
			continue
		}
		res.Records++
		if b[0] != Sync0 || b[1] != Sync1 {
			res.Unsynced++
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read line %d: %w", lineNo+1, err)
	}
	return res, nil
}
