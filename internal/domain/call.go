package domain

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// CallResult is the raw outcome of a workbench API call.
type CallResult struct {
	StatusCode int
	StatusText string
	Body       []byte
	Duration   time.Duration
}

// Stats converts the result into history display metadata.
func (r CallResult) Stats() ResponseStats {
	return ResponseStats{
		StatusCode: r.StatusCode,
		StatusText: r.StatusText,
		Time:       fmt.Sprintf("%dms", r.Duration.Milliseconds()),
		Size:       humanize.Bytes(uint64(len(r.Body))),
	}
}
