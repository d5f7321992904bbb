package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alle-ai/alle-go/internal/domain"
)

// WriteResponse prints a response body under its stats line. JSON bodies are
// indented; text is printed as-is.
func WriteResponse(out io.Writer, resp domain.ResponsePayload, stats domain.ResponseStats) {
	fmt.Fprintf(out, "Status: %d %s | Time: %s | Size: %s\n",
		stats.StatusCode, stats.StatusText, stats.Time, stats.Size)

	if resp.IsEmpty() {
		fmt.Fprintln(out, "(empty response)")
		return
	}

	if resp.IsJSON() {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(resp.String()), "", "  "); err == nil {
			fmt.Fprintln(out, buf.String())
			return
		}
	}
	fmt.Fprintln(out, resp.String())
}

// WriteHistoryLine prints one history row. The active entry is marked with '*'.
func WriteHistoryLine(out io.Writer, entry domain.HistoryEntry, active bool) {
	marker := " "
	if active {
		marker = "*"
	}
	fmt.Fprintf(out, "%s %s | %s | %d | %s\n",
		marker,
		entry.ID,
		entry.Timestamp.Format(domain.TimestampFormat),
		entry.StatusCode,
		entry.Name)
}

// WriteVideoLine prints one queue row.
func WriteVideoLine(out io.Writer, item domain.VideoQueueItem) {
	fmt.Fprintf(out, "%s | %s | %s | %s\n",
		item.ID,
		item.Timestamp.Format(domain.TimestampFormat),
		item.Status,
		item.Prompt)
}
