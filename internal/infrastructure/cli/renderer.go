package cli

import (
	"fmt"
	"io"

	"github.com/alle-ai/alle-go/internal/application/workbench"
	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/cli/helpers"
)

// RenderCall prints a recorded workbench call and what eviction did to make room for it.
func RenderCall(out io.Writer, entry domain.HistoryEntry, outcome workbench.Outcome) {
	fmt.Fprintf(out, "%s\n", entry.Name)
	helpers.WriteResponse(out, entry.Response, entry.ResponseStats)

	switch {
	case outcome.Collapsed:
		fmt.Fprintln(out, "\nNote: the response alone fills the storage quota; older history was removed.")
	case outcome.Removed > 0:
		fmt.Fprintf(out, "\nNote: removed %d history entries older than %s to stay within quota.\n",
			outcome.Removed, outcome.Cutoff.Format(domain.TimestampFormat))
	}
	fmt.Fprintf(out, "Saved as %s\n", entry.ID)
}

// RenderVideoProgress prints the final state of the queue items a watch followed.
func RenderVideoProgress(out io.Writer, items []domain.VideoQueueItem) {
	for _, item := range items {
		switch item.Status {
		case domain.VideoCompleted:
			fmt.Fprintf(out, "[DONE] %s - %s\n", item.ID, item.VideoURL)
		case domain.VideoFailed:
			retry := ""
			if item.CanRetry() {
				retry = " (retry with 'alle video retry " + item.ID + "')"
			}
			fmt.Fprintf(out, "[FAIL] %s - %s%s\n", item.ID, item.Error, retry)
		default:
			fmt.Fprintf(out, "[WAIT] %s - still processing\n", item.ID)
		}
	}
}
