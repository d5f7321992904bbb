package helpers

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alle-ai/alle-go/internal/domain"
)

const usageBarWidth = 20

// StatusCount is the number of queue items in one status.
type StatusCount struct {
	Status domain.VideoStatus
	Count  int
}

// FormatBytes renders a byte count in IEC units, e.g. "1.2 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// UsageBar draws a fixed-width bar for a percentage, clamped to 0-100.
func UsageBar(percentage float64) string {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	filled := int(percentage / 100 * usageBarWidth)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", usageBarWidth-filled) + "]"
}

// CountByStatus tallies queue items per status, most frequent first and
// then by status name.
func CountByStatus(queue []domain.VideoQueueItem) []StatusCount {
	counts := make(map[domain.VideoStatus]int)
	for _, item := range queue {
		counts[item.Status]++
	}

	result := make([]StatusCount, 0, len(counts))
	for status, count := range counts {
		result = append(result, StatusCount{Status: status, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count == result[j].Count {
			return result[i].Status < result[j].Status
		}
		return result[i].Count > result[j].Count
	})
	return result
}

// CountFailedRequests returns how many history entries ended with an error status.
func CountFailedRequests(history []domain.HistoryEntry) int {
	failed := 0
	for _, entry := range history {
		if entry.Failed() {
			failed++
		}
	}
	return failed
}
