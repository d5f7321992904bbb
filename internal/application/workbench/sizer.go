// Package workbench owns the persisted API-call history and video queue,
// including the size-bounded eviction that keeps them under the storage quota.
package workbench

import (
	"encoding/json"
	"sync"

	"github.com/alle-ai/alle-go/internal/domain"
)

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// EstimateSize returns the byte length of v's JSON encoding. Values that
// cannot be encoded count as zero.
func EstimateSize(v interface{}) int64 {
	w := &countingWriter{}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0
	}
	// Encode terminates the value with a newline.
	return w.n - 1
}

// SizeCache remembers the encoded size of history entries by id so that an
// insert does not re-encode the whole history. Recorded entries never change;
// Retain drops ids that left the history so a reused id is measured again.
// A nil SizeCache encodes every time.
type SizeCache struct {
	mu    sync.Mutex
	sizes map[string]int64
}

// NewSizeCache returns an empty cache.
func NewSizeCache() *SizeCache {
	return &SizeCache{sizes: map[string]int64{}}
}

// Entry returns the encoded size of e.
func (c *SizeCache) Entry(e domain.HistoryEntry) int64 {
	if c == nil {
		return EstimateSize(e)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.sizes[e.ID]; ok {
		return n
	}
	n := EstimateSize(e)
	c.sizes[e.ID] = n
	return n
}

// History returns the encoded size of entries as a JSON array. It equals
// EstimateSize(entries) for a non-nil slice.
func (c *SizeCache) History(entries []domain.HistoryEntry) int64 {
	if c == nil {
		return EstimateSize(nonNil(entries))
	}
	var sum int64
	for _, e := range entries {
		sum += c.Entry(e)
	}
	return arraySize(sum, len(entries))
}

// Retain forgets every id not present in entries.
func (c *SizeCache) Retain(entries []domain.HistoryEntry) {
	if c == nil {
		return
	}
	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keep[e.ID] = struct{}{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.sizes {
		if _, ok := keep[id]; !ok {
			delete(c.sizes, id)
		}
	}
}

// Reset forgets everything.
func (c *SizeCache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.sizes = map[string]int64{}
	c.mu.Unlock()
}

// arraySize is the length of a JSON array holding n elements whose encodings
// sum to elements bytes: two brackets plus n-1 commas.
func arraySize(elements int64, n int) int64 {
	if n == 0 {
		return 2
	}
	return elements + int64(n-1) + 2
}

// Measure computes usage of both persisted collections against the default quota.
func Measure(history []domain.HistoryEntry, queue []domain.VideoQueueItem) domain.StorageStats {
	return MeasureWithQuota(history, queue, domain.StorageQuotaBytes)
}

// MeasureWithQuota is Measure against an explicit quota.
func MeasureWithQuota(history []domain.HistoryEntry, queue []domain.VideoQueueItem, quota int64) domain.StorageStats {
	if history == nil {
		history = []domain.HistoryEntry{}
	}
	if queue == nil {
		queue = []domain.VideoQueueItem{}
	}
	return domain.NewStorageStats(EstimateSize(history)+EstimateSize(queue), quota)
}

// measureCached is MeasureWithQuota with history sizes taken from cache.
func measureCached(cache *SizeCache, history []domain.HistoryEntry, queue []domain.VideoQueueItem, quota int64) domain.StorageStats {
	if queue == nil {
		queue = []domain.VideoQueueItem{}
	}
	return domain.NewStorageStats(cache.History(history)+EstimateSize(queue), quota)
}
