package workbench

import (
	"time"

	"github.com/alle-ai/alle-go/internal/domain"
)

// Policy decides which history entries survive an insert.
type Policy struct {
	Quota int64
	Now   func() time.Time
	// Sizes caches per-entry encoded sizes. Nil encodes on every measure.
	Sizes *SizeCache
}

// Outcome describes what Admit did.
type Outcome struct {
	// Duplicate is set when an entry with the candidate's id already existed;
	// the list is returned unchanged.
	Duplicate bool
	OverLimit bool
	// Cutoff is the age cutoff applied, zero when no age cleanup ran.
	Cutoff    time.Time
	Removed   int
	Collapsed bool
	// Size is the serialized size of the resulting list.
	Size int64
}

// Admit prepends candidate to entries and evicts until the list fits the quota.
//
// Age cleanup runs when the list is over quota, or when auto cleanup is on and
// usage reached the warning threshold. Over quota the cutoff is one day,
// otherwise keepDays. If the list still does not fit it collapses to the
// candidate alone. The candidate itself is never evicted by age.
func (p Policy) Admit(candidate domain.HistoryEntry, entries []domain.HistoryEntry, prefs domain.StoragePreferences) ([]domain.HistoryEntry, Outcome) {
	for _, e := range entries {
		if e.ID == candidate.ID {
			return entries, Outcome{Duplicate: true, Size: p.Sizes.History(entries)}
		}
	}

	quota := p.quota()
	next := make([]domain.HistoryEntry, 0, len(entries)+1)
	next = append(next, candidate)
	next = append(next, entries...)

	// Prepending adds the candidate and, unless the list was empty, a comma.
	candidateSize := p.Sizes.Entry(candidate)
	size := p.Sizes.History(entries) + candidateSize
	if len(entries) > 0 {
		size++
	}
	out := Outcome{OverLimit: size >= quota}
	pct := float64(size) / float64(quota) * 100

	if out.OverLimit || (prefs.AutoCleanup && pct >= float64(prefs.WarningThreshold)) {
		retention := time.Duration(prefs.KeepDays) * 24 * time.Hour
		if out.OverLimit {
			retention = domain.OverLimitRetention
		}
		out.Cutoff = p.now().Add(-retention)
		kept, removed := OlderThan(next[1:], out.Cutoff)
		if removed > 0 {
			next = append([]domain.HistoryEntry{candidate}, kept...)
			out.Removed = removed
			size = p.Sizes.History(next)
		}
	}

	if size >= quota && len(next) > 1 {
		out.Removed += len(next) - 1
		next = []domain.HistoryEntry{candidate}
		out.Collapsed = true
		size = arraySize(candidateSize, 1)
	}
	out.Size = size
	return next, out
}

func (p Policy) quota() int64 {
	if p.Quota <= 0 {
		return domain.StorageQuotaBytes
	}
	return p.Quota
}

func (p Policy) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

// OlderThan drops entries created strictly before cutoff.
func OlderThan(entries []domain.HistoryEntry, cutoff time.Time) ([]domain.HistoryEntry, int) {
	kept := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.OlderThan(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept, len(entries) - len(kept)
}

// FailedRequests drops entries whose call ended with status >= 400.
func FailedRequests(entries []domain.HistoryEntry) ([]domain.HistoryEntry, int) {
	kept := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Failed() {
			kept = append(kept, e)
		}
	}
	return kept, len(entries) - len(kept)
}

// FailedVideos drops queue items in the failed state.
func FailedVideos(queue []domain.VideoQueueItem) ([]domain.VideoQueueItem, int) {
	kept := make([]domain.VideoQueueItem, 0, len(queue))
	for _, item := range queue {
		if item.Status != domain.VideoFailed {
			kept = append(kept, item)
		}
	}
	return kept, len(queue) - len(kept)
}

func nonNil(entries []domain.HistoryEntry) []domain.HistoryEntry {
	if entries == nil {
		return []domain.HistoryEntry{}
	}
	return entries
}
