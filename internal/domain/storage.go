package domain

import (
	"encoding/json"
	"fmt"

	"github.com/alle-ai/alle-go/internal/pkg/validation"
)

// StoragePreferences are the user-configurable eviction settings.
type StoragePreferences struct {
	AutoCleanup      bool `json:"autoCleanup"`
	KeepDays         int  `json:"keepDays" validate:"min=1"`
	WarningThreshold int  `json:"warningThreshold" validate:"min=0,max=100"`
}

// DefaultStoragePreferences returns the preferences used when none are stored.
func DefaultStoragePreferences() StoragePreferences {
	return StoragePreferences{
		AutoCleanup:      DefaultAutoCleanup,
		KeepDays:         DefaultKeepDays,
		WarningThreshold: DefaultWarningThreshold,
	}
}

// PreferencesPatch is a shallow partial update; nil fields are left alone.
type PreferencesPatch struct {
	AutoCleanup      *bool
	KeepDays         *int
	WarningThreshold *int
}

// IsEmpty reports whether the patch changes nothing.
func (p PreferencesPatch) IsEmpty() bool {
	return p.AutoCleanup == nil && p.KeepDays == nil && p.WarningThreshold == nil
}

// Apply merges the patch into prefs and validates the result. prefs is
// returned unchanged when the merged value is invalid.
func (p PreferencesPatch) Apply(prefs StoragePreferences) (StoragePreferences, error) {
	if p.IsEmpty() {
		return prefs, nil
	}
	merged := prefs
	if p.AutoCleanup != nil {
		merged.AutoCleanup = *p.AutoCleanup
	}
	if p.KeepDays != nil {
		merged.KeepDays = *p.KeepDays
	}
	if p.WarningThreshold != nil {
		merged.WarningThreshold = *p.WarningThreshold
	}
	if err := validation.Struct(merged); err != nil {
		return prefs, err
	}
	return merged, nil
}

// StorageStats is the derived usage of the persisted collections. Never persisted.
type StorageStats struct {
	Used       int64   `json:"used"`
	Total      int64   `json:"total"`
	Percentage float64 `json:"percentage"`
}

// NewStorageStats derives the percentage from used and total.
func NewStorageStats(used, total int64) StorageStats {
	stats := StorageStats{Used: used, Total: total}
	if total > 0 {
		stats.Percentage = float64(used) / float64(total) * 100
	}
	return stats
}

// ShouldWarn reports whether usage has reached the warning threshold.
func (s StorageStats) ShouldWarn(prefs StoragePreferences) bool {
	return s.Percentage >= float64(prefs.WarningThreshold)
}

// UsedMB formats used bytes as megabytes with two decimals.
func (s StorageStats) UsedMB() string {
	return formatMB(s.Used)
}

// TotalMB formats the quota as megabytes with two decimals.
func (s StorageStats) TotalMB() string {
	return formatMB(s.Total)
}

// PercentageString formats the usage percentage with one decimal.
func (s StorageStats) PercentageString() string {
	return fmt.Sprintf("%.1f%%", s.Percentage)
}

func formatMB(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// PersistedState is the single JSON blob kept in the key-value store.
type PersistedState struct {
	UserID             string             `json:"userId"`
	History            []HistoryEntry     `json:"history"`
	VideoQueue         []VideoQueueItem   `json:"videoQueue"`
	StoragePreferences StoragePreferences `json:"storagePreferences"`
}

// NewPersistedState returns an empty state with default preferences.
func NewPersistedState(userID string) PersistedState {
	return PersistedState{
		UserID:             userID,
		History:            []HistoryEntry{},
		VideoQueue:         []VideoQueueItem{},
		StoragePreferences: DefaultStoragePreferences(),
	}
}

// UnmarshalJSON fills defaults for fields missing from older blobs.
func (s *PersistedState) UnmarshalJSON(data []byte) error {
	type rawState PersistedState
	decoded := rawState{StoragePreferences: DefaultStoragePreferences()}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if decoded.History == nil {
		decoded.History = []HistoryEntry{}
	}
	if decoded.VideoQueue == nil {
		decoded.VideoQueue = []VideoQueueItem{}
	}
	*s = PersistedState(decoded)
	return nil
}

// Clone copies the collections so the copy can be mutated independently.
func (s PersistedState) Clone() PersistedState {
	out := s
	out.History = append([]HistoryEntry{}, s.History...)
	out.VideoQueue = make([]VideoQueueItem, len(s.VideoQueue))
	for i, item := range s.VideoQueue {
		out.VideoQueue[i] = item.Clone()
	}
	return out
}

// Clone deep-copies the item's slices and maps.
func (v VideoQueueItem) Clone() VideoQueueItem {
	out := v
	out.Models = append([]string(nil), v.Models...)
	if v.ModelStatuses != nil {
		out.ModelStatuses = make(map[string]VideoStatus, len(v.ModelStatuses))
		for k, s := range v.ModelStatuses {
			out.ModelStatuses[k] = s
		}
	}
	return out
}
