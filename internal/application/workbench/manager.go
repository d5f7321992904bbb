package workbench

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// Options configures a Manager.
type Options struct {
	Store  ports.KVStore
	Key    string
	UserID string
	Quota  int64
	Clock  ports.Clock
	Logger ports.Logger
}

// Displayed is the response currently shown in the workbench.
type Displayed struct {
	Response domain.ResponsePayload
	Stats    domain.ResponseStats
}

// Warning is the non-blocking notice shown when usage reaches the threshold.
type Warning struct {
	Stats     domain.StorageStats
	Threshold int
	Message   string
}

// Manager is the only writer of the persisted workbench state. Every mutation
// is serialized by mu and written through to the store before it becomes
// visible; a failed write leaves the in-memory state untouched.
type Manager struct {
	store  ports.KVStore
	key    string
	userID string
	quota  int64
	clock  ports.Clock
	logger ports.Logger
	sizes  *SizeCache

	mu              sync.Mutex
	state           domain.PersistedState
	activeHistoryID string
	displayed       Displayed
	stats           domain.StorageStats

	pending sync.WaitGroup
}

// NewManager builds a Manager. Call Init before use.
func NewManager(opts Options) *Manager {
	key := opts.Key
	if key == "" {
		key = domain.DefaultStorageKey
	}
	quota := opts.Quota
	if quota <= 0 {
		quota = domain.StorageQuotaBytes
	}
	return &Manager{
		store:  opts.Store,
		key:    key,
		userID: opts.UserID,
		quota:  quota,
		clock:  opts.Clock,
		logger: opts.Logger,
		sizes:  NewSizeCache(),
		state:  domain.NewPersistedState(opts.UserID),
		stats:  domain.NewStorageStats(0, quota),
	}
}

// Init loads the persisted blob. A missing blob starts empty; a corrupt one
// is logged and replaced by defaults on the next write.
func (m *Manager) Init(ctx context.Context) error {
	if m.store == nil || m.clock == nil || m.logger == nil {
		return errors.New("workbench.Manager dependencies not satisfied")
	}
	data, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		return fmt.Errorf("failed to load workbench state: %w", err)
	}

	state := domain.NewPersistedState(m.userID)
	if ok {
		var decoded domain.PersistedState
		if err := json.Unmarshal(data, &decoded); err != nil {
			m.logger.Error("stored workbench state is corrupt, starting empty", err, map[string]interface{}{
				"key":   m.key,
				"bytes": len(data),
			})
		} else {
			state = decoded
			if state.UserID == "" {
				state.UserID = m.userID
			}
		}
	}

	m.mu.Lock()
	m.state = state
	m.activeHistoryID = ""
	m.sizes.Reset()
	m.stats = measureCached(m.sizes, state.History, state.VideoQueue, m.quota)
	m.mu.Unlock()

	m.logger.Debug("workbench state loaded", map[string]interface{}{
		"history": len(state.History),
		"videos":  len(state.VideoQueue),
	})
	return nil
}

// commit persists next and swaps it in. Callers hold mu.
func (m *Manager) commit(ctx context.Context, next domain.PersistedState) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode workbench state: %w", err)
	}
	if err := m.store.Set(ctx, m.key, data); err != nil {
		m.logger.Error("failed to persist workbench state", err, map[string]interface{}{"key": m.key})
		m.sizes.Retain(m.state.History)
		return fmt.Errorf("failed to persist workbench state: %w", err)
	}
	m.state = next
	m.sizes.Retain(next.History)
	m.scheduleStatsRefresh()
	return nil
}

func (m *Manager) scheduleStatsRefresh() {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.UpdateStorageStats()
	}()
}

// Wait blocks until every scheduled stats recompute has run.
func (m *Manager) Wait() {
	m.pending.Wait()
}

func (m *Manager) policy() Policy {
	return Policy{Quota: m.quota, Now: m.clock.Now, Sizes: m.sizes}
}

// AddHistoryItem admits entry through the eviction policy and persists the result.
// Re-adding a known id is a no-op reported through Outcome.Duplicate.
func (m *Manager) AddHistoryItem(ctx context.Context, entry domain.HistoryEntry) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history, outcome := m.policy().Admit(entry, m.state.History, m.state.StoragePreferences)
	m.activeHistoryID = ""
	if outcome.Duplicate {
		m.logger.Debug("history entry already present", map[string]interface{}{"id": entry.ID})
		return outcome, nil
	}

	next := m.state.Clone()
	next.History = history
	if err := m.commit(ctx, next); err != nil {
		return outcome, err
	}

	if outcome.Removed > 0 {
		m.logger.Info("history evicted", map[string]interface{}{
			"removed":    outcome.Removed,
			"collapsed":  outcome.Collapsed,
			"over_limit": outcome.OverLimit,
		})
	}
	return outcome, nil
}

// RecordCall turns a finished workbench call into a history entry, shows its
// response and adds it.
func (m *Manager) RecordCall(ctx context.Context, req domain.RequestPayload, resp domain.ResponsePayload, stats domain.ResponseStats) (domain.HistoryEntry, Outcome, error) {
	entry := domain.HistoryEntry{
		ID:            uuid.New().String(),
		Name:          req.Label(),
		Timestamp:     m.clock.Now(),
		StatusCode:    stats.StatusCode,
		Request:       req,
		Response:      resp,
		ResponseStats: stats,
	}

	m.mu.Lock()
	m.displayed = Displayed{Response: resp, Stats: stats}
	m.mu.Unlock()

	outcome, err := m.AddHistoryItem(ctx, entry)
	return entry, outcome, err
}

// ViewHistoryItem shows entry's response and marks it active. Storage is not touched.
func (m *Manager) ViewHistoryItem(entry domain.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.displayed = Displayed{Response: entry.Response, Stats: entry.ResponseStats}
	m.activeHistoryID = entry.ID
}

// ViewHistoryItemByID looks the entry up and views it.
func (m *Manager) ViewHistoryItemByID(id string) (domain.HistoryEntry, error) {
	entry, ok := m.HistoryItem(id)
	if !ok {
		return domain.HistoryEntry{}, fmt.Errorf("history entry %s: %w", id, domain.ErrNotFound)
	}
	m.ViewHistoryItem(entry)
	return entry, nil
}

// IsRestoreDisabled reports whether restoring id would be a no-op: it is
// already active, or it is the only entry and a response is already shown.
func (m *Manager) IsRestoreDisabled(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == m.activeHistoryID {
		return true
	}
	return len(m.state.History) == 1 &&
		m.state.History[0].ID == id &&
		!m.displayed.Response.IsEmpty()
}

// ClearHistory empties history and the video queue.
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state.Clone()
	next.History = []domain.HistoryEntry{}
	next.VideoQueue = []domain.VideoQueueItem{}
	if err := m.commit(ctx, next); err != nil {
		return err
	}
	m.activeHistoryID = ""
	m.logger.Info("history cleared", nil)
	return nil
}

// CleanupOldHistory removes entries older than days.
func (m *Manager) CleanupOldHistory(ctx context.Context, days int) (int, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must be >= 0, got %d", days)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)
	kept, removed := OlderThan(m.state.History, cutoff)
	if removed == 0 {
		return 0, nil
	}
	next := m.state.Clone()
	next.History = kept
	if err := m.commit(ctx, next); err != nil {
		return 0, err
	}
	m.clearActiveIfGone()
	m.logger.Info("old history removed", map[string]interface{}{"removed": removed, "days": days})
	return removed, nil
}

// CleanupFailedRequests removes failed calls and failed video jobs.
func (m *Manager) CleanupFailedRequests(ctx context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history, removedHistory := FailedRequests(m.state.History)
	queue, removedVideos := FailedVideos(m.state.VideoQueue)
	if removedHistory == 0 && removedVideos == 0 {
		return 0, 0, nil
	}
	next := m.state.Clone()
	next.History = history
	next.VideoQueue = queue
	if err := m.commit(ctx, next); err != nil {
		return 0, 0, err
	}
	m.clearActiveIfGone()
	m.logger.Info("failed requests removed", map[string]interface{}{
		"history": removedHistory,
		"videos":  removedVideos,
	})
	return removedHistory, removedVideos, nil
}

func (m *Manager) clearActiveIfGone() {
	if m.activeHistoryID == "" {
		return
	}
	for _, e := range m.state.History {
		if e.ID == m.activeHistoryID {
			return
		}
	}
	m.activeHistoryID = ""
}

// UpdateStoragePreferences merges patch into the stored preferences.
func (m *Manager) UpdateStoragePreferences(ctx context.Context, patch domain.PreferencesPatch) (domain.StoragePreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefs, err := patch.Apply(m.state.StoragePreferences)
	if err != nil {
		return m.state.StoragePreferences, err
	}
	if patch.IsEmpty() {
		return prefs, nil
	}
	next := m.state.Clone()
	next.StoragePreferences = prefs
	if err := m.commit(ctx, next); err != nil {
		return m.state.StoragePreferences, err
	}
	return prefs, nil
}

// UpdateStorageStats recomputes usage synchronously and stores it.
func (m *Manager) UpdateStorageStats() domain.StorageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = measureCached(m.sizes, m.state.History, m.state.VideoQueue, m.quota)
	return m.stats
}

// Stats returns the last computed usage. It may lag a mutation until Wait returns.
func (m *Manager) Stats() domain.StorageStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// StorageWarning reports whether usage reached the warning threshold.
func (m *Manager) StorageWarning() (Warning, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefs := m.state.StoragePreferences
	if !m.stats.ShouldWarn(prefs) {
		return Warning{}, false
	}
	msg := fmt.Sprintf("Storage is %s full (warning at %d%%). Older history will be removed automatically.",
		m.stats.PercentageString(), prefs.WarningThreshold)
	if !prefs.AutoCleanup {
		msg = fmt.Sprintf("Storage is %s full (warning at %d%%). Once the quota is reached older history will be removed.",
			m.stats.PercentageString(), prefs.WarningThreshold)
	}
	return Warning{Stats: m.stats, Threshold: prefs.WarningThreshold, Message: msg}, true
}

// History returns a copy of the history, most recent first.
func (m *Manager) History() []domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.HistoryEntry{}, m.state.History...)
}

// HistoryItem looks an entry up by id.
func (m *Manager) HistoryItem(id string) (domain.HistoryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.state.History {
		if e.ID == id {
			return e, true
		}
	}
	return domain.HistoryEntry{}, false
}

// Preferences returns the stored preferences.
func (m *Manager) Preferences() domain.StoragePreferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.StoragePreferences
}

// ActiveHistoryID returns the id of the entry being viewed, or "".
func (m *Manager) ActiveHistoryID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeHistoryID
}

// Displayed returns the response currently shown.
func (m *Manager) Displayed() Displayed {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayed
}

// UserID returns the owner recorded in the persisted state.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UserID
}
