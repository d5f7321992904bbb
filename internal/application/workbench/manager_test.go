package workbench

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/infrastructure/persist"
	"github.com/alle-ai/alle-go/internal/pkg/clock"
	"github.com/alle-ai/alle-go/internal/pkg/logger"
)

type flakyStore struct {
	*persist.MemoryStore
	fail bool
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func newTestManager(t *testing.T, quota int64) (*Manager, *clock.Fake, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryStore: persist.NewMemoryStore()}
	clk := clock.NewFake(testNow)
	m := NewManager(Options{
		Store:  store,
		UserID: "user-1",
		Quota:  quota,
		Clock:  clk,
		Logger: logger.Nop{},
	})
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	return m, clk, store
}

func storedState(t *testing.T, store *flakyStore) domain.PersistedState {
	t.Helper()
	data, ok, err := store.Get(context.Background(), domain.DefaultStorageKey)
	if err != nil || !ok {
		t.Fatalf("stored state missing: ok=%v err=%v", ok, err)
	}
	var state domain.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		t.Fatalf("stored state invalid: %v", err)
	}
	return state
}

func TestInitStartsEmptyWithDefaults(t *testing.T) {
	m, _, _ := newTestManager(t, 0)

	if len(m.History()) != 0 || len(m.VideoQueue()) != 0 {
		t.Fatal("expected empty collections")
	}
	if m.Preferences() != domain.DefaultStoragePreferences() {
		t.Errorf("prefs = %+v", m.Preferences())
	}
	if m.UserID() != "user-1" {
		t.Errorf("userId = %q", m.UserID())
	}
}

func TestInitRecoversFromCorruptBlob(t *testing.T) {
	store := persist.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, domain.DefaultStorageKey, []byte("{not json")); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	m := NewManager(Options{Store: store, Clock: clock.NewFake(testNow), Logger: logger.Nop{}})
	if err := m.Init(ctx); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if len(m.History()) != 0 {
		t.Error("expected empty history after corrupt blob")
	}
	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, "a")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
}

func TestInitRestoresPersistedState(t *testing.T) {
	ctx := context.Background()
	m, _, store := newTestManager(t, 0)
	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, "a")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	m.Wait()

	reloaded := NewManager(Options{Store: store, Clock: clock.NewFake(testNow), Logger: logger.Nop{}})
	if err := reloaded.Init(ctx); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if diff := cmp.Diff(ids(m.History()), ids(reloaded.History())); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if reloaded.Stats().Used != m.Stats().Used {
		t.Errorf("stats after reload = %d, want %d", reloaded.Stats().Used, m.Stats().Used)
	}
}

func TestQuotaInvariantHoldsAcrossInserts(t *testing.T) {
	ctx := context.Background()
	const quota = 4096
	m, clk, store := newTestManager(t, quota)

	for i := 0; i < 40; i++ {
		clk.Advance(time.Minute)
		entry := entryAt("e"+string(rune('A'+i)), clk.Now(), 200, strings.Repeat("p", 200))
		if _, err := m.AddHistoryItem(ctx, entry); err != nil {
			t.Fatalf("AddHistoryItem %d error: %v", i, err)
		}
		if size := EstimateSize(storedState(t, store).History); size > quota {
			t.Fatalf("after insert %d stored history is %d bytes, over quota %d", i, size, quota)
		}
	}
}

func TestAddHistoryItemIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	entry := entryAt("a", testNow, 200, "a")

	if _, err := m.AddHistoryItem(ctx, entry); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	out, err := m.AddHistoryItem(ctx, entry)
	if err != nil {
		t.Fatalf("second AddHistoryItem error: %v", err)
	}
	if !out.Duplicate || len(m.History()) != 1 {
		t.Errorf("duplicate add changed history: %v", ids(m.History()))
	}
}

func TestAddHistoryItemClearsActiveEntry(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	first := entryAt("a", testNow, 200, "a")
	if _, err := m.AddHistoryItem(ctx, first); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	m.ViewHistoryItem(first)
	if m.ActiveHistoryID() != "a" {
		t.Fatalf("active = %q", m.ActiveHistoryID())
	}

	if _, err := m.AddHistoryItem(ctx, entryAt("b", testNow, 200, "b")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	if m.ActiveHistoryID() != "" {
		t.Errorf("active = %q after add, want empty", m.ActiveHistoryID())
	}
}

func TestCleanupOldHistory(t *testing.T) {
	ctx := context.Background()
	m, _, store := newTestManager(t, 0)
	day := 24 * time.Hour
	for _, e := range []domain.HistoryEntry{
		entryAt("40d", testNow.Add(-40*day), 200, ""),
		entryAt("10d", testNow.Add(-10*day), 200, ""),
		entryAt("1d", testNow.Add(-1*day), 200, ""),
	} {
		if _, err := m.AddHistoryItem(ctx, e); err != nil {
			t.Fatalf("AddHistoryItem error: %v", err)
		}
	}

	removed, err := m.CleanupOldHistory(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOldHistory error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if diff := cmp.Diff([]string{"1d", "10d"}, ids(storedState(t, store).History)); diff != "" {
		t.Errorf("stored history mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.CleanupOldHistory(ctx, -1); err == nil {
		t.Error("expected error for negative days")
	}
}

func TestCleanupFailedRequests(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	for _, e := range []domain.HistoryEntry{
		entryAt("ok", testNow, 200, ""),
		entryAt("missing", testNow, 404, ""),
		entryAt("broken", testNow, 500, ""),
	} {
		if _, err := m.AddHistoryItem(ctx, e); err != nil {
			t.Fatalf("AddHistoryItem error: %v", err)
		}
	}
	done := domain.NewVideoQueueItem("v-done", "job-1", "", "p", []string{"veo-2"}, testNow)
	if err := done.Complete("https://x/y.mp4"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	failed := domain.NewVideoQueueItem("v-failed", "job-2", "", "p", []string{"veo-2"}, testNow)
	if err := failed.Fail("boom", domain.VideoErrorGeneric); err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	for _, item := range []domain.VideoQueueItem{done, failed} {
		if err := m.AddVideoItem(ctx, item); err != nil {
			t.Fatalf("AddVideoItem error: %v", err)
		}
	}

	removedHistory, removedVideos, err := m.CleanupFailedRequests(ctx)
	if err != nil {
		t.Fatalf("CleanupFailedRequests error: %v", err)
	}
	if removedHistory != 2 || removedVideos != 1 {
		t.Errorf("removed = %d/%d, want 2/1", removedHistory, removedVideos)
	}
	if diff := cmp.Diff([]string{"ok"}, ids(m.History())); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	if q := m.VideoQueue(); len(q) != 1 || q[0].ID != "v-done" {
		t.Errorf("queue = %+v", q)
	}
}

func TestIsRestoreDisabled(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)

	first, _, err := m.RecordCall(ctx,
		domain.NewChatPayload(domain.ChatRequest{Model: "gpt-4o", Messages: []domain.ChatMessage{{Role: "user", Content: "hi"}}}),
		domain.NewTextResponse("hello"),
		domain.ResponseStats{StatusCode: 200, StatusText: "OK"},
	)
	if err != nil {
		t.Fatalf("RecordCall error: %v", err)
	}
	if first.Name != "hi" {
		t.Errorf("name = %q, want hi", first.Name)
	}
	if !m.IsRestoreDisabled(first.ID) {
		t.Fatal("sole entry with a displayed response should not be restorable")
	}

	if _, err := m.AddHistoryItem(ctx, entryAt("second", testNow, 200, "b")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	if m.IsRestoreDisabled(first.ID) {
		t.Error("first entry should be restorable once a second entry exists")
	}

	if _, err := m.ViewHistoryItemByID(first.ID); err != nil {
		t.Fatalf("ViewHistoryItemByID error: %v", err)
	}
	if !m.IsRestoreDisabled(first.ID) {
		t.Error("active entry should not be restorable")
	}
	if m.Displayed().Response.String() != "hello" {
		t.Errorf("displayed = %q", m.Displayed().Response.String())
	}

	if _, err := m.ViewHistoryItemByID("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ViewHistoryItemByID(nope) = %v, want ErrNotFound", err)
	}
}

func TestClearHistoryEmptiesBothCollections(t *testing.T) {
	ctx := context.Background()
	m, _, store := newTestManager(t, 0)
	entry := entryAt("a", testNow, 200, "a")
	if _, err := m.AddHistoryItem(ctx, entry); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	if err := m.AddVideoItem(ctx, domain.NewVideoQueueItem("v", "job", "", "p", nil, testNow)); err != nil {
		t.Fatalf("AddVideoItem error: %v", err)
	}
	m.ViewHistoryItem(entry)

	if err := m.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory error: %v", err)
	}
	state := storedState(t, store)
	if len(state.History) != 0 || len(state.VideoQueue) != 0 {
		t.Errorf("stored state not cleared: %+v", state)
	}
	if m.ActiveHistoryID() != "" {
		t.Error("active id should be cleared")
	}
}

func TestFailedPersistRollsBack(t *testing.T) {
	ctx := context.Background()
	m, _, store := newTestManager(t, 0)
	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, "a")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}

	store.fail = true
	if _, err := m.AddHistoryItem(ctx, entryAt("b", testNow, 200, "b")); err == nil {
		t.Fatal("expected persist error")
	}
	if err := m.ClearHistory(ctx); err == nil {
		t.Fatal("expected persist error")
	}
	if diff := cmp.Diff([]string{"a"}, ids(m.History())); diff != "" {
		t.Errorf("in-memory history changed despite failed write (-want +got):\n%s", diff)
	}
}

func TestStatsRecomputeAfterMutation(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	before := m.Stats()

	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, strings.Repeat("x", 1000))); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	m.Wait()

	after := m.Stats()
	want := Measure(m.History(), m.VideoQueue())
	if after != want {
		t.Errorf("stats = %+v, want %+v", after, want)
	}
	if after.Used <= before.Used {
		t.Errorf("used did not grow: %d -> %d", before.Used, after.Used)
	}
}

func TestUpdateStoragePreferences(t *testing.T) {
	ctx := context.Background()
	m, _, store := newTestManager(t, 0)
	off := false
	days := 7

	prefs, err := m.UpdateStoragePreferences(ctx, domain.PreferencesPatch{AutoCleanup: &off, KeepDays: &days})
	if err != nil {
		t.Fatalf("UpdateStoragePreferences error: %v", err)
	}
	want := domain.StoragePreferences{AutoCleanup: false, KeepDays: 7, WarningThreshold: domain.DefaultWarningThreshold}
	if prefs != want || storedState(t, store).StoragePreferences != want {
		t.Errorf("prefs = %+v, want %+v", prefs, want)
	}

	bad := 0
	if _, err := m.UpdateStoragePreferences(ctx, domain.PreferencesPatch{KeepDays: &bad}); err == nil {
		t.Error("expected validation error")
	}
	if m.Preferences() != want {
		t.Error("invalid patch changed preferences")
	}
}

func TestStorageWarning(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 2000)
	threshold := 10
	off := false
	if _, err := m.UpdateStoragePreferences(ctx, domain.PreferencesPatch{WarningThreshold: &threshold, AutoCleanup: &off}); err != nil {
		t.Fatalf("UpdateStoragePreferences error: %v", err)
	}
	m.Wait()
	if _, ok := m.StorageWarning(); ok {
		t.Fatal("empty storage should not warn")
	}

	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, strings.Repeat("x", 300))); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}
	m.Wait()
	w, ok := m.StorageWarning()
	if !ok {
		t.Fatalf("expected warning, stats %+v", m.Stats())
	}
	if w.Threshold != 10 || !strings.Contains(w.Message, "warning at 10%") {
		t.Errorf("warning = %+v", w)
	}
}

func TestExportHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.AddHistoryItem(ctx, entryAt(id, testNow, 200, id)); err != nil {
			t.Fatalf("AddHistoryItem error: %v", err)
		}
	}

	out, err := m.ExportHistory()
	if err != nil {
		t.Fatalf("ExportHistory error: %v", err)
	}
	if !strings.Contains(out, "\n  \"exportDate\"") {
		t.Errorf("export is not 2-space indented:\n%s", out[:80])
	}

	var snapshot domain.ExportSnapshot
	if err := json.Unmarshal([]byte(out), &snapshot); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(ids(m.History()), ids(snapshot.History)); diff != "" {
		t.Errorf("export history mismatch (-want +got):\n%s", diff)
	}
	if snapshot.TotalHistoryItems != 3 || snapshot.ExportDate != "2024-06-01T12:00:00.000Z" {
		t.Errorf("snapshot header = %d %s", snapshot.TotalHistoryItems, snapshot.ExportDate)
	}
	if snapshot.StorageStats.Total != "5.00 MB" || !strings.HasSuffix(snapshot.StorageStats.Percentage, "%") {
		t.Errorf("storage stats = %+v", snapshot.StorageStats)
	}
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC)
	want := "alle-ai-api-history-2024-01-02T03-04-05-678Z.json"
	if got := ExportFileName(now); got != want {
		t.Errorf("ExportFileName = %s, want %s", got, want)
	}
}

func TestExportToDir(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name     string
		compress bool
		suffix   string
	}{
		{name: "plain", suffix: ".json"},
		{name: "zstd", compress: true, suffix: ".json.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestManager(t, 0)
			if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, "a")); err != nil {
				t.Fatalf("AddHistoryItem error: %v", err)
			}
			dir := filepath.Join(t.TempDir(), "exports")

			path, err := m.ExportToDir(dir, tt.compress)
			if err != nil {
				t.Fatalf("ExportToDir error: %v", err)
			}
			if !strings.HasSuffix(path, tt.suffix) {
				t.Errorf("path = %s, want suffix %s", path, tt.suffix)
			}
			snapshot, err := ReadExport(path)
			if err != nil {
				t.Fatalf("ReadExport error: %v", err)
			}
			if len(snapshot.History) != 1 || snapshot.History[0].ID != "a" {
				t.Errorf("snapshot history = %v", ids(snapshot.History))
			}
		})
	}
}

func TestExportAndClear(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t, 0)
	if _, err := m.AddHistoryItem(ctx, entryAt("a", testNow, 200, "a")); err != nil {
		t.Fatalf("AddHistoryItem error: %v", err)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if _, err := m.ExportAndClear(ctx, filepath.Join(blocker, "sub"), false); err == nil {
		t.Fatal("expected export error")
	}
	if len(m.History()) != 1 {
		t.Fatal("history cleared although export failed")
	}

	path, err := m.ExportAndClear(ctx, t.TempDir(), false)
	if err != nil {
		t.Fatalf("ExportAndClear error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
	if len(m.History()) != 0 {
		t.Error("history not cleared")
	}
}
