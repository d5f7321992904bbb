package workbench

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/alle-ai/alle-go/internal/domain"
)

// isoMillis matches the ISO-8601 form with millisecond precision used in export names.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ExportHistory renders the current history and queue as indented JSON.
// It does not modify the store.
func (m *Manager) ExportHistory() (string, error) {
	data, err := m.exportBytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *Manager) exportBytes() ([]byte, error) {
	m.mu.Lock()
	history := append([]domain.HistoryEntry{}, m.state.History...)
	queue := make([]domain.VideoQueueItem, len(m.state.VideoQueue))
	for i, item := range m.state.VideoQueue {
		queue[i] = item.Clone()
	}
	now := m.clock.Now()
	m.mu.Unlock()

	stats := MeasureWithQuota(history, queue, m.quota)
	snapshot := domain.ExportSnapshot{
		ExportDate:        now.UTC().Format(isoMillis),
		TotalHistoryItems: len(history),
		TotalVideoItems:   len(queue),
		StorageStats: domain.ExportStorageStats{
			Used:       stats.UsedMB(),
			Total:      stats.TotalMB(),
			Percentage: stats.PercentageString(),
		},
		History:    history,
		VideoQueue: queue,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ExportFileName returns alle-ai-api-history-<timestamp>.json with ':' and '.'
// in the timestamp replaced by '-'.
func ExportFileName(now time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format(isoMillis))
	return domain.ExportFilePrefix + stamp + ".json"
}

// ExportToDir writes the export into dir and returns the file path. With
// compress the file is zstd-encoded and gets a .zst suffix.
func (m *Manager) ExportToDir(dir string, compress bool) (string, error) {
	data, err := m.exportBytes()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, domain.DirectoryPermissions); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, ExportFileName(m.clock.Now()))
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return "", fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
		path += ".zst"
	}

	if err := os.WriteFile(path, data, domain.ExportFilePermissions); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	m.logger.Info("history exported", map[string]interface{}{"path": path, "bytes": len(data)})
	return path, nil
}

// ExportAndClear exports, then clears history and queue. Nothing is cleared
// when the export fails.
func (m *Manager) ExportAndClear(ctx context.Context, dir string, compress bool) (string, error) {
	path, err := m.ExportToDir(dir, compress)
	if err != nil {
		return "", err
	}
	if err := m.ClearHistory(ctx); err != nil {
		return path, fmt.Errorf("exported to %s but failed to clear history: %w", path, err)
	}
	return path, nil
}

// ReadExport decodes an export file written by ExportToDir, compressed or not.
func ReadExport(path string) (domain.ExportSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ExportSnapshot{}, err
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return domain.ExportSnapshot{}, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return domain.ExportSnapshot{}, fmt.Errorf("failed to decompress export: %w", err)
		}
	}
	var snapshot domain.ExportSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.ExportSnapshot{}, fmt.Errorf("failed to decode export: %w", err)
	}
	return snapshot, nil
}
