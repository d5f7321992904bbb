package workbench

import (
	"context"
	"fmt"

	"github.com/alle-ai/alle-go/internal/domain"
)

// AddVideoItem puts a new item at the front of the queue.
func (m *Manager) AddVideoItem(ctx context.Context, item domain.VideoQueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.state.VideoQueue {
		if existing.ID == item.ID {
			return fmt.Errorf("video item %s already queued", item.ID)
		}
	}
	next := m.state.Clone()
	next.VideoQueue = append([]domain.VideoQueueItem{item.Clone()}, next.VideoQueue...)
	return m.commit(ctx, next)
}

// UpdateVideoItem applies fn to the latest stored copy of item id and persists
// the result. Nothing is written when fn returns an error.
func (m *Manager) UpdateVideoItem(ctx context.Context, id string, fn func(*domain.VideoQueueItem) error) (domain.VideoQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.videoIndex(id)
	if idx < 0 {
		return domain.VideoQueueItem{}, fmt.Errorf("video item %s: %w", id, domain.ErrNotFound)
	}
	item := m.state.VideoQueue[idx].Clone()
	if err := fn(&item); err != nil {
		return m.state.VideoQueue[idx].Clone(), err
	}
	// A guard may abandon the update after fn ran.
	if err := ctx.Err(); err != nil {
		return m.state.VideoQueue[idx].Clone(), err
	}
	next := m.state.Clone()
	next.VideoQueue[idx] = item
	if err := m.commit(ctx, next); err != nil {
		return m.state.VideoQueue[idx].Clone(), err
	}
	return item.Clone(), nil
}

// RemoveVideoItem deletes one item.
func (m *Manager) RemoveVideoItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.videoIndex(id)
	if idx < 0 {
		return fmt.Errorf("video item %s: %w", id, domain.ErrNotFound)
	}
	next := m.state.Clone()
	next.VideoQueue = append(next.VideoQueue[:idx], next.VideoQueue[idx+1:]...)
	return m.commit(ctx, next)
}

// ClearVideoQueue deletes every item and returns how many were removed.
func (m *Manager) ClearVideoQueue(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.state.VideoQueue)
	if n == 0 {
		return 0, nil
	}
	next := m.state.Clone()
	next.VideoQueue = []domain.VideoQueueItem{}
	if err := m.commit(ctx, next); err != nil {
		return 0, err
	}
	return n, nil
}

// VideoQueue returns a copy of the queue, most recent first.
func (m *Manager) VideoQueue() []domain.VideoQueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.VideoQueueItem, len(m.state.VideoQueue))
	for i, item := range m.state.VideoQueue {
		out[i] = item.Clone()
	}
	return out
}

// PendingVideos returns copies of the items still processing, in queue order.
func (m *Manager) PendingVideos() []domain.VideoQueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.VideoQueueItem
	for _, item := range m.state.VideoQueue {
		if item.IsProcessing() {
			out = append(out, item.Clone())
		}
	}
	return out
}

// VideoItem looks an item up by id.
func (m *Manager) VideoItem(id string) (domain.VideoQueueItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.videoIndex(id)
	if idx < 0 {
		return domain.VideoQueueItem{}, false
	}
	return m.state.VideoQueue[idx].Clone(), true
}

func (m *Manager) videoIndex(id string) int {
	for i, item := range m.state.VideoQueue {
		if item.ID == id {
			return i
		}
	}
	return -1
}
