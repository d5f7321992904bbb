// Package video reconciles queued video generation jobs with the backend.
package video

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// Queue is the slice of workbench.Manager the poller and service need.
type Queue interface {
	PendingVideos() []domain.VideoQueueItem
	VideoItem(id string) (domain.VideoQueueItem, bool)
	AddVideoItem(ctx context.Context, item domain.VideoQueueItem) error
	UpdateVideoItem(ctx context.Context, id string, fn func(*domain.VideoQueueItem) error) (domain.VideoQueueItem, error)
	RemoveVideoItem(ctx context.Context, id string) error
	ClearVideoQueue(ctx context.Context) (int, error)
}

// errStale aborts an update whose item moved on while the status call was in flight.
var errStale = errors.New("video item changed during status check")

// Poller checks processing items on a fixed interval until none remain.
type Poller struct {
	Queue    Queue
	Backend  ports.VideoBackend
	Clock    ports.Clock
	Interval time.Duration
	Logger   ports.Logger

	mu         sync.Mutex
	generating map[string]struct{}
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return domain.DefaultPollInterval
	}
	return p.Interval
}

// Tick runs one pass over the processing items, one backend call at a time,
// and returns how many items were checked. Cancelling ctx stops the pass
// before the next call and discards results that arrive afterwards.
func (p *Poller) Tick(ctx context.Context) int {
	pending := p.Queue.PendingVideos()
	p.rebuild(pending)

	checked := 0
	for _, item := range pending {
		if ctx.Err() != nil {
			return checked
		}
		status, err := p.Backend.CheckStatus(ctx, item.RequestID)
		checked++
		if ctx.Err() != nil {
			return checked
		}
		if err != nil {
			p.Logger.Warn("video status check failed", map[string]interface{}{
				"id":     item.ID,
				"job_id": item.RequestID,
				"error":  err.Error(),
			})
			continue
		}
		p.apply(ctx, item, status)
	}
	return checked
}

func (p *Poller) apply(ctx context.Context, polled domain.VideoQueueItem, status domain.VideoJobStatus) {
	var mutate func(*domain.VideoQueueItem) error
	switch status.Status {
	case domain.JobCompleted:
		if status.URL == "" {
			return
		}
		mutate = func(item *domain.VideoQueueItem) error { return item.Complete(status.URL) }
	case domain.JobFailed:
		mutate = func(item *domain.VideoQueueItem) error { return item.Fail(status.Message, domain.VideoErrorGeneric) }
	case domain.JobFilterError:
		mutate = func(item *domain.VideoQueueItem) error { return item.Fail(status.Message, domain.VideoErrorFilter) }
	default:
		return
	}

	updated, err := p.Queue.UpdateVideoItem(ctx, polled.ID, func(item *domain.VideoQueueItem) error {
		if !item.IsProcessing() || item.RequestID != polled.RequestID {
			return errStale
		}
		return mutate(item)
	})
	switch {
	case errors.Is(err, errStale), errors.Is(err, domain.ErrNotFound):
		p.Logger.Debug("dropping stale video status", map[string]interface{}{"id": polled.ID, "job_id": polled.RequestID})
		p.untrack(polled.ID)
		return
	case err != nil:
		p.Logger.Error("failed to update video item", err, map[string]interface{}{"id": polled.ID})
		return
	}

	p.untrack(updated.ID)
	p.Logger.Info("video job finished", map[string]interface{}{
		"id":     updated.ID,
		"status": string(updated.Status),
		"url":    updated.VideoURL,
	})
}

// Run ticks every Interval. It returns nil once a tick leaves no processing
// item, or ctx.Err() when cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if len(p.Queue.PendingVideos()) == 0 {
		return nil
	}
	ticker := p.Clock.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C():
			p.Tick(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if len(p.Queue.PendingVideos()) == 0 {
				p.reset()
				return nil
			}
		}
	}
}

// Generating returns the ids currently being generated, sorted.
func (p *Poller) Generating() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.generating))
	for id := range p.generating {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// rebuild replaces the index with items, so ids removed from the queue
// between ticks are dropped.
func (p *Poller) rebuild(items []domain.VideoQueueItem) {
	generating := make(map[string]struct{}, len(items))
	for _, item := range items {
		generating[item.ID] = struct{}{}
	}
	p.mu.Lock()
	p.generating = generating
	p.mu.Unlock()
}

func (p *Poller) untrack(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.generating, id)
}

func (p *Poller) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generating = nil
}
