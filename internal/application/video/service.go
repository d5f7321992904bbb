package video

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/ports"
)

// GenerateRequest is a user-initiated video generation.
type GenerateRequest struct {
	ConversationID string
	Prompt         string
	Models         []string
}

// Service submits, retries and removes queued video jobs.
type Service struct {
	Queue   Queue
	Backend ports.VideoBackend
	Clock   ports.Clock
	Logger  ports.Logger
}

// Submit starts a generation and queues a processing item for it.
func (s *Service) Submit(ctx context.Context, req GenerateRequest) (domain.VideoQueueItem, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return domain.VideoQueueItem{}, errors.New("prompt is required")
	}
	if len(req.Models) == 0 {
		return domain.VideoQueueItem{}, errors.New("at least one model is required")
	}

	jobID, invocationID, err := s.generate(ctx, req)
	if err != nil {
		return domain.VideoQueueItem{}, err
	}

	item := domain.NewVideoQueueItem(uuid.New().String(), jobID, invocationID, req.Prompt, req.Models, s.Clock.Now())
	if err := s.Queue.AddVideoItem(ctx, item); err != nil {
		return domain.VideoQueueItem{}, fmt.Errorf("failed to queue video: %w", err)
	}
	s.Logger.Info("video generation submitted", map[string]interface{}{
		"id":     item.ID,
		"job_id": jobID,
		"models": strings.Join(req.Models, ","),
	})
	return item, nil
}

// Retry resubmits a failed item under a new job id. Filter rejections and
// items out of attempts return domain.ErrNotRetryable.
func (s *Service) Retry(ctx context.Context, id string) (domain.VideoQueueItem, error) {
	item, ok := s.Queue.VideoItem(id)
	if !ok {
		return domain.VideoQueueItem{}, fmt.Errorf("video item %s: %w", id, domain.ErrNotFound)
	}
	if !item.CanRetry() {
		return item, fmt.Errorf("video item %s: %w", id, domain.ErrNotRetryable)
	}

	jobID, _, err := s.generate(ctx, GenerateRequest{Prompt: item.Prompt, Models: item.Models})
	if err != nil {
		return item, err
	}

	updated, err := s.Queue.UpdateVideoItem(ctx, id, func(current *domain.VideoQueueItem) error {
		return current.Resubmit(jobID)
	})
	if err != nil {
		return updated, fmt.Errorf("failed to retry video %s: %w", id, err)
	}
	s.Logger.Info("video generation retried", map[string]interface{}{
		"id":      id,
		"job_id":  jobID,
		"attempt": updated.RetryAttempts,
	})
	return updated, nil
}

// Remove drops one item from the queue.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.Queue.RemoveVideoItem(ctx, id)
}

// Clear empties the queue.
func (s *Service) Clear(ctx context.Context) (int, error) {
	return s.Queue.ClearVideoQueue(ctx)
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (string, string, error) {
	result, err := s.Backend.Generate(ctx, domain.VideoGenerationRequest{
		ConversationID: req.ConversationID,
		Models:         req.Models,
		Prompt:         req.Prompt,
	})
	if err != nil {
		return "", "", fmt.Errorf("video generation request failed: %w", err)
	}
	if !result.Status {
		msg := result.Message
		if msg == "" {
			msg = "backend rejected the request"
		}
		return "", "", fmt.Errorf("video generation request failed: %s", msg)
	}
	if result.Data.Response == "" {
		return "", "", errors.New("video generation request failed: backend returned no job id")
	}
	return result.Data.Response, result.Data.ID, nil
}
