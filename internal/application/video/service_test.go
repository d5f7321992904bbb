package video

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alle-ai/alle-go/internal/domain"
	"github.com/alle-ai/alle-go/internal/pkg/clock"
	"github.com/alle-ai/alle-go/internal/pkg/logger"
)

func newService(t *testing.T) (*Service, *stubBackend) {
	t.Helper()
	clk := clock.NewFake(testNow)
	backend := newStubBackend()
	return &Service{
		Queue:   newQueue(t, clk),
		Backend: backend,
		Clock:   clk,
		Logger:  logger.Nop{},
	}, backend
}

func TestSubmitQueuesProcessingItem(t *testing.T) {
	s, backend := newService(t)

	item, err := s.Submit(context.Background(), GenerateRequest{
		ConversationID: "conv-1",
		Prompt:         "a cat surfing",
		Models:         []string{"veo-2"},
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if item.RequestID != "job-1" || item.InvocationID != "inv-1" || !item.IsProcessing() {
		t.Errorf("item = %+v", item)
	}
	if item.MaxRetries != domain.MaxVideoRetries {
		t.Errorf("maxRetries = %d", item.MaxRetries)
	}
	if _, ok := s.Queue.VideoItem(item.ID); !ok {
		t.Error("item not queued")
	}
	if len(backend.generated) != 1 || backend.generated[0].ConversationID != "conv-1" {
		t.Errorf("generate calls = %+v", backend.generated)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerateRequest
		setup   func(*stubBackend)
		wantErr string
	}{
		{
			name:    "missing prompt",
			req:     GenerateRequest{Models: []string{"veo-2"}},
			wantErr: "prompt is required",
		},
		{
			name:    "missing models",
			req:     GenerateRequest{Prompt: "p"},
			wantErr: "at least one model",
		},
		{
			name:    "transport error",
			req:     GenerateRequest{Prompt: "p", Models: []string{"veo-2"}},
			setup:   func(b *stubBackend) { b.genErr = errUnreachable },
			wantErr: "connection refused",
		},
		{
			name: "backend rejects",
			req:  GenerateRequest{Prompt: "p", Models: []string{"veo-2"}},
			setup: func(b *stubBackend) {
				b.genResult = domain.VideoGenerationResult{Status: false, Message: "insufficient credits"}
			},
			wantErr: "insufficient credits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, backend := newService(t)
			if tt.setup != nil {
				tt.setup(backend)
			}
			_, err := s.Submit(context.Background(), tt.req)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func failItem(t *testing.T, s *Service, id string, errType domain.VideoErrorType) {
	t.Helper()
	_, err := s.Queue.UpdateVideoItem(context.Background(), id, func(item *domain.VideoQueueItem) error {
		return item.Fail("boom", errType)
	})
	if err != nil {
		t.Fatalf("UpdateVideoItem error: %v", err)
	}
}

func TestRetryResubmitsUntilAttemptsRunOut(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	item, err := s.Submit(ctx, GenerateRequest{Prompt: "p", Models: []string{"veo-2"}})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if _, err := s.Retry(ctx, item.ID); !errors.Is(err, domain.ErrNotRetryable) {
		t.Fatalf("Retry on processing item = %v, want ErrNotRetryable", err)
	}

	lastJob := item.RequestID
	for attempt := 1; attempt <= domain.MaxVideoRetries; attempt++ {
		failItem(t, s, item.ID, domain.VideoErrorGeneric)
		retried, err := s.Retry(ctx, item.ID)
		if err != nil {
			t.Fatalf("Retry attempt %d error: %v", attempt, err)
		}
		if retried.RequestID == lastJob || retried.RetryAttempts != attempt || !retried.IsRetry {
			t.Fatalf("attempt %d: item = %+v", attempt, retried)
		}
		lastJob = retried.RequestID
	}

	failItem(t, s, item.ID, domain.VideoErrorGeneric)
	if _, err := s.Retry(ctx, item.ID); !errors.Is(err, domain.ErrNotRetryable) {
		t.Errorf("Retry past max = %v, want ErrNotRetryable", err)
	}
}

func TestRetryRejectsFilterErrors(t *testing.T) {
	s, backend := newService(t)
	ctx := context.Background()
	item, err := s.Submit(ctx, GenerateRequest{Prompt: "p", Models: []string{"veo-2"}})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	failItem(t, s, item.ID, domain.VideoErrorFilter)

	if _, err := s.Retry(ctx, item.ID); !errors.Is(err, domain.ErrNotRetryable) {
		t.Fatalf("Retry = %v, want ErrNotRetryable", err)
	}
	if len(backend.generated) != 1 {
		t.Errorf("backend called for a filtered item: %d generate calls", len(backend.generated))
	}
}

func TestRemoveAndClear(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	first, _ := s.Submit(ctx, GenerateRequest{Prompt: "a", Models: []string{"veo-2"}})
	if _, err := s.Submit(ctx, GenerateRequest{Prompt: "b", Models: []string{"veo-2"}}); err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	if err := s.Remove(ctx, first.ID); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := s.Remove(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrNotFound", err)
	}
	n, err := s.Clear(ctx)
	if err != nil || n != 1 {
		t.Errorf("Clear = %d, %v", n, err)
	}
	if _, err := s.Retry(ctx, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Retry(removed) = %v, want ErrNotFound", err)
	}
}
