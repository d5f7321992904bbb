package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/alle-ai/alle-go/internal/domain"
)

func newProcessingItem() domain.VideoQueueItem {
	return domain.NewVideoQueueItem("v1", "job-1", "inv-1", "a cat surfing", []string{"veo-2", "runway"}, time.Now())
}

func TestVideoQueueItemComplete(t *testing.T) {
	item := newProcessingItem()

	if err := item.Complete("https://x/y.mp4"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if item.Status != domain.VideoCompleted || item.VideoURL != "https://x/y.mp4" {
		t.Fatalf("unexpected item after complete: %+v", item)
	}
	if item.ModelStatuses["runway"] != domain.VideoCompleted {
		t.Errorf("model status = %s, want completed", item.ModelStatuses["runway"])
	}
	if !item.IsTerminal() {
		t.Error("completed item should be terminal")
	}
}

func TestVideoQueueItemTerminalStatesAreFinal(t *testing.T) {
	item := newProcessingItem()
	if err := item.Complete("https://x/y.mp4"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}

	if err := item.Fail("late", domain.VideoErrorGeneric); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Fail on completed: got %v, want ErrInvalidTransition", err)
	}
	if err := item.Complete("https://other"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Complete on completed: got %v, want ErrInvalidTransition", err)
	}
	if err := item.Resubmit("job-2"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Resubmit on completed: got %v, want ErrInvalidTransition", err)
	}
}

func TestVideoQueueItemFailDefaults(t *testing.T) {
	tests := []struct {
		name     string
		errType  domain.VideoErrorType
		wantType domain.VideoErrorType
		retry    bool
	}{
		{name: "generic failure is retryable", errType: "", wantType: domain.VideoErrorGeneric, retry: true},
		{name: "filter failure is not retryable", errType: domain.VideoErrorFilter, wantType: domain.VideoErrorFilter, retry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newProcessingItem()
			if err := item.Fail("", tt.errType); err != nil {
				t.Fatalf("Fail error: %v", err)
			}
			if item.ErrorType != tt.wantType {
				t.Errorf("error type = %s, want %s", item.ErrorType, tt.wantType)
			}
			if item.Error == "" {
				t.Error("expected a default error message")
			}
			if item.CanRetry() != tt.retry {
				t.Errorf("CanRetry = %v, want %v", item.CanRetry(), tt.retry)
			}
		})
	}
}

func TestVideoQueueItemResubmitCountsAttempts(t *testing.T) {
	item := newProcessingItem()

	for attempt := 1; attempt <= domain.MaxVideoRetries; attempt++ {
		if err := item.Fail("backend error", domain.VideoErrorGeneric); err != nil {
			t.Fatalf("Fail error: %v", err)
		}
		if err := item.Resubmit("job-retry"); err != nil {
			t.Fatalf("Resubmit attempt %d error: %v", attempt, err)
		}
		if item.RetryAttempts != attempt || !item.IsRetry || !item.IsProcessing() {
			t.Fatalf("unexpected item after attempt %d: %+v", attempt, item)
		}
	}

	if err := item.Fail("backend error", domain.VideoErrorGeneric); err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	if err := item.Resubmit("job-too-many"); !errors.Is(err, domain.ErrNotRetryable) {
		t.Errorf("Resubmit after max retries: got %v, want ErrNotRetryable", err)
	}
}

func TestVideoQueueItemCloneIsIndependent(t *testing.T) {
	item := newProcessingItem()
	clone := item.Clone()
	clone.ModelStatuses["veo-2"] = domain.VideoFailed
	clone.Models[0] = "changed"

	if item.ModelStatuses["veo-2"] != domain.VideoProcessing || item.Models[0] != "veo-2" {
		t.Fatalf("clone shares state with original: %+v", item)
	}
}
