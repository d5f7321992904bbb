package domain

import (
	"fmt"
	"time"
)

// VideoStatus is the state of a queued video generation job.
type VideoStatus string

const (
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

// VideoErrorType distinguishes content-filter rejections from other failures.
type VideoErrorType string

const (
	VideoErrorGeneric VideoErrorType = "generic"
	VideoErrorFilter  VideoErrorType = "filter"
)

// Default failure messages when the backend does not send one.
const (
	msgGenerationFailed = "Video generation failed"
	msgFilterRejected   = "The prompt was rejected by the content filter"
)

// VideoQueueItem tracks one video generation job and its polling status.
type VideoQueueItem struct {
	ID            string                 `json:"id"`
	RequestID     string                 `json:"requestId"`
	InvocationID  string                 `json:"invocationId,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Prompt        string                 `json:"prompt"`
	Models        []string               `json:"models"`
	Status        VideoStatus            `json:"status"`
	VideoURL      string                 `json:"videoUrl,omitempty"`
	Error         string                 `json:"error,omitempty"`
	ErrorType     VideoErrorType         `json:"errorType,omitempty"`
	Progress      int                    `json:"progress,omitempty"`
	ModelStatuses map[string]VideoStatus `json:"modelStatuses,omitempty"`
	IsRetry       bool                   `json:"isRetry,omitempty"`
	RetryAttempts int                    `json:"retryAttempts"`
	MaxRetries    int                    `json:"maxRetries"`
}

// NewVideoQueueItem builds a processing item for a freshly submitted job.
func NewVideoQueueItem(id, jobID, invocationID, prompt string, models []string, now time.Time) VideoQueueItem {
	statuses := make(map[string]VideoStatus, len(models))
	for _, m := range models {
		statuses[m] = VideoProcessing
	}
	return VideoQueueItem{
		ID:            id,
		RequestID:     jobID,
		InvocationID:  invocationID,
		Timestamp:     now,
		Prompt:        prompt,
		Models:        append([]string(nil), models...),
		Status:        VideoProcessing,
		ModelStatuses: statuses,
		MaxRetries:    MaxVideoRetries,
	}
}

// IsProcessing reports whether the job still needs polling.
func (v VideoQueueItem) IsProcessing() bool {
	return v.Status == VideoProcessing
}

// IsTerminal reports whether the item reached completed or failed.
func (v VideoQueueItem) IsTerminal() bool {
	return v.Status == VideoCompleted || v.Status == VideoFailed
}

// CanRetry reports whether a user-initiated retry is allowed.
// Filter rejections are never retryable.
func (v VideoQueueItem) CanRetry() bool {
	return v.Status == VideoFailed &&
		v.ErrorType != VideoErrorFilter &&
		v.RetryAttempts < v.maxRetries()
}

func (v VideoQueueItem) maxRetries() int {
	if v.MaxRetries <= 0 {
		return MaxVideoRetries
	}
	return v.MaxRetries
}

// Complete moves a processing item to completed.
func (v *VideoQueueItem) Complete(url string) error {
	if v.Status != VideoProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.Status, VideoCompleted)
	}
	v.Status = VideoCompleted
	v.VideoURL = url
	v.Error = ""
	v.ErrorType = ""
	v.Progress = 100
	v.setModelStatuses(VideoCompleted)
	return nil
}

// Fail moves a processing item to failed.
func (v *VideoQueueItem) Fail(message string, errType VideoErrorType) error {
	if v.Status != VideoProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.Status, VideoFailed)
	}
	if errType == "" {
		errType = VideoErrorGeneric
	}
	if message == "" {
		message = msgGenerationFailed
		if errType == VideoErrorFilter {
			message = msgFilterRejected
		}
	}
	v.Status = VideoFailed
	v.Error = message
	v.ErrorType = errType
	v.setModelStatuses(VideoFailed)
	return nil
}

// Resubmit re-enters processing under a new backend job id.
func (v *VideoQueueItem) Resubmit(jobID string) error {
	if v.Status != VideoFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, v.Status, VideoProcessing)
	}
	if !v.CanRetry() {
		return ErrNotRetryable
	}
	v.RequestID = jobID
	v.Status = VideoProcessing
	v.VideoURL = ""
	v.Error = ""
	v.ErrorType = ""
	v.Progress = 0
	v.IsRetry = true
	v.RetryAttempts++
	v.MaxRetries = v.maxRetries()
	v.setModelStatuses(VideoProcessing)
	return nil
}

func (v *VideoQueueItem) setModelStatuses(status VideoStatus) {
	if len(v.Models) == 0 {
		return
	}
	if v.ModelStatuses == nil {
		v.ModelStatuses = make(map[string]VideoStatus, len(v.Models))
	}
	for _, m := range v.Models {
		v.ModelStatuses[m] = status
	}
}

// VideoJobState is the status string the backend reports for a job.
type VideoJobState string

const (
	JobProcessing  VideoJobState = "processing"
	JobCompleted   VideoJobState = "completed"
	JobFailed      VideoJobState = "failed"
	JobFilterError VideoJobState = "filter_error"
)

// VideoJobStatus is the backend status-check response.
type VideoJobStatus struct {
	Status  VideoJobState `json:"status"`
	URL     string        `json:"url,omitempty"`
	Message string        `json:"message,omitempty"`
}

// VideoGenerationRequest is the backend generation-request body.
type VideoGenerationRequest struct {
	ConversationID string   `json:"conversation"`
	Models         []string `json:"models"`
	Prompt         string   `json:"prompt"`
}

// VideoGenerationResult is the backend generation-request response.
type VideoGenerationResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    struct {
		ID       string `json:"id"`
		Response string `json:"response"`
	} `json:"data"`
}
