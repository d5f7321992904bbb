// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The workbench manager and the video poller depend only
// on these abstractions, so storage engines, the HTTP backend and the clock can be
// swapped for in-memory fakes in tests.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., KVStore, VideoBackend)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/alle-ai/alle-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.alle/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// KVStore is a string-keyed blob store. The workbench keeps its whole
// persisted state under a single key.
type KVStore interface {
	// Get returns the value for key. ok is false when the key was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// VideoBackend is the remote video generation API.
type VideoBackend interface {
	CheckStatus(ctx context.Context, jobID string) (domain.VideoJobStatus, error)
	Generate(ctx context.Context, req domain.VideoGenerationRequest) (domain.VideoGenerationResult, error)
}

// APIInvoker performs workbench calls against the developer API.
type APIInvoker interface {
	Invoke(ctx context.Context, method, path string, body []byte) (domain.CallResult, error)
}

// Clock abstracts time so polling and age-based cleanup are testable.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// ConfirmationPrompter asks the user before destructive operations.
type ConfirmationPrompter interface {
	Confirm(question string) (bool, error)
	Enabled() bool
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
