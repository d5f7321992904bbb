package domain

import (
	"fmt"
	"strings"
	"time"
)

// Storage backend names accepted in storage.backend.
const (
	StorageBackendFile   = "file"
	StorageBackendSQLite = "sqlite"
	StorageBackendMemory = "memory"
)

// GetPollInterval parses video.poll_interval, falling back to DefaultPollInterval
// when the value is empty, invalid or not positive.
func (c *Config) GetPollInterval() time.Duration {
	if c.Video.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(c.Video.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// GetTimeout returns the HTTP client timeout for backend calls.
func (c *Config) GetTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return DefaultHTTPClientTimeout
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// GetRequestsPerSecond returns the configured backend call rate.
func (c *Config) GetRequestsPerSecond() float64 {
	if c.API.RequestsPerSecond <= 0 {
		return DefaultRequestsPerSecond
	}
	return c.API.RequestsPerSecond
}

// GetStorageBackend returns the normalized storage backend name.
func (c *Config) GetStorageBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if backend == "" {
		return StorageBackendFile
	}
	return backend
}

// GetStorageKey returns the key the persisted blob is stored under.
func (c *Config) GetStorageKey() string {
	if c.Storage.Key == "" {
		return DefaultStorageKey
	}
	return c.Storage.Key
}

// GetDefaultModels returns the models used for video generation when none are given.
func (c *Config) GetDefaultModels() []string {
	if len(c.Video.DefaultModels) == 0 {
		return []string{DefaultVideoModel}
	}
	return c.Video.DefaultModels
}

// ValidateConsistency checks the rules struct tags cannot express.
func (c *Config) ValidateConsistency() error {
	if c.Video.PollInterval == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Video.PollInterval)
	if err != nil {
		return fmt.Errorf("video.poll_interval invalid: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("video.poll_interval must be > 0")
	}
	return nil
}
