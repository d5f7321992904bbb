package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
	// ExportFilePermissions is the permission for exported history files (rw-r--r--)
	ExportFilePermissions = 0o644
)

// Storage constants
const (
	// StorageQuotaBytes is the fixed ceiling on the serialized persisted data (5 MiB)
	StorageQuotaBytes int64 = 5 * 1024 * 1024
	// DefaultStorageKey is the key the persisted blob lives under
	DefaultStorageKey = "alle-ai-api-history"
	// ExportFilePrefix prefixes every exported history file name
	ExportFilePrefix = "alle-ai-api-history-"
	// OverLimitRetention is the cutoff applied when the quota is already exceeded
	OverLimitRetention = 24 * time.Hour
)

// Storage preference defaults
const (
	DefaultAutoCleanup      = true
	DefaultKeepDays         = 30
	DefaultWarningThreshold = 80
)

// Video constants
const (
	// MaxVideoRetries caps user-initiated retries per queue item
	MaxVideoRetries = 3
	// DefaultPollInterval is how often processing video jobs are checked
	DefaultPollInterval = 5 * time.Second
	// DefaultVideoModel is used when neither flags nor config name a model
	DefaultVideoModel = "veo-2"
)

// Timeout and rate constants
const (
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 60 * time.Second
	// DefaultRequestsPerSecond spaces backend calls
	DefaultRequestsPerSecond = 5.0
)

// History display constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// MaxLabelRunes is the longest entry name derived from request content
	MaxLabelRunes = 50
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
