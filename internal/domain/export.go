package domain

// ExportStorageStats is the human-readable usage block of an export file.
type ExportStorageStats struct {
	Used       string `json:"used"`
	Total      string `json:"total"`
	Percentage string `json:"percentage"`
}

// ExportSnapshot is the schema of an exported history file.
type ExportSnapshot struct {
	ExportDate        string             `json:"exportDate"`
	TotalHistoryItems int                `json:"totalHistoryItems"`
	TotalVideoItems   int                `json:"totalVideoItems"`
	StorageStats      ExportStorageStats `json:"storageStats"`
	History           []HistoryEntry     `json:"history"`
	VideoQueue        []VideoQueueItem   `json:"videoQueue"`
}
