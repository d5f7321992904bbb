package commands

import "github.com/alle-ai/alle-go/internal/domain"

// CLI-specific constants
const (
	// DefaultHistoryLimit is how many entries history list prints
	DefaultHistoryLimit = domain.DefaultHistoryLimit

	// DefaultExportDir is where history export writes when --dir is not given
	DefaultExportDir = "."
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrWorkbenchUnavailable     = "workbench unavailable"
	ErrVideoServiceUnavailable  = "video service unavailable"
	ErrKeyRequired              = "--key is required"
	ErrPromptRequired           = "--prompt is required"
	ErrInvalidDays              = "--days must be >= 0"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
	MsgNoVideosQueued           = "No videos queued."
	MsgHistoryCleared           = "History and video queue cleared."
	MsgAlreadyDisplayed         = "Entry is already displayed."
	MsgCancelled                = "Cancelled."
)
