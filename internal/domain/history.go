package domain

import "time"

// HistoryEntry records one completed developer-workbench API call.
type HistoryEntry struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Timestamp     time.Time       `json:"timestamp"`
	StatusCode    int             `json:"statusCode"`
	Request       RequestPayload  `json:"request"`
	Response      ResponsePayload `json:"response"`
	ResponseStats ResponseStats   `json:"responseStats"`
}

// ResponseStats is display metadata for a recorded call.
type ResponseStats struct {
	StatusCode int    `json:"statusCode"`
	StatusText string `json:"statusText"`
	Time       string `json:"time"`
	Size       string `json:"size"`
}

// Failed reports whether the recorded call ended with a client or server error.
func (e HistoryEntry) Failed() bool {
	return e.StatusCode >= 400
}

// OlderThan reports whether the entry was created strictly before cutoff.
func (e HistoryEntry) OlderThan(cutoff time.Time) bool {
	return e.Timestamp.Before(cutoff)
}
