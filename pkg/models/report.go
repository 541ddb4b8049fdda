package models

import "time"

// ReportPayload is the document handed to a report renderer.
type ReportPayload struct {
	Title       string    `json:"title"`
	SessionID   string    `json:"session_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	// Summary is nil when the history was empty.
	Summary *SummaryStatistics `json:"summary,omitempty"`
	// Recent holds the latest incidents, newest first.
	Recent []Incident `json:"recent"`
}

// HasData reports whether the payload carries summary statistics.
func (p ReportPayload) HasData() bool {
	return p.Summary != nil
}
