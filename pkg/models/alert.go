package models

// AlertPayload is a formatted notification for a single incident.
type AlertPayload struct {
	IncidentID int64    `json:"incident_id"`
	Subject    string   `json:"subject"`
	Severity   Severity `json:"severity"`
	Text       string   `json:"text"`
	HTML       string   `json:"html"`
	Incident   Incident `json:"incident"`
}
