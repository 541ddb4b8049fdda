package models

import "time"

// SummaryStatistics is derived from an incident history on demand.
type SummaryStatistics struct {
	TotalCount           int       `json:"total_count"`
	MostCommonAttackType string    `json:"most_common_attack_type"`
	AverageSeverityScore float64   `json:"average_severity_score"`
	CriticalCount        int       `json:"critical_count"`
	Last24hCount         int       `json:"last_24h_count"`
	ComputedAt           time.Time `json:"computed_at"`
}
