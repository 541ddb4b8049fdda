package models

import "time"

// DefaultResponsePlan is attached to every synthesized incident unless overridden.
const DefaultResponsePlan = "Activate Incident Response Plan."

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FallbackCoordinates marks an incident whose location could not be resolved.
var FallbackCoordinates = Coordinates{}

// IsFallback reports whether c is the (0, 0) placeholder.
func (c Coordinates) IsFallback() bool {
	return c == FallbackCoordinates
}

// Incident is one synthesized security event. It is a value and is never
// modified once a store has accepted it.
type Incident struct {
	ID           int64       `json:"id"`
	Timestamp    time.Time   `json:"timestamp"`
	AttackType   string      `json:"attack_type"`
	Severity     Severity    `json:"severity"`
	Region       string      `json:"region"`
	CountryCode  string      `json:"country_code"`
	Coordinates  Coordinates `json:"coordinates"`
	ResponsePlan string      `json:"response_plan"`
}
