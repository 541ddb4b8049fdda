package models

import (
	"fmt"
	"strings"
)

// Severity is the ordinal threat level of an incident.
type Severity int

const (
	SeverityUnknown Severity = iota
	Low
	Medium
	High
	Critical
)

// Severities lists the valid levels in ascending order.
var Severities = []Severity{Low, Medium, High, Critical}

// SeverityNames returns the valid level names joined by sep.
func SeverityNames(sep string) string {
	names := make([]string, len(Severities))
	for i, s := range Severities {
		names[i] = s.String()
	}
	return strings.Join(names, sep)
}

// Score maps the level onto the fixed 1..4 scale used by summary statistics.
func (s Severity) Score() int {
	if !s.Valid() {
		return 0
	}
	return int(s)
}

// Valid reports whether s is one of Low, Medium, High or Critical.
func (s Severity) Valid() bool {
	return s >= Low && s <= Critical
}

func (s Severity) String() string {
	switch s {
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ParseSeverity parses a level name case-insensitively.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return Low, nil
	case "medium":
		return Medium, nil
	case "high":
		return High, nil
	case "critical":
		return Critical, nil
	default:
		return SeverityUnknown, fmt.Errorf("invalid severity %q", raw)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
