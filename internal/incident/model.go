package incident

import (
	"fmt"
	"strings"
)

// Status is the triage state of an incident. Every incident is either open or resolved.
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Severity is the fixed severity scale produced by the analysis backend.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the severity scale in display order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Incident is a record summarizing a detected problem in a monitored service.
// Timestamps and the free-text fields are display-only and never parsed here.
type Incident struct {
	IncidentID    string   `json:"incidentId"`
	CreatedAt     string   `json:"createdAt"`
	Status        Status   `json:"status"`
	Severity      Severity `json:"severity"`
	Service       string   `json:"service"`
	Summary       string   `json:"summary"`
	RootCause     string   `json:"rootCause"`
	RunbookSteps  string   `json:"runbookSteps"`
	LastUpdatedAt string   `json:"lastUpdatedAt"`
}

// IsResolved reports whether the incident has been marked resolved.
func (i Incident) IsResolved() bool {
	return i.Status == StatusResolved
}

// Label returns the human readable status label.
func (s Status) Label() string {
	if s == StatusResolved {
		return "Resolved"
	}
	return "Open"
}

// Toggle returns the status a resolve/reopen action moves to.
func (s Status) Toggle() Status {
	if s == StatusResolved {
		return StatusOpen
	}
	return StatusResolved
}

// ParseStatus accepts "open" or "resolved" (case-insensitive).
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOpen:
		return StatusOpen, nil
	case StatusResolved:
		return StatusResolved, nil
	}
	return "", fmt.Errorf("unknown status %q (use open or resolved)", s)
}

// ParseSeverity accepts one of low, medium, high, critical (case-insensitive).
func ParseSeverity(s string) (Severity, error) {
	v := Severity(strings.ToLower(strings.TrimSpace(s)))
	for _, sev := range Severities {
		if v == sev {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q (use low, medium, high or critical)", s)
}
