package incident

import (
	"fmt"
	"strings"
)

// All is the filter value that matches every status or severity.
const All = "all"

// StatusFilter is one of all, open, resolved.
type StatusFilter string

// SeverityFilter is one of all, low, medium, high, critical.
type SeverityFilter string

// StatusFilters and SeverityFilters list the selectable filter values in display order.
var (
	StatusFilters   = []StatusFilter{All, StatusFilter(StatusOpen), StatusFilter(StatusResolved)}
	SeverityFilters = []SeverityFilter{
		All,
		SeverityFilter(SeverityLow),
		SeverityFilter(SeverityMedium),
		SeverityFilter(SeverityHigh),
		SeverityFilter(SeverityCritical),
	}
)

// Criteria is the three independent predicates applied to the incident list.
// The zero value matches everything.
type Criteria struct {
	Status   StatusFilter
	Severity SeverityFilter
	Search   string
}

// IsZero reports whether the criteria match every incident.
func (c Criteria) IsZero() bool {
	return c.Status.isAll() && c.Severity.isAll() && c.Search == ""
}

func (f StatusFilter) isAll() bool   { return f == "" || f == All }
func (f SeverityFilter) isAll() bool { return f == "" || f == All }

// QueryValue returns the value to send as a query parameter; empty for all.
func (f StatusFilter) QueryValue() string {
	if f.isAll() {
		return ""
	}
	return string(f)
}

// QueryValue returns the value to send as a query parameter; empty for all.
func (f SeverityFilter) QueryValue() string {
	if f.isAll() {
		return ""
	}
	return string(f)
}

// ParseStatusFilter validates a status filter value ("" means all).
func ParseStatusFilter(s string) (StatusFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == All {
		return All, nil
	}
	st, err := ParseStatus(v)
	if err != nil {
		return "", fmt.Errorf("invalid status filter: %w", err)
	}
	return StatusFilter(st), nil
}

// ParseSeverityFilter validates a severity filter value ("" means all).
func ParseSeverityFilter(s string) (SeverityFilter, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == All {
		return All, nil
	}
	sev, err := ParseSeverity(v)
	if err != nil {
		return "", fmt.Errorf("invalid severity filter: %w", err)
	}
	return SeverityFilter(sev), nil
}

// Matches reports whether a single incident satisfies all three predicates.
func (c Criteria) Matches(inc Incident) bool {
	if !c.Status.isAll() && string(inc.Status) != string(c.Status) {
		return false
	}
	if !c.Severity.isAll() && string(inc.Severity) != string(c.Severity) {
		return false
	}
	if c.Search == "" {
		return true
	}
	term := strings.ToLower(c.Search)
	return strings.Contains(strings.ToLower(inc.Summary), term) ||
		strings.Contains(strings.ToLower(inc.Service), term)
}

// Filter returns the incidents matching c, preserving input order.
// The input slice is never modified.
func Filter(incidents []Incident, c Criteria) []Incident {
	out := make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if c.Matches(inc) {
			out = append(out, inc)
		}
	}
	return out
}
