package devserver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// sampleLines caps how much of a log is looked at, mirroring the production analyzer.
const sampleLines = 50

const defaultService = "web-server"

type signal struct {
	key       string
	match     *regexp.Regexp
	summary   string
	rootCause string
	runbook   []string
	// floor is the minimum severity for this signal regardless of volume.
	floor incident.Severity
}

var signals = []signal{
	{
		key:       "oom",
		match:     regexp.MustCompile(`(?i)out of memory|oomkilled|\boom\b|memoryerror`),
		summary:   "Process ran out of memory",
		rootCause: "Memory usage exceeded the container or process limit, causing the runtime to be killed.",
		runbook: []string{
			"Check memory usage graphs for the service around the reported time",
			"Look for recent deploys that changed caching or batch sizes",
			"Raise the memory limit temporarily and restart affected pods",
		},
		floor: incident.SeverityHigh,
	},
	{
		key:       "5xx",
		match:     regexp.MustCompile(`(?i)\b5\d\d\b|internal server error|bad gateway|service unavailable`),
		summary:   "Elevated 5xx server errors",
		rootCause: "The service returned server-side errors; an upstream dependency or recent change is likely failing.",
		runbook: []string{
			"Inspect application logs for stack traces near the first 5xx",
			"Verify health of upstream dependencies (database, cache, downstream APIs)",
			"Roll back the most recent deploy if errors started after it",
		},
		floor: incident.SeverityLow,
	},
	{
		key:       "timeout",
		match:     regexp.MustCompile(`(?i)timed? ?out|deadline exceeded|connection refused|econnrefused`),
		summary:   "Timeouts connecting to dependencies",
		rootCause: "Requests to a dependency timed out or were refused, pointing to saturation or an unreachable host.",
		runbook: []string{
			"Confirm the dependency is reachable from the service network",
			"Check connection pool saturation and dependency latency",
			"Increase timeouts only after confirming the dependency is healthy",
		},
		floor: incident.SeverityLow,
	},
	{
		key:       "auth",
		match:     regexp.MustCompile(`(?i)\b40[13]\b|unauthorized|forbidden|authentication failed|invalid password`),
		summary:   "Repeated authentication failures",
		rootCause: "Many requests failed authentication; credentials may have rotated or a client is brute forcing.",
		runbook: []string{
			"Group failures by source IP and user to spot brute force patterns",
			"Verify recently rotated secrets were rolled out to all clients",
			"Block offending IPs at the edge if the pattern is malicious",
		},
		floor: incident.SeverityLow,
	},
}

var (
	kvService      = regexp.MustCompile(`(?i)\b(?:service|svc|app)[=:]\s*"?([A-Za-z0-9_.\-]+)`)
	bracketService = regexp.MustCompile(`^\s*(?:\S+\s+){0,3}\[([A-Za-z][A-Za-z0-9_.\-]*)\]`)
)

// sample returns the lines the analyzer looks at: for CSV input the header
// plus the next 50 rows, otherwise the first 50 lines.
func sample(text string) (header string, lines []string) {
	all := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(all) > 0 && strings.Contains(all[0], ",") {
		header = all[0]
		rest := all[1:]
		if len(rest) > sampleLines {
			rest = rest[:sampleLines]
		}
		return header, rest
	}
	if len(all) > sampleLines {
		all = all[:sampleLines]
	}
	return "", all
}

func severityFor(count int, floor incident.Severity) incident.Severity {
	var sev incident.Severity
	switch {
	case count >= 50:
		sev = incident.SeverityCritical
	case count >= 10:
		sev = incident.SeverityHigh
	case count >= 3:
		sev = incident.SeverityMedium
	default:
		sev = incident.SeverityLow
	}
	if rank(floor) > rank(sev) {
		return floor
	}
	return sev
}

func rank(s incident.Severity) int {
	for i, v := range incident.Severities {
		if v == s {
			return i
		}
	}
	return -1
}

type lineParser struct {
	serviceCol int
}

func newLineParser(header string) lineParser {
	p := lineParser{serviceCol: -1}
	for i, col := range strings.Split(header, ",") {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(col), `"`))
		if name == "service" || name == "app" || name == "service_name" {
			p.serviceCol = i
			break
		}
	}
	return p
}

func (p lineParser) service(line string) string {
	if p.serviceCol >= 0 {
		cols := strings.Split(line, ",")
		if p.serviceCol < len(cols) {
			if s := strings.Trim(strings.TrimSpace(cols[p.serviceCol]), `"`); s != "" {
				return s
			}
		}
	}
	if m := kvService.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := bracketService.FindStringSubmatch(line); m != nil {
		switch strings.ToUpper(m[1]) {
		case "INFO", "WARN", "WARNING", "ERROR", "DEBUG", "FATAL", "TRACE":
		default:
			return m[1]
		}
	}
	return defaultService
}

type finding struct {
	sig     signal
	service string
	count   int
	first   string
}

// Analyze turns raw log text into incidents using simple pattern heuristics.
// Each (signal, service) pair with at least one matching line becomes one
// open incident. No findings yields an empty slice.
func Analyze(text string, now time.Time) []incident.Incident {
	header, lines := sample(text)
	parser := newLineParser(header)

	byKey := map[string]*finding{}
	var order []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, sig := range signals {
			if !sig.match.MatchString(line) {
				continue
			}
			svc := parser.service(line)
			k := sig.key + "|" + svc
			f, ok := byKey[k]
			if !ok {
				f = &finding{sig: sig, service: svc, first: strings.TrimSpace(line)}
				byKey[k] = f
				order = append(order, k)
			}
			f.count++
			break
		}
	}

	findings := make([]*finding, 0, len(order))
	for _, k := range order {
		findings = append(findings, byKey[k])
	}
	// Most frequent first; ties keep first-seen order.
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].count > findings[j].count })

	stamp := now.UTC().Format(time.RFC3339)
	out := make([]incident.Incident, 0, len(findings))
	for _, f := range findings {
		out = append(out, incident.Incident{
			IncidentID:    uuid.NewString(),
			CreatedAt:     stamp,
			Status:        incident.StatusOpen,
			Severity:      severityFor(f.count, f.sig.floor),
			Service:       f.service,
			Summary:       fmt.Sprintf("%s (%d occurrence(s))", f.sig.summary, f.count),
			RootCause:     f.sig.rootCause + " First seen: " + truncate(f.first, 160),
			RunbookSteps:  numbered(f.sig.runbook),
			LastUpdatedAt: stamp,
		})
	}
	return out
}

func numbered(steps []string) string {
	var sb strings.Builder
	for i, s := range steps {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, s)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
