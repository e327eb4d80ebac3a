package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

const systemPrompt = `You are an expert AIOps incident analyst. You are given one incident that a
rule-based detector found in server logs, plus an excerpt of those logs.
Explain the most likely root cause based on the log evidence and list concrete
runbook steps to resolve it. Be precise and operational; do not speculate
beyond the evidence.

Reply with a single JSON object and nothing else:
{"rootCause": "<one or two sentences>", "runbookSteps": ["<step>", "..."]}`

// maxExcerpt bounds the log text sent to the model.
const maxExcerpt = 6000

// Explanation is the model's take on one incident.
type Explanation struct {
	RootCause    string   `json:"rootCause"`
	RunbookSteps []string `json:"runbookSteps"`
}

// Explainer rewrites the root cause and runbook of detected incidents.
type Explainer struct {
	provider  Provider
	logger    *log.Logger
	maxTokens int
}

// NewExplainer wraps p.
func NewExplainer(p Provider, logger *log.Logger) *Explainer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Explainer{provider: p, logger: logger, maxTokens: 600}
}

// Explain asks the model about inc given the log excerpt.
func (e *Explainer) Explain(ctx context.Context, inc incident.Incident, logs string) (Explanation, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Service: %s\nSeverity: %s\nDetected: %s\n", inc.Service, inc.Severity, inc.Summary)
	fmt.Fprintf(&sb, "Detector notes: %s\n\nLog excerpt:\n%s\n", inc.RootCause, truncateString(logs, maxExcerpt))

	reply, err := e.provider.Chat(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: sb.String()},
	}, e.maxTokens)
	if err != nil {
		return Explanation{}, err
	}
	return parseExplanation(reply)
}

// Enrich returns inc with the model's root cause and runbook. On any failure
// the detector's text is kept and the error is returned.
func (e *Explainer) Enrich(ctx context.Context, inc incident.Incident, logs string) (incident.Incident, error) {
	ex, err := e.Explain(ctx, inc, logs)
	if err != nil {
		e.logger.Printf("%s: explain %s failed: %v", e.provider.Name(), inc.IncidentID, err)
		return inc, err
	}
	inc.RootCause = ex.RootCause
	if len(ex.RunbookSteps) > 0 {
		inc.RunbookSteps = numberSteps(ex.RunbookSteps)
	}
	return inc, nil
}

var stepPrefix = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+`)

var errNoJSON = errors.New("reply contains no JSON object")

// parseExplanation accepts a bare object or one wrapped in prose or code fences.
func parseExplanation(reply string) (Explanation, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Explanation{}, errNoJSON
	}
	var ex Explanation
	if err := json.Unmarshal([]byte(reply[start:end+1]), &ex); err != nil {
		return Explanation{}, fmt.Errorf("decode explanation: %w", err)
	}
	ex.RootCause = strings.TrimSpace(ex.RootCause)
	if ex.RootCause == "" {
		return Explanation{}, errors.New("explanation has no root cause")
	}
	steps := ex.RunbookSteps[:0]
	for _, s := range ex.RunbookSteps {
		if s = strings.TrimSpace(s); s != "" {
			steps = append(steps, s)
		}
	}
	ex.RunbookSteps = steps
	return ex, nil
}

// numberSteps renders steps as "1. ...", dropping numbering the model added.
func numberSteps(steps []string) string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		s = stepPrefix.ReplaceAllString(s, "")
		lines[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	return strings.Join(lines, "\n")
}
