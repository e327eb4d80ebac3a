package api

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const maxErrorBody = 400

// APIError is returned for any non-2xx response. Body holds the raw response text.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
	}
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "..."
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, body)
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTransport reports whether err came from the transport layer (no response received).
// Callers surface both kinds the same way; this exists for logs and metrics.
func IsTransport(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// outcome classifies an error for metric labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTransport(err):
		return "transport_error"
	default:
		return "http_error"
	}
}
