package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// Endpoint names, also used as metric labels.
const (
	EndpointUpload       = "upload-log"
	EndpointAnalyze      = "analyze"
	EndpointIncidents    = "incidents"
	EndpointLogin        = "login"
	EndpointUpdateStatus = "update-status"
)

// Recorder receives one observation per completed request.
type Recorder interface {
	ObserveAPIRequest(endpoint, outcome string, elapsed time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout of 0 leaves the transport default (no client timeout).
	Timeout  time.Duration
	Recorder Recorder
}

// AnalyzeRequest is the body of POST /api/analyze. Exactly one field is set per call.
type AnalyzeRequest struct {
	UploadID string `json:"uploadId,omitempty"`
	LogText  string `json:"logText,omitempty"`
}

// User is the signed-in identity returned by the login endpoint.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is the body returned by POST /api/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type uploadResponse struct {
	UploadID string `json:"uploadId"`
}

type incidentsResponse struct {
	Incidents []incident.Incident `json:"incidents"`
}

// Client is a thin mapping onto the analysis backend's REST endpoints.
// It never retries and never caches.
type Client struct {
	baseURL    string
	httpClient *http.Client
	recorder   Recorder
	logger     *log.Logger

	mu    sync.RWMutex
	token string
}

// NewClient builds a client for the backend at cfg.BaseURL.
func NewClient(cfg Config, logger *log.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api: base URL required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		recorder:   cfg.Recorder,
		logger:     logger,
	}, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken sets the bearer token sent on every request. Empty clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

type requestIDKey struct{}

// WithRequestID attaches an id sent as X-Request-ID on requests made with ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// UploadLog sends a log file as multipart field "file" and returns the backend's upload id.
func (c *Client) UploadLog(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("upload-log: build form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", fmt.Errorf("upload-log: read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("upload-log: build form: %w", err)
	}

	var out uploadResponse
	err = c.do(ctx, EndpointUpload, http.MethodPost, "/api/upload-log", &buf, mw.FormDataContentType(), &out)
	if err != nil {
		return "", err
	}
	return out.UploadID, nil
}

// AnalyzeLogs asks the backend to analyze an upload or raw text and returns the new incidents.
func (c *Client) AnalyzeLogs(ctx context.Context, req AnalyzeRequest) ([]incident.Incident, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("analyze: encode: %w", err)
	}
	var out incidentsResponse
	if err := c.do(ctx, EndpointAnalyze, http.MethodPost, "/api/analyze", bytes.NewReader(body), "application/json", &out); err != nil {
		return nil, err
	}
	return out.Incidents, nil
}

// FetchIncidents lists incidents. Empty status or severity is omitted from the query.
func (c *Client) FetchIncidents(ctx context.Context, status, severity string) ([]incident.Incident, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if severity != "" {
		q.Set("severity", severity)
	}
	path := "/api/incidents"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out incidentsResponse
	if err := c.do(ctx, EndpointIncidents, http.MethodGet, path, nil, "", &out); err != nil {
		return nil, err
	}
	return out.Incidents, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResponse{}, fmt.Errorf("login: encode: %w", err)
	}
	var out LoginResponse
	if err := c.do(ctx, EndpointLogin, http.MethodPost, "/api/login", bytes.NewReader(body), "application/json", &out); err != nil {
		return LoginResponse{}, err
	}
	return out, nil
}

// UpdateIncidentStatus persists a resolve/reopen via PATCH /api/incidents/{id}?status=.
func (c *Client) UpdateIncidentStatus(ctx context.Context, id string, status incident.Status) error {
	path := "/api/incidents/" + url.PathEscape(id) + "?" + url.Values{"status": {string(status)}}.Encode()
	return c.do(ctx, EndpointUpdateStatus, http.MethodPatch, path, nil, "", nil)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body io.Reader, contentType string, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.recorder != nil {
			c.recorder.ObserveAPIRequest(endpoint, outcome(err), time.Since(start))
		}
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	reqID, _ := ctx.Value(requestIDKey{}).(string)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Printf("%s %s id=%s", method, path, reqID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Printf("%s %s id=%s transport error: %v", method, path, reqID, err)
		return fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", endpoint, err)
	}
	c.logger.Printf("%s %s id=%s status=%d bytes=%d elapsed=%s", method, path, reqID, resp.StatusCode, len(data), time.Since(start).Round(time.Millisecond))

	if resp.StatusCode/100 != 2 {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}
