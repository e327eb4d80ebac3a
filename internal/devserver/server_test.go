package devserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/api"
	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

func newTestServer(t *testing.T, opts Options) (*Server, *api.Client) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	s, err := New(opts)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	c, err := api.NewClient(api.Config{BaseURL: ts.URL}, nil)
	require.NoError(t, err)
	return s, c
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestUploadAnalyzeListFlow(t *testing.T) {
	_, c := newTestServer(t, Options{})
	ctx := context.Background()

	id, err := c.UploadLog(ctx, "app.log", strings.NewReader("service=web GET / 500\nservice=web GET / 503\n"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	found, err := c.AnalyzeLogs(ctx, api.AnalyzeRequest{UploadID: id})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "web", found[0].Service)

	more, err := c.AnalyzeLogs(ctx, api.AnalyzeRequest{LogText: "[db] connection refused"})
	require.NoError(t, err)
	require.Len(t, more, 1)

	all, err := c.FetchIncidents(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, more[0].IncidentID, all[0].IncidentID, "newest first")

	open, err := c.FetchIncidents(ctx, "all", "low")
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func TestAnalyzeErrors(t *testing.T) {
	_, c := newTestServer(t, Options{})
	ctx := context.Background()

	_, err := c.AnalyzeLogs(ctx, api.AnalyzeRequest{UploadID: "missing"})
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))

	_, err = c.AnalyzeLogs(ctx, api.AnalyzeRequest{})
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))

	_, err = c.UploadLog(ctx, "empty.log", strings.NewReader("   "))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))
	assert.Contains(t, err.Error(), "Empty file")
}

func TestUpdateIncidentStatus(t *testing.T) {
	s, c := newTestServer(t, Options{})
	s.Seed([]incident.Incident{{IncidentID: "i1", Status: incident.StatusOpen, Severity: incident.SeverityHigh}})
	ctx := context.Background()

	require.NoError(t, c.UpdateIncidentStatus(ctx, "i1", incident.StatusResolved))

	list, err := c.FetchIncidents(ctx, "resolved", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2024-05-01T12:00:00Z", list[0].LastUpdatedAt)

	err = c.UpdateIncidentStatus(ctx, "nope", incident.StatusResolved)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))

	err = c.UpdateIncidentStatus(ctx, "i1", incident.Status("closed"))
	assert.Equal(t, http.StatusBadRequest, api.StatusCode(err))
}

func TestAuthRequiredAndLogin(t *testing.T) {
	_, c := newTestServer(t, Options{RequireAuth: true, Password: "hunter2", JWTSecret: "test"})
	ctx := context.Background()

	_, err := c.FetchIncidents(ctx, "", "")
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	_, err = c.Login(ctx, "ana.lima@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	resp, err := c.Login(ctx, "ana.lima@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", resp.User.Name)
	require.NotEmpty(t, resp.Token)

	c.SetToken(resp.Token)
	_, err = c.FetchIncidents(ctx, "", "")
	require.NoError(t, err)

	c.SetToken("forged")
	_, err = c.FetchIncidents(ctx, "", "")
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestExpiredTokenRejected(t *testing.T) {
	var skew atomic.Int64
	_, c := newTestServer(t, Options{
		RequireAuth: true,
		JWTSecret:   "test",
		TokenTTL:    time.Minute,
		Now:         func() time.Time { return fixedNow.Add(time.Duration(skew.Load())) },
	})
	ctx := context.Background()

	resp, err := c.Login(ctx, "ops@example.com", "x")
	require.NoError(t, err)
	c.SetToken(resp.Token)

	skew.Store(int64(2 * time.Minute))
	_, err = c.FetchIncidents(ctx, "", "")
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Options{RPS: 1, Burst: 1})
	h := s.Handler()

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestStartAndShutdown(t *testing.T) {
	s, err := New(Options{Bind: "127.0.0.1:0", Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	assert.Error(t, s.Start(ctx))
}

type stubEnricher struct {
	calls int32
	fail  bool
}

func (e *stubEnricher) Enrich(_ context.Context, inc incident.Incident, logs string) (incident.Incident, error) {
	atomic.AddInt32(&e.calls, 1)
	if e.fail {
		return inc, assert.AnError
	}
	inc.RootCause = "enriched: " + strings.TrimSpace(logs)
	inc.RunbookSteps = "1. do the thing"
	return inc, nil
}

func TestAnalyzeUsesEnricher(t *testing.T) {
	e := &stubEnricher{}
	_, c := newTestServer(t, Options{Enricher: e})
	ctx := context.Background()

	found, err := c.AnalyzeLogs(ctx, api.AnalyzeRequest{LogText: "[db] connection refused"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "enriched: [db] connection refused", found[0].RootCause)
	assert.Equal(t, "1. do the thing", found[0].RunbookSteps)
	assert.Equal(t, int32(1), atomic.LoadInt32(&e.calls))

	all, err := c.FetchIncidents(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, found[0].RootCause, all[0].RootCause, "stored copy is the enriched one")
}

func TestAnalyzeKeepsDetectorTextWhenEnricherFails(t *testing.T) {
	_, c := newTestServer(t, Options{Enricher: &stubEnricher{fail: true}})

	found, err := c.AnalyzeLogs(context.Background(), api.AnalyzeRequest{LogText: "[db] connection refused"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].RootCause, "timed out or were refused")
}

// slowEnricher takes longer than the server allows unless its context ends first.
type slowEnricher struct {
	delay time.Duration
}

func (e slowEnricher) Enrich(ctx context.Context, inc incident.Incident, _ string) (incident.Incident, error) {
	select {
	case <-time.After(e.delay):
		inc.RootCause = "slow answer"
		return inc, nil
	case <-ctx.Done():
		return inc, ctx.Err()
	}
}

func TestSlowEnrichmentStillAnswersWithinWriteTimeout(t *testing.T) {
	s, err := New(Options{
		WriteTimeout: 200 * time.Millisecond,
		Enricher:     slowEnricher{delay: 300 * time.Millisecond},
		Logger:       log.New(io.Discard, "", 0),
		Now:          func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, s.srv.WriteTimeout)

	ts := httptest.NewUnstartedServer(s.Handler())
	ts.Config.WriteTimeout = s.srv.WriteTimeout
	ts.Start()
	t.Cleanup(ts.Close)
	c, err := api.NewClient(api.Config{BaseURL: ts.URL}, nil)
	require.NoError(t, err)

	found, err := c.AnalyzeLogs(context.Background(), api.AnalyzeRequest{LogText: "[db] connection refused"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].RootCause, "timed out or were refused")

	all, err := c.FetchIncidents(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWriteTimeoutDefault(t *testing.T) {
	s, err := New(Options{Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.srv.WriteTimeout)
}
