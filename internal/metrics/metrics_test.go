package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New()
	require.NoError(t, c.Register(reg))
	require.NoError(t, c.Register(reg))
}

func TestObserveAPIRequest(t *testing.T) {
	c := New()
	c.ObserveAPIRequest("analyze", "ok", 120*time.Millisecond)
	c.ObserveAPIRequest("analyze", "http_error", -time.Second)
	c.ObserveAPIRequest("analyze", "ok", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.apiRequests.WithLabelValues("analyze", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.apiRequests.WithLabelValues("analyze", "http_error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.apiLatency))
}

func TestObserveIngestion(t *testing.T) {
	c := New()
	c.ObserveIngestion("file", "ok", 3)
	c.ObserveIngestion("text", "error", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingestions.WithLabelValues("file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ingestions.WithLabelValues("text", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ingestedIncidents))
}

func TestObserveStatusChange(t *testing.T) {
	c := New()
	c.ObserveStatusChange("resolved", "ok")
	c.ObserveStatusChange("resolved", "rolled_back")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.statusChanges.WithLabelValues("resolved", "rolled_back")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New()
	require.NoError(t, c.Register(reg))
	c.ObserveIngestion("folder", "ok", 1)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `copilot_ingestions_total{outcome="ok",source="folder"} 1`)
	assert.Contains(t, string(body), "copilot_ingested_incidents_total 1")
}
