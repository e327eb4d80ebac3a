// Package metrics holds the console's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "copilot"

// Collectors records API, ingestion and triage activity.
// It satisfies api.Recorder, ingest.Recorder and dashboard.Recorder.
type Collectors struct {
	apiRequests       *prometheus.CounterVec
	apiLatency        *prometheus.HistogramVec
	ingestions        *prometheus.CounterVec
	ingestedIncidents prometheus.Counter
	statusChanges     *prometheus.CounterVec
}

// New builds an unregistered set of collectors.
func New() *Collectors {
	return &Collectors{
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Backend API requests, partitioned by endpoint and outcome.",
			},
			[]string{"endpoint", "outcome"},
		),
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_seconds",
				Help:      "Backend API latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"endpoint"},
		),
		ingestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingestions_total",
				Help:      "Log submissions, partitioned by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		ingestedIncidents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingested_incidents_total",
				Help:      "Incidents returned by successful analyses.",
			},
		),
		statusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_changes_total",
				Help:      "Resolve/reopen attempts, partitioned by target status and outcome.",
			},
			[]string{"status", "outcome"},
		),
	}
}

// Register attaches the collectors to the supplied Prometheus registerer.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.apiRequests,
		c.apiLatency,
		c.ingestions,
		c.ingestedIncidents,
		c.statusChanges,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAPIRequest records one backend call.
func (c *Collectors) ObserveAPIRequest(endpoint, outcome string, elapsed time.Duration) {
	c.apiRequests.WithLabelValues(endpoint, outcome).Inc()
	if elapsed < 0 {
		elapsed = 0
	}
	c.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveIngestion records one finished submission.
func (c *Collectors) ObserveIngestion(source, outcome string, incidents int) {
	c.ingestions.WithLabelValues(source, outcome).Inc()
	if incidents > 0 {
		c.ingestedIncidents.Add(float64(incidents))
	}
}

// ObserveStatusChange records a resolve/reopen attempt.
func (c *Collectors) ObserveStatusChange(status, outcome string) {
	c.statusChanges.WithLabelValues(status, outcome).Inc()
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
