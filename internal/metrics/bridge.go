// Package metrics bridges the rumor engine's statistics registry and the
// node's transport counters onto Prometheus, grounded on the teacher's
// internal/node/server.go metrics block.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rumorcore/internal/rumor"
)

// Bridge republishes a *rumor.Statistics snapshot as Prometheus gauges and
// tracks transport-facing request counters alongside it.
type Bridge struct {
	stats *rumor.Statistics

	statGauges map[string]prometheus.Gauge

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rumorsTracked   prometheus.Gauge
}

// NewBridge registers every metric with reg and returns a Bridge bound to
// stats. reg is typically prometheus.NewRegistry() so tests don't collide
// with the global default registerer.
func NewBridge(reg prometheus.Registerer, stats *rumor.Statistics) *Bridge {
	factory := promauto.With(reg)

	b := &Bridge{
		stats:      stats,
		statGauges: make(map[string]prometheus.Gauge),
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rumorcore_requests_total",
			Help: "Total number of transport-level requests handled.",
		}, []string{"method", "endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "rumorcore_request_duration_seconds",
			Help: "Transport request duration in seconds.",
		}, []string{"method", "endpoint"}),
		rumorsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "rumorcore_rumors_tracked",
			Help: "Number of rumors currently tracked by this node's Holder.",
		}),
	}

	for name := range stats.Snapshot() {
		b.statGauges[name] = factory.NewGauge(prometheus.GaugeOpts{
			Name: "rumorcore_stat_" + name,
			Help: "Rumor spreading statistic: " + name,
		})
	}

	return b
}

// Refresh pushes the current statistics snapshot into the registered
// gauges. Callers invoke this on a periodic tick; it is safe to call
// concurrently with itself but callers must not call it while a Holder
// mutation is in flight if they want a consistent snapshot.
func (b *Bridge) Refresh() {
	for name, value := range b.stats.Snapshot() {
		if g, ok := b.statGauges[name]; ok {
			g.Set(value)
		}
	}
}

// SetRumorsTracked records the current size of the Holder's rumor map.
func (b *Bridge) SetRumorsTracked(n int) {
	b.rumorsTracked.Set(float64(n))
}

// ObserveRequest records one transport-level HTTP request's outcome.
func (b *Bridge) ObserveRequest(method, endpoint, status string, seconds float64) {
	b.requestTotal.WithLabelValues(method, endpoint, status).Inc()
	b.requestDuration.WithLabelValues(method, endpoint).Observe(seconds)
}

// InstrumentHandler wraps next so every call records its method, status,
// and duration under endpoint via ObserveRequest.
func (b *Bridge) InstrumentHandler(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		b.ObserveRequest(r.Method, endpoint, strconv.Itoa(rec.status), time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handler returns the /metrics scrape endpoint for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
