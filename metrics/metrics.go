// Package metrics exposes engine activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moontrade/orderflow/engine"
)

var _ engine.Metrics = (*Collector)(nil)

// Collector implements engine.Metrics.
type Collector struct {
	batches      prometheus.Counter
	emptyBatches prometheus.Counter
	records      *prometheus.CounterVec
	revision     prometheus.Gauge
	length       prometheus.Gauge
	filter       *prometheus.HistogramVec
	sessions     prometheus.Gauge

	registry *prometheus.Registry
}

// NewCollector registers the collector's metrics with a new registry. The
// Go runtime and process collectors are registered alongside.
func NewCollector() *Collector {
	c := &Collector{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_batches_applied_total",
			Help: "Total number of batches that changed at least one record",
		}),
		emptyBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orderflow_batches_ignored_total",
			Help: "Total number of batches that changed nothing",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orderflow_records_total",
			Help: "Total number of records by reconciliation outcome",
		}, []string{"outcome"}),
		revision: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderflow_revision",
			Help: "Current revision",
		}),
		length: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderflow_store_length",
			Help: "Number of records in the store",
		}),
		filter: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orderflow_filter_latency_seconds",
			Help:    "Filter evaluation latency in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"cache"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orderflow_viewport_sessions",
			Help: "Number of client connections tracking a viewport",
		}),
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(
		c.batches,
		c.emptyBatches,
		c.records,
		c.revision,
		c.length,
		c.filter,
		c.sessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) BatchApplied(result engine.BatchResult, length int) {
	if result.Applied() {
		c.batches.Inc()
	} else {
		c.emptyBatches.Inc()
	}
	c.records.WithLabelValues("inserted").Add(float64(result.Inserted))
	c.records.WithLabelValues("updated").Add(float64(result.Updated))
	c.records.WithLabelValues("rejected").Add(float64(result.Rejected))
	c.revision.Set(float64(result.Revision))
	c.length.Set(float64(length))
}

func (c *Collector) FilterObserved(d time.Duration, cached bool) {
	label := "miss"
	if cached {
		label = "hit"
	}
	c.filter.WithLabelValues(label).Observe(d.Seconds())
}

// SessionOpened and SessionClosed track viewport sessions.
func (c *Collector) SessionOpened() { c.sessions.Inc() }
func (c *Collector) SessionClosed() { c.sessions.Dec() }

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Server returns an HTTP server exposing Handler on /metrics.
func (c *Collector) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
