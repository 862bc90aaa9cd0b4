// Package metrics exposes catalog and HTTP activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
)

const namespace = "simple_catalog"

// Collector records request and catalog event metrics on its own registry.
// It satisfies both api.MetricsCollector and simplecatalog.EventSink.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseBytes   *prometheus.CounterVec

	ingested        *prometheus.CounterVec
	retracted       *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	counterFailures prometheus.Counter
}

var _ simplecatalog.EventSink = (*Collector)(nil)

// New creates a collector with Go runtime and process metrics registered
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		responseBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_bytes_total",
			Help:      "Bytes written in HTTP responses by route.",
		}, []string{"route"}),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_ingested_total",
			Help:      "Entries added to the catalog by category.",
		}, []string{"category"}),
		retracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_retracted_total",
			Help:      "Entries removed from the catalog by category.",
		}, []string{"category"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Counted package downloads by result.",
		}, []string{"result"}),
		counterFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_counter_failures_total",
			Help:      "Download counter updates that failed after the stream was served.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requests,
		c.requestDuration,
		c.responseBytes,
		c.ingested,
		c.retracted,
		c.downloads,
		c.counterFailures,
	)
	return c
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordRequest(method, route string, statusCode int, duration time.Duration, size int64) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if size > 0 {
		c.responseBytes.WithLabelValues(route).Add(float64(size))
	}
}

func (c *Collector) EntryIngested(ctx context.Context, entry *simplecatalog.Entry) error {
	c.ingested.WithLabelValues(entry.Category).Inc()
	return nil
}

func (c *Collector) EntryRetracted(ctx context.Context, entry *simplecatalog.Entry) error {
	c.retracted.WithLabelValues(entry.Category).Inc()
	return nil
}

func (c *Collector) DownloadRecorded(ctx context.Context, slug string, downloads int64) error {
	c.downloads.WithLabelValues("recorded").Inc()
	return nil
}

func (c *Collector) DownloadCounterFailed(ctx context.Context, slug string, err error) error {
	c.downloads.WithLabelValues("failed").Inc()
	c.counterFailures.Inc()
	return nil
}
