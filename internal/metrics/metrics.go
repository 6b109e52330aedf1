// Package metrics provides Prometheus collectors for the HTTP API and the
// counting and compression flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sizes/internal/compress"
	"sizes/internal/sizes"
	"sizes/internal/wc"
)

const namespace = "sizes"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests.
	// Labels: route, code
	RequestsTotal *prometheus.CounterVec

	// RequestDuration tracks HTTP request latency.
	// Labels: route
	RequestDuration *prometheus.HistogramVec

	// ValidationFailures counts rejected requests.
	// Labels: flow (wc, sizes), kind (fatal, field)
	ValidationFailures *prometheus.CounterVec

	// UnitsProcessed counts counted units.
	// Labels: kind (text, file)
	UnitsProcessed *prometheus.CounterVec

	// UnitBytes tracks the size of counted units.
	UnitBytes prometheus.Histogram

	// CompressionRatio tracks compressed/original size per algorithm.
	// Labels: algorithm
	CompressionRatio *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also exposes the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ValidationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Requests rejected by validation",
			},
			[]string{"flow", "kind"},
		),
		UnitsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "units_processed_total",
				Help:      "Text blobs and files counted",
			},
			[]string{"kind"},
		),
		UnitBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "unit_bytes",
				Help:      "Size of counted units in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
			},
		),
		CompressionRatio: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compression_ratio",
				Help:      "Compressed size divided by original size",
				Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1, 1.5},
			},
			[]string{"algorithm"},
		),
	}
}

// Handler serves the registry in the Prometheus text format. Response
// compression is left to the server middleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:           m.registry,
		DisableCompression: true,
	})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveValidationFailure records a rejected request. Fatal failures are
// the ones with no input at all.
func (m *Metrics) ObserveValidationFailure(flow string, fatal bool) {
	kind := "field"
	if fatal {
		kind = "fatal"
	}

	m.ValidationFailures.WithLabelValues(flow, kind).Inc()
}

// ObserveWC records the units of a word-count result.
func (m *Metrics) ObserveWC(res wc.Result) {
	if res.Text != nil {
		m.UnitsProcessed.WithLabelValues("text").Inc()
		m.UnitBytes.Observe(float64(res.Text.Bytes))
	}

	for _, f := range res.Files {
		m.UnitsProcessed.WithLabelValues("file").Inc()
		m.UnitBytes.Observe(float64(f.WC.Bytes))
	}
}

// ObserveSizes records compression ratios of a sizes result against the
// uncompressed length of each unit. Empty units are skipped.
func (m *Metrics) ObserveSizes(res sizes.Result) {
	m.ObserveWC(res.WC)

	units := make([]sizes.Sizes, 0, len(res.Files)+1)
	if res.Text != nil {
		units = append(units, *res.Text)
	}

	for _, f := range res.Files {
		units = append(units, f.Sizes)
	}

	for _, u := range units {
		if u.Length == 0 {
			continue
		}

		for _, alg := range compress.Algorithms {
			if n, ok := u.Get(alg); ok {
				m.CompressionRatio.WithLabelValues(string(alg)).Observe(float64(n) / float64(u.Length))
			}
		}
	}
}
