package api

import (
	"context"
	"net/http"
	"time"

	"github.com/hazyhaar/touchstone-names/pkg/kit"
	"github.com/hazyhaar/touchstone-names/pkg/names"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for endpoint traffic and directory size.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers request metrics and gauges reading dir on every scrape.
func NewMetrics(dir *names.Directory[string]) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "touchstone_names",
			Name:      "requests_total",
			Help:      "Endpoint calls by endpoint, transport and outcome.",
		}, []string{"endpoint", "transport", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "touchstone_names",
			Name:      "request_duration_seconds",
			Help:      "Endpoint latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"endpoint"}),
	}

	gauge := func(name, help string, read func(names.Stats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "touchstone_names",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(dir.Stats())) })
	}

	m.registry.MustRegister(
		m.requests,
		m.latency,
		gauge("directory_ids", "Distinct ids indexed in the directory.", func(s names.Stats) int { return s.Names }),
		gauge("directory_strong_keys", "Keys in the strong (primary) map.", func(s names.Stats) int { return s.StrongKeys }),
		gauge("directory_weak_keys", "Keys in the weak (secondary) map.", func(s names.Stats) int { return s.WeakKeys }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware counts and times calls of the named endpoint.
func (m *Metrics) Middleware(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, request any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, request)
			m.latency.WithLabelValues(name).Observe(time.Since(start).Seconds())

			outcome := "ok"
			switch {
			case err == nil:
			case isClientError(err):
				outcome = "rejected"
			default:
				outcome = "error"
			}
			m.requests.WithLabelValues(name, kit.GetTransport(ctx), outcome).Inc()
			return resp, err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
