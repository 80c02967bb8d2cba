package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stability-dashboard/frontend/internal/present"
)

// lookupMetrics holds the Prometheus collectors for lookup cycles. Each server
// owns its registry so tests can build several servers in one process.
type lookupMetrics struct {
	registry *prometheus.Registry
	lookups  *prometheus.CounterVec
	duration prometheus.Histogram
	cards    prometheus.Counter
}

func newLookupMetrics() *lookupMetrics {
	m := &lookupMetrics{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stability_lookups_total",
			Help: "Completed lookup cycles by terminal state.",
		}, []string{"state"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stability_lookup_duration_seconds",
			Help:    "Time from clearing the page to its terminal state.",
			Buckets: prometheus.DefBuckets,
		}),
		cards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stability_cards_rendered_total",
			Help: "Result cards rendered across all lookups.",
		}),
	}
	m.registry.MustRegister(
		m.lookups,
		m.duration,
		m.cards,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *lookupMetrics) observe(outcome present.Outcome) {
	m.lookups.WithLabelValues(string(outcome.State)).Inc()
	m.duration.Observe(outcome.Duration.Seconds())
	m.cards.Add(float64(outcome.Cards))
}

func (m *lookupMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
