package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector groups the counters exported by the headlines runtime.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	FetchAttempts  prometheus.Counter
	FetchFailures  *prometheus.CounterVec
	CardsEmitted   prometheus.Counter
	CardsPublished *prometheus.CounterVec
}

// New registers the collector's metrics on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		FetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "headlines_fetch_attempts_total",
			Help: "Total number of headline fetch attempts",
		}),
		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_fetch_failures_total",
				Help: "Total number of failed headline fetch attempts",
			},
			[]string{"kind"},
		),
		CardsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "headlines_cards_emitted_total",
			Help: "Total number of news cards handed to the foreground",
		}),
		CardsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headlines_cards_published_total",
				Help: "Total number of news cards relayed to downstream publishers",
			},
			[]string{"status"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) FetchStarted() {
	if c == nil {
		return
	}
	c.FetchAttempts.Inc()
}

func (c *Collector) FetchFailed(kind string) {
	if c == nil {
		return
	}
	c.FetchFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) CardEmitted() {
	if c == nil {
		return
	}
	c.CardsEmitted.Inc()
}

func (c *Collector) CardPublished(status string) {
	if c == nil {
		return
	}
	c.CardsPublished.WithLabelValues(status).Inc()
}
