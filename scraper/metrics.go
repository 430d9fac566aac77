package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry         *prometheus.Registry
	ItemsTotal       *prometheus.CounterVec
	RenderDuration   prometheus.Histogram
	RetriesTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	RestartsTotal    prometheus.Counter
	CooldownsTotal   *prometheus.CounterVec
	CheckpointsTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_items_total",
			Help: "Items processed by outcome.",
		},
		[]string{"outcome"},
	)
	renderDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_render_duration_seconds",
			Help:    "Wall time of one item render, including settle pauses.",
			Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120},
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)
	restarts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_session_restarts_total",
			Help: "Browser session restarts.",
		},
	)
	cooldowns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_cooldowns_total",
			Help: "Cooldown pauses by kind.",
		},
		[]string{"kind"},
	)
	checkpoints := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_checkpoints_total",
			Help: "Dataset checkpoints written.",
		},
	)

	registry.MustRegister(items, renderDuration, retries, errorsTotal, restarts, cooldowns, checkpoints)

	return &Metrics{
		Registry:         registry,
		ItemsTotal:       items,
		RenderDuration:   renderDuration,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		RestartsTotal:    restarts,
		CooldownsTotal:   cooldowns,
		CheckpointsTotal: checkpoints,
	}
}

// IncItem increments the item counter for an outcome.
func (m *Metrics) IncItem(outcome string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRender records a render duration.
func (m *Metrics) ObserveRender(d time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncRestart counts a session restart.
func (m *Metrics) IncRestart() {
	if m == nil {
		return
	}
	m.RestartsTotal.Inc()
}

// IncCooldown counts a cooldown pause.
func (m *Metrics) IncCooldown(kind string) {
	if m == nil {
		return
	}
	m.CooldownsTotal.WithLabelValues(kind).Inc()
}

// IncCheckpoint counts a dataset checkpoint.
func (m *Metrics) IncCheckpoint() {
	if m == nil {
		return
	}
	m.CheckpointsTotal.Inc()
}
