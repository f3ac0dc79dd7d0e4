package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Booking outcomes recorded by ObserveBooking.
const (
	OutcomeBooked   = "booked"
	OutcomeConflict = "conflict"
	OutcomeBusy     = "lock_busy"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	bookingAttempts *prometheus.CounterVec
	slotBlocks      *prometheus.CounterVec
	purgedBlocks    prometheus.Counter
}

func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "route", "status_code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "Duration of HTTP requests in seconds",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"method", "route"},
		),
		bookingAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "appointment_booking_attempts_total",
				Help:        "Booking attempts by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		slotBlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "slot_block_attempts_total",
				Help:        "Doctor slot block attempts by outcome",
				ConstLabels: labels,
			},
			[]string{"outcome"},
		),
		purgedBlocks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "slot_janitor_purged_blocks_total",
				Help:        "Stale blocked slots deleted by the janitor",
				ConstLabels: labels,
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.bookingAttempts,
		m.slotBlocks,
		m.purgedBlocks,
	)

	return m
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBooking(outcome string) {
	m.bookingAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBlock(outcome string) {
	m.slotBlocks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddPurged(n int64) {
	if n > 0 {
		m.purgedBlocks.Add(float64(n))
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
