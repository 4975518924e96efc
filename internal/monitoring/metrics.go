// Package monitoring exposes Prometheus metrics for the ticketing
// workflows and the HTTP layer.
package monitoring

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/event-ticketing/internal/model"
)

var (
	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_tickets_sold_total",
			Help: "Tickets created by committed bookings",
		},
	)

	cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_cancellations_total",
			Help: "Ticket cancellations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	restockSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_restock_skipped_total",
			Help: "Cancelled tickets whose ticket type no longer exists",
		},
	)

	txRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_tx_retries_total",
			Help: "Transactions run again after losing a lock race",
		},
		[]string{"workflow"},
	)

	workflowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_workflow_duration_seconds",
			Help:    "Wall time of booking and cancellation workflows including retries",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"workflow"},
	)

	remaining = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ticketing_remaining_tickets",
			Help: "Remaining quantity per ticket type",
		},
		[]string{"event_id", "label"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_rate_limited_total",
			Help: "Requests rejected by a token bucket",
		},
		[]string{"bucket"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// TrackBooking counts one booking outcome such as "ok" or
// "insufficient_inventory".
func TrackBooking(outcome string, quantity int) {
	bookings.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		ticketsSold.Add(float64(quantity))
	}
}

// TrackCancellation counts one cancellation; mode is "owner" or "admin".
func TrackCancellation(mode, outcome string) {
	cancellations.WithLabelValues(mode, outcome).Inc()
}

// TrackRestockSkipped counts a cancellation that could not return its
// ticket to a deleted ticket type.
func TrackRestockSkipped() { restockSkipped.Inc() }

// TrackRetry counts a retried transaction.
func TrackRetry(workflow string) { txRetries.WithLabelValues(workflow).Inc() }

// TrackRateLimited counts a request rejected by the bucket with the given
// key prefix.
func TrackRateLimited(bucket string) { rateLimited.WithLabelValues(bucket).Inc() }

// ObserveWorkflow records the duration of a workflow run started at start.
func ObserveWorkflow(workflow string, start time.Time) {
	workflowDuration.WithLabelValues(workflow).Observe(time.Since(start).Seconds())
}

// InventorySource lists every ticket type with its current remaining count.
type InventorySource interface {
	ListAll(ctx context.Context) ([]model.TicketType, error)
}

// Monitor periodically samples the inventory into the remaining gauge.
type Monitor struct {
	source   InventorySource
	interval time.Duration
	logger   echo.Logger
}

// NewMonitor returns a Monitor sampling every interval.
func NewMonitor(source InventorySource, interval time.Duration, logger echo.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{source: source, interval: interval, logger: logger}
}

// Run samples until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.Collect(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Collect takes one inventory sample.
func (m *Monitor) Collect(ctx context.Context) {
	types, err := m.source.ListAll(ctx)
	if err != nil {
		if m.logger != nil {
			m.logger.Warnf("monitoring: inventory sample failed: %v", err)
		}
		return
	}
	remaining.Reset()
	for _, tt := range types {
		remaining.WithLabelValues(strconv.FormatUint(tt.EventID, 10), tt.Label).Set(float64(tt.Remaining))
	}
}

// ObserveHTTP records one served request.  route is the echo route
// pattern, never the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
