// Package metrics provides Prometheus instrumentation for the marketplace.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransfersTotal counts ledger transfers, partitioned by kind.
	TransfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zaryo_transfers_total",
		Help: "Total number of token transfers recorded",
	}, []string{"kind"})

	// TransferLatency tracks transfer execution latency.
	TransferLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zaryo_transfer_latency_seconds",
		Help:    "Token transfer latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// BidsPlacedTotal counts accepted bid submissions.
	BidsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zaryo_bids_placed_total",
		Help: "Total number of bids placed",
	})

	// BidRejectionsTotal counts submissions rejected by validation, by reason.
	BidRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zaryo_bid_rejections_total",
		Help: "Bid submissions rejected before insert",
	}, []string{"reason"})

	// SettlementsTotal counts completed bid settlements.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zaryo_bid_settlements_total",
		Help: "Total number of accepted-bid settlements",
	})

	// BookingPaymentsTotal counts completed booking payments.
	BookingPaymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zaryo_booking_payments_total",
		Help: "Total number of booking payments",
	})

	// WebSocketClients tracks connected change-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zaryo_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zaryo_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zaryo_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The route pattern is used for the
// path label to avoid high cardinality.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		handlerErr := next(c)

		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		status := c.Response().Status
		if handlerErr != nil {
			if he, ok := handlerErr.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		return handlerErr
	}
}
