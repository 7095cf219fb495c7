package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	messagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadloop_messages_sent_total",
			Help: "Total number of outbound messages by channel and status",
		},
		[]string{"channel", "status"},
	)

	inboundEmails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadloop_inbound_emails_total",
			Help: "Total number of inbound emails by outcome",
		},
		[]string{"outcome"},
	)
)

// metricsMiddleware records request counts and latency per route. The
// route template is used instead of the raw path to bound label
// cardinality.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}

		httpRequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

func registerMetricsEndpoint(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RecordMessageSent counts one outbound send outcome.
func RecordMessageSent(channel, status string) {
	messagesSent.WithLabelValues(channel, status).Inc()
}

// RecordInboundEmail counts one inbound email ingestion outcome.
func RecordInboundEmail(outcome string) {
	inboundEmails.WithLabelValues(outcome).Inc()
}
