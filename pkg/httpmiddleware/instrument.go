package httpmiddleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument returns middleware that records per-route request counts and
// latency on the given meter provider and tags the active span with the
// matched route. It runs after routing so c.Path() holds the route pattern,
// not the raw URL.
func Instrument(serviceName string, mp metric.MeterProvider) echo.MiddlewareFunc {
	meter := mp.Meter(serviceName)

	requests, _ := meter.Int64Counter("http.server.request_count",
		metric.WithDescription("Number of handled HTTP requests"))
	duration, _ := meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request handling duration"),
		metric.WithUnit("ms"))

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			// The error is not handled here: an inner middleware (or echo
			// itself) routes it through the error handler exactly once. By
			// the time this layer records the status, the inner LogRequests
			// middleware has already committed the response.

			ctx := c.Request().Context()
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			attrs := metric.WithAttributes(
				attribute.String("http.route", route),
				attribute.String("http.method", c.Request().Method),
				attribute.Int("http.status_code", c.Response().Status),
			)
			requests.Add(ctx, 1, attrs)
			duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("http.route", route))
			}
			return err
		}
	}
}
