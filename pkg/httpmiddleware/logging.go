// Package httpmiddleware carries the echo middleware that the framework does
// not ship: request-scoped structured logging wired through zctx.
package httpmiddleware

import (
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// InjectLogger returns middleware that attaches the base logger to every
// request context, annotated with the request ID when present. Handlers and
// domain code retrieve it with zctx.From.
func InjectLogger(lg *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			reqLg := lg
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				reqLg = lg.With(zap.String("request_id", id))
			}

			c.SetRequest(req.WithContext(zctx.Base(req.Context(), reqLg)))
			return next(c)
		}
	}
}

// LogRequests returns middleware that logs one line per request with method,
// path, status and duration. Errors are logged by echo's error handler, so
// only the outcome is recorded here.
func LogRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			zctx.From(req.Context()).Info("request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}
