// Package middleware provides echo middleware for the HTTP adapters.
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/stockcharts/collageview/internal/logging"
)

// ContextLogger attaches log, tagged with the request ID, to the request
// context so handlers and use cases can pick it up with logging.FromCtx.
// It must run after echo's RequestID middleware.
func ContextLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			reqLog := log.With().Str("request_id", requestID).Logger()

			req := c.Request()
			c.SetRequest(req.WithContext(reqLog.WithContext(req.Context())))

			return next(c)
		}
	}
}

// AccessLogger logs one line per request. Requests whose path starts with one
// of skipPrefixes are not logged.
func AccessLogger(log zerolog.Logger, skipPrefixes ...string) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			for _, prefix := range skipPrefixes {
				if strings.HasPrefix(c.Request().URL.Path, prefix) {
					return true
				}
			}
			return false
		},
		LogLatency:      true,
		LogMethod:       true,
		LogURIPath:      true,
		LogStatus:       true,
		LogRemoteIP:     true,
		LogRequestID:    true,
		LogResponseSize: true,
		LogUserAgent:    true,
		LogError:        true,
		HandleError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str("request_id", v.RequestID).
				Str(logging.FieldMethod, v.Method).
				Str(logging.FieldPath, v.URIPath).
				Str("client_ip", v.RemoteIP).
				Str("user_agent", v.UserAgent).
				Int(logging.FieldStatus, v.Status).
				Int64("bytes", v.ResponseSize).
				Dur(logging.FieldDuration, v.Latency).
				Msg("HTTP request")
			return nil
		},
	})
}
