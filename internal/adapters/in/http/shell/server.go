package shell

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/stockcharts/collageview/internal/adapters/in/http/middleware"
)

// MetricsPath is where the prometheus exposition is served.
const MetricsPath = "/metrics"

// NewEcho assembles the echo instance around h. A nil registry disables the
// metrics middleware and endpoint.
func NewEcho(h *Handler, log zerolog.Logger, registry *prometheus.Registry) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.ContextLogger(log))
	e.Use(middleware.AccessLogger(log, MetricsPath, "/healthz"))
	e.Use(middleware.SecurityHeaders())

	if registry != nil {
		mw, err := echoprometheus.MiddlewareConfig{
			Namespace:  "collageview",
			Subsystem:  "http",
			Registerer: registry,
			Skipper: func(c echo.Context) bool {
				return c.Path() == MetricsPath
			},
		}.ToMiddleware()
		if err != nil {
			return nil, err
		}
		e.Use(mw)
		e.GET(MetricsPath, echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
			Gatherer: registry,
		}))
	}

	h.RegisterRoutes(e)

	return e, nil
}
