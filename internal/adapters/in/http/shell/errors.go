package shell

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stockcharts/collageview/internal/adapters/in/http/view"
	"github.com/stockcharts/collageview/internal/logging"
)

// HTTPErrorHandler renders errors returned by handlers as a small HTML page.
// Fragment requests get the status panel alone, since the shell script
// injects the body into an existing page.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	log := logging.FromCtx(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int(logging.FieldStatus, code).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}

	page := view.Status(code, msg)
	if c.Path() == FragmentRoute {
		page = view.StatusPanel(code, msg)
	}

	if rerr := render(c, code, page); rerr != nil {
		log.Error().Err(rerr).Msg("failed to render error page")
	}
}
