// Package shell implements the HTTP host of the collage view shell.
//
// A page request mounts one viewer and answers immediately with the loading
// view and a session ID. The shell script then requests the fragment for that
// session, which waits for the viewer to settle, renders it, and unmounts it.
package shell

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/stockcharts/collageview/internal/adapters/in/http/view"
	"github.com/stockcharts/collageview/internal/boundaries/in"
	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// DefaultSettleTimeout bounds how long a fragment request waits for its viewer.
const DefaultSettleTimeout = 35 * time.Second

// FragmentRoute serves the settled fragment for a page's viewer session.
const FragmentRoute = "/view/:id"

// TimeoutMessage is shown when a viewer does not settle in time.
const TimeoutMessage = "Timed out waiting for the collage to load"

// Handler serves the shell page, view fragments and public assets.
type Handler struct {
	newViewer     in.ViewerFactory
	sessions      out.SessionStore
	public        fs.FS
	settleTimeout time.Duration
	pageTitle     string
	cacheStatic   bool
}

// Option configures the Handler.
type Option func(*Handler)

// WithSettleTimeout overrides DefaultSettleTimeout.
func WithSettleTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.settleTimeout = d
	}
}

// WithPageTitle sets the document title of the shell page.
func WithPageTitle(title string) Option {
	return func(h *Handler) {
		h.pageTitle = title
	}
}

// WithStaticCaching makes public assets cacheable for a day.
func WithStaticCaching(enabled bool) Option {
	return func(h *Handler) {
		h.cacheStatic = enabled
	}
}

// NewHandler creates a new shell handler.
func NewHandler(newViewer in.ViewerFactory, sessions out.SessionStore, public fs.FS, opts ...Option) *Handler {
	h := &Handler{
		newViewer:     newViewer,
		sessions:      sessions,
		public:        public,
		settleTimeout: DefaultSettleTimeout,
		pageTitle:     domain.DefaultPageTitle,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterRoutes registers the shell routes on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.handlePage)
	e.GET(FragmentRoute, h.handleFragment)
	e.GET("/healthz", h.handleHealth)
	e.GET("/*", h.handleStatic)
	e.HEAD("/*", h.handleStatic)
}

func (h *Handler) handlePage(c echo.Context) error {
	ctx := logging.WithFields(c.Request().Context(), map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "http",
		logging.FieldHandler: "page",
	})
	log := logging.FromCtx(ctx)

	v := h.newViewer()
	if err := v.Mount(ctx); err != nil {
		return err
	}

	id, err := h.sessions.Add(v)
	if err != nil {
		v.Unmount()
		return err
	}

	log.Debug().Str(logging.FieldSession, id).Msg("viewer mounted for page")

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return render(c, http.StatusOK, view.Page(view.PageData{
		Title:     h.pageTitle,
		SessionID: id,
	}, view.Render(v.State())))
}

func (h *Handler) handleFragment(c echo.Context) error {
	id := c.Param("id")
	ctx := logging.WithFields(c.Request().Context(), map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "http",
		logging.FieldHandler: "fragment",
		logging.FieldSession: id,
	})
	log := logging.FromCtx(ctx)

	mv, err := h.sessions.Take(id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "view session not found")
		}
		return err
	}
	defer mv.Unmount()

	waitCtx, cancel := context.WithTimeout(ctx, h.settleTimeout)
	defer cancel()

	status := http.StatusOK
	state, err := mv.Wait(waitCtx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Debug().Msg("client went away before the viewer settled")
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn().Dur("timeout", h.settleTimeout).Msg("viewer did not settle in time")
		state = state.WithError(TimeoutMessage)
		status = http.StatusGatewayTimeout
	default:
		return err
	}

	log.Debug().Str("phase", string(state.Phase())).Msg("rendering settled view")

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return render(c, status, view.Render(state))
}

func (h *Handler) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *Handler) handleStatic(c echo.Context) error {
	if h.cacheStatic {
		c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	} else {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	}

	name, err := url.PathUnescape(c.Param("*"))
	if err != nil || name == "" {
		return echo.ErrNotFound
	}

	// FileFS answers 404 for missing files and for directories without an
	// index.html, so no listing is ever produced.
	return c.(interface {
		FileFS(file string, filesystem fs.FS) error
	}).FileFS(name, h.public)
}

// render writes component as an HTML response.
func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}
