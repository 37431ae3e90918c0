package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/labstack/echo/v4"
	"github.com/spf13/viper"

	"github.com/stockcharts/collageview/internal/adapters/in/http/shell"
	"github.com/stockcharts/collageview/internal/adapters/out/httpfetch"
	"github.com/stockcharts/collageview/internal/adapters/out/sessions"
	"github.com/stockcharts/collageview/internal/adapters/out/telemetry"
	"github.com/stockcharts/collageview/internal/logging"
	"github.com/stockcharts/collageview/internal/usecase/viewer"
	"github.com/stockcharts/collageview/internal/webui"
)

// services bundles everything the HTTP host needs.
type services struct {
	sessions *sessions.MemoryStore
	metrics  *telemetry.Metrics
	echo     *echo.Echo
}

// Close unmounts every viewer still held by a session.
func (s *services) Close() {
	s.sessions.Close()
}

// Run starts the view shell HTTP host and blocks until ctx is cancelled or
// a shutdown signal arrives.
func Run(ctx context.Context, configPath string) error {
	v, cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	log, cleanup, err := logging.Setup(cfg.LoggingConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx = log.WithContext(ctx)
	ctx = logging.WithFields(ctx, map[string]any{
		logging.FieldLayer:     "app",
		logging.FieldComponent: "serve",
	})

	logging.FromCtx(ctx).Info().
		Str("addr", cfg.Server.Addr).
		Str("public_dir", cfg.Server.PublicDir).
		Str("base_url", cfg.ResolvedBaseURL()).
		Msg("starting collage view shell")

	watchConfig(ctx, v)

	svc, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	return serve(ctx, cfg, svc.echo)
}

func newServices(ctx context.Context, cfg Config) (*services, error) {
	fetcher, err := httpfetch.New(cfg.ResolvedBaseURL(), httpfetch.WithTimeout(cfg.Viewer.FetchTimeout))
	if err != nil {
		return nil, err
	}

	store := sessions.NewMemoryStore(cfg.Viewer.SessionTTL)

	metrics, err := telemetry.NewMetrics(store.Count)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	factory := viewer.NewFactory(fetcher,
		viewer.WithObserver(metrics),
		viewer.WithFetchTimeout(cfg.Viewer.FetchTimeout),
	)

	handler := shell.NewHandler(factory, store, webui.Public(cfg.Server.PublicDir),
		shell.WithSettleTimeout(cfg.Viewer.SettleTimeout),
		shell.WithPageTitle(cfg.Server.PageTitle),
		shell.WithStaticCaching(cfg.Server.CacheStatic),
	)

	e, err := shell.NewEcho(handler, *logging.FromCtx(ctx), metrics.Registry())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create http host: %w", err)
	}

	return &services{sessions: store, metrics: metrics, echo: e}, nil
}

// watchConfig reloads logging.level when the config file changes.
func watchConfig(ctx context.Context, v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	log := logging.FromCtx(ctx)

	v.OnConfigChange(func(e fsnotify.Event) {
		level := v.GetString("logging.level")
		if !logging.SetLevel(level) {
			log.Warn().Str("file", e.Name).Str("level", level).Msg("ignoring invalid log level from config reload")
			return
		}
		log.Info().Str("file", e.Name).Str("level", level).Msg("config file changed, log level reloaded")
	})
	v.WatchConfig()
}

func serve(ctx context.Context, cfg Config, handler http.Handler) error {
	log := logging.FromCtx(ctx)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Viewer.SettleTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("context cancelled, shutting down")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("http server stopped")
	return nil
}
