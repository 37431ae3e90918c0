package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/stockcharts/collageview/internal/adapters/in/http/view"
	"github.com/stockcharts/collageview/internal/adapters/out/filesystem"
	"github.com/stockcharts/collageview/internal/adapters/out/httpfetch"
	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
	"github.com/stockcharts/collageview/internal/usecase/viewer"
)

// RenderOptions configures a one-shot render.
type RenderOptions struct {
	BaseURL string
	Path    string
	Title   string
	Timeout time.Duration
	// Fragment skips the surrounding document.
	Fragment bool
	// Fetcher overrides the HTTP fetcher built from BaseURL.
	Fetcher out.AssetFetcher
}

// Render mounts a single viewer, waits for it to settle and writes the
// rendered view to w. The returned state is the settled state.
func Render(ctx context.Context, opts RenderOptions, w io.Writer) (domain.ViewState, error) {
	if opts.Path == "" {
		opts.Path = domain.CollagePath
	}
	if opts.Title == "" {
		opts.Title = domain.DefaultPageTitle
	}
	if opts.Timeout <= 0 {
		opts.Timeout = httpfetch.DefaultTimeout
	}

	ctx = logging.WithFields(ctx, map[string]any{
		logging.FieldLayer:     "app",
		logging.FieldComponent: "render",
	})

	fetcher := opts.Fetcher
	if fetcher == nil {
		f, err := httpfetch.New(opts.BaseURL, httpfetch.WithTimeout(opts.Timeout))
		if err != nil {
			return domain.ViewState{}, err
		}
		fetcher = f
	}

	v := viewer.New(fetcher, viewer.WithPath(opts.Path), viewer.WithFetchTimeout(opts.Timeout))
	if err := v.Mount(ctx); err != nil {
		return domain.ViewState{}, err
	}
	defer v.Unmount()

	state, err := v.Wait(ctx)
	if err != nil {
		return state, fmt.Errorf("viewer did not settle: %w", err)
	}

	var c templ.Component = view.Render(state)
	if !opts.Fragment {
		c = view.Page(view.PageData{Title: opts.Title}, c)
	}
	if err := c.Render(ctx, w); err != nil {
		return state, fmt.Errorf("failed to write view: %w", err)
	}

	logging.FromCtx(ctx).Debug().
		Str("phase", string(state.Phase())).
		Msg("view rendered")

	return state, nil
}

// Publish copies a generated collage from srcDir into publicDir.
func Publish(ctx context.Context, srcDir, publicDir string) (*out.PublishResult, error) {
	if srcDir == "" || publicDir == "" {
		return nil, fmt.Errorf("%w: source and public directories are required", domain.ErrInvalidConfig)
	}

	ctx = logging.WithFields(ctx, map[string]any{
		logging.FieldLayer:     "app",
		logging.FieldComponent: "publish",
	})

	res, err := filesystem.NewPublisher().Publish(ctx, srcDir, publicDir)
	if err != nil {
		return nil, err
	}

	logging.FromCtx(ctx).Debug().
		Str("html", res.HTMLPath).
		Str("images", res.ImagesDir).
		Int(logging.FieldCount, res.ImageCount).
		Msg("collage published")

	return res, nil
}
