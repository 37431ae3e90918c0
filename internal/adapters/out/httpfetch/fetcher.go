// Package httpfetch fetches text assets from the public path of a static file server.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// DefaultTimeout is the default client timeout for a fetch.
const DefaultTimeout = 30 * time.Second

// DefaultMaxBodySize caps the collage body read into memory.
const DefaultMaxBodySize = 64 << 20 // 64MB

// Fetcher implements the out.AssetFetcher interface over HTTP.
type Fetcher struct {
	baseURL     string
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
}

// Option configures the Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithMaxBodySize caps the number of body bytes read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// New creates a fetcher resolving asset paths against baseURL.
func New(baseURL string, opts ...Option) (*Fetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url %q: %v", domain.ErrInvalidConfig, baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url %q must be http or https", domain.ErrInvalidConfig, baseURL)
	}

	f := &Fetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   "collageview/1.0",
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}

	return f, nil
}

// URL returns the absolute URL for path.
func (f *Fetcher) URL(path string) string {
	return f.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Fetch sends a GET for path and returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, path string) (string, error) {
	target := f.URL(path)
	ctx = logging.WithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "httpfetch",
		"url":                target,
	})
	log := logging.FromCtx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", &domain.TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, */*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		log.Debug().Err(err).Msg("request failed")
		return "", &domain.TransportError{Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int(logging.FieldStatus, resp.StatusCode).Msg("non-success status")
		return "", &domain.HTTPStatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return "", &domain.TransportError{Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodySize {
		return "", &domain.TransportError{Err: fmt.Errorf("response body exceeds %d bytes", f.maxBodySize)}
	}

	log.Debug().
		Int(logging.FieldStatus, resp.StatusCode).
		Int("bytes", len(body)).
		Dur(logging.FieldDuration, time.Since(start)).
		Msg("asset fetched")

	return string(body), nil
}

// unwrapURLError strips the "Get <url>:" prefix so the message is the
// underlying failure description.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}

var _ out.AssetFetcher = (*Fetcher)(nil)
