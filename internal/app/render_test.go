package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockcharts/collageview/internal/domain"
)

func collageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != domain.CollagePath {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRender_Page(t *testing.T) {
	srv := collageServer(t, http.StatusOK, "<html>X</html>")

	var buf bytes.Buffer
	state, err := Render(context.Background(), RenderOptions{BaseURL: srv.URL}, &buf)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseLoaded, state.Phase())

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPageTitle, doc.Find("title").Text())
	assert.Equal(t, "<html>X</html>", doc.Find("#root iframe").AttrOr("srcdoc", ""))
	assert.Zero(t, doc.Find(".view-loading").Length())
}

func TestRender_Fragment(t *testing.T) {
	srv := collageServer(t, http.StatusNotFound, "missing")

	var buf bytes.Buffer
	state, err := Render(context.Background(), RenderOptions{BaseURL: srv.URL, Fragment: true}, &buf)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseError, state.Phase())
	assert.Equal(t, "Failed to load file: 404", state.ErrorMessage)

	assert.NotContains(t, buf.String(), "<!doctype html>")

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Contains(t, doc.Find(".view-error .error-message").Text(), "404")
	assert.Zero(t, doc.Find("iframe").Length())
}

func TestRender_TransportFailure(t *testing.T) {
	srv := collageServer(t, http.StatusOK, "")
	url := srv.URL
	srv.Close()

	var buf bytes.Buffer
	state, err := Render(context.Background(), RenderOptions{BaseURL: url, Fragment: true}, &buf)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseError, state.Phase())
	assert.NotEmpty(t, state.ErrorMessage)
	assert.Contains(t, buf.String(), "Error Loading Charts")
}

func TestRender_InvalidBaseURL(t *testing.T) {
	_, err := Render(context.Background(), RenderOptions{BaseURL: "ftp://nope"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestRender_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	state, err := Render(ctx, RenderOptions{BaseURL: srv.URL}, &buf)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, state.Loading)
	assert.Zero(t, buf.Len())
}

func TestPublish(t *testing.T) {
	src := t.TempDir()
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "stock_charts_collage.html"), []byte("<html/>"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "stock_png"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(src, "stock_png", "MSFT.png"), []byte("png"), 0600))

	res, err := Publish(context.Background(), src, public)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ImageCount)
	assert.FileExists(t, filepath.Join(public, "stock_png", "MSFT.png"))
}

func TestPublish_RequiresDirectories(t *testing.T) {
	_, err := Publish(context.Background(), "", t.TempDir())
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
