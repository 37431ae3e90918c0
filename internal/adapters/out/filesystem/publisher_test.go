package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockcharts/collageview/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func setupSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "stock_charts_collage.html"), "<html>collage</html>")
	writeFile(t, filepath.Join(src, ImagesDirName, "AAPL.png"), "png-a")
	writeFile(t, filepath.Join(src, ImagesDirName, "MSFT.png"), "png-m")
	writeFile(t, filepath.Join(src, ImagesDirName, "notes.txt"), "not an image")
	writeFile(t, filepath.Join(src, ImagesDirName, "archive", "OLD.png"), "png-old")
	return src
}

func TestPublisher_Publish(t *testing.T) {
	src := setupSource(t)
	public := t.TempDir()

	result, err := NewPublisher().Publish(context.Background(), src, public)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ImageCount)
	assert.False(t, result.ReplacedDir)

	html, err := os.ReadFile(filepath.Join(public, "stock_charts_collage.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>collage</html>", string(html))

	assert.FileExists(t, filepath.Join(public, ImagesDirName, "AAPL.png"))
	assert.FileExists(t, filepath.Join(public, ImagesDirName, "notes.txt"))
	assert.FileExists(t, filepath.Join(public, ImagesDirName, "archive", "OLD.png"))
	assert.NoFileExists(t, filepath.Join(public, "stock_charts_collage.html.tmp"))
}

func TestPublisher_ReplacesExistingImages(t *testing.T) {
	src := setupSource(t)
	public := t.TempDir()
	writeFile(t, filepath.Join(public, ImagesDirName, "STALE.png"), "stale")

	result, err := NewPublisher().Publish(context.Background(), src, public)
	require.NoError(t, err)

	assert.True(t, result.ReplacedDir)
	assert.NoFileExists(t, filepath.Join(public, ImagesDirName, "STALE.png"))
	assert.FileExists(t, filepath.Join(public, ImagesDirName, "MSFT.png"))
}

func TestPublisher_MissingSources(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) (string, string)
		wantMsg string
	}{
		{
			name: "missing html",
			setup: func(t *testing.T) (string, string) {
				src := t.TempDir()
				require.NoError(t, os.MkdirAll(filepath.Join(src, ImagesDirName), 0755))
				return src, t.TempDir()
			},
			wantMsg: "HTML file not found",
		},
		{
			name: "missing images",
			setup: func(t *testing.T) (string, string) {
				src := t.TempDir()
				writeFile(t, filepath.Join(src, "stock_charts_collage.html"), "x")
				return src, t.TempDir()
			},
			wantMsg: "images folder not found",
		},
		{
			name: "missing public dir",
			setup: func(t *testing.T) (string, string) {
				return setupSource(t), filepath.Join(t.TempDir(), "nope")
			},
			wantMsg: "public folder not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, public := tt.setup(t)

			_, err := NewPublisher().Publish(context.Background(), src, public)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrSourceNotFound)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPublisher_CanceledContext(t *testing.T) {
	src := setupSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPublisher().Publish(ctx, src, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
