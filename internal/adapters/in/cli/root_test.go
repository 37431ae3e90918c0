package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_ListsSubcommands(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"serve", "view", "publish", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCommand(t *testing.T) {
	orig := [3]string{Version, Commit, BuildDate}
	t.Cleanup(func() { Version, Commit, BuildDate = orig[0], orig[1], orig[2] })

	SetVersionInfo("1.2.3", "abc123", "")

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "collageview 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
	assert.Contains(t, out, "Build Date: unknown")

	out, _, err = execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestViewCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>X</html>"))
	}))
	t.Cleanup(srv.Close)

	out, _, err := execute(t, "view", "--base-url", srv.URL, "--fragment")
	require.NoError(t, err)
	assert.Contains(t, out, `srcdoc="&lt;html&gt;X&lt;/html&gt;"`)
	assert.NotContains(t, out, "<!doctype html>")
}

func TestViewCommand_ErrorViewToFile(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	output := filepath.Join(t.TempDir(), "view.html")
	out, errOut, err := execute(t, "view", "--base-url", srv.URL, "-o", output)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Failed to load file: 404")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!doctype html>")
	assert.Contains(t, string(data), "Error Loading Charts")
}

func TestViewCommand_InvalidBaseURL(t *testing.T) {
	_, _, err := execute(t, "view", "--base-url", "ftp://charts")
	require.Error(t, err)
}

func TestPublishCommand(t *testing.T) {
	src := t.TempDir()
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "stock_charts_collage.html"), []byte("<html/>"), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "stock_png"), 0700))
	for _, name := range []string{"AAPL.png", "MSFT.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, "stock_png", name), []byte("png"), 0600))
	}

	out, _, err := execute(t, "publish", "--src", src, "--public-dir", public)
	require.NoError(t, err)
	assert.Contains(t, out, "[OK]")
	assert.Contains(t, out, "Copied 2 image files")
	assert.FileExists(t, filepath.Join(public, "stock_charts_collage.html"))
}

func TestPublishCommand_MissingSource(t *testing.T) {
	_, _, err := execute(t, "publish", "--src", t.TempDir(), "--public-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTML file not found")
}
