// Package filesystem implements local filesystem adapters.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// ImagesDirName is the folder holding the chart images referenced by the collage.
const ImagesDirName = "stock_png"

// Ensure Publisher implements out.CollagePublisher.
var _ out.CollagePublisher = (*Publisher)(nil)

// Publisher copies a generated collage and its images into a public directory.
type Publisher struct{}

// NewPublisher creates a new publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish copies srcDir/stock_charts_collage.html and srcDir/stock_png/ into
// publicDir. An existing image folder in publicDir is replaced.
func (p *Publisher) Publish(ctx context.Context, srcDir, publicDir string) (*out.PublishResult, error) {
	ctx = logging.WithFields(ctx, map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "filesystem",
		"src":                srcDir,
		"public_dir":         publicDir,
	})
	log := logging.FromCtx(ctx)

	htmlName := strings.TrimPrefix(domain.CollagePath, "/")
	htmlSrc := filepath.Join(srcDir, htmlName)
	imagesSrc := filepath.Join(srcDir, ImagesDirName)

	if !isFile(htmlSrc) {
		return nil, fmt.Errorf("%w: HTML file not found at %s", domain.ErrSourceNotFound, htmlSrc)
	}
	if !isDir(imagesSrc) {
		return nil, fmt.Errorf("%w: images folder not found at %s", domain.ErrSourceNotFound, imagesSrc)
	}
	if !isDir(publicDir) {
		return nil, fmt.Errorf("%w: public folder not found at %s", domain.ErrSourceNotFound, publicDir)
	}

	result := &out.PublishResult{
		HTMLPath:  filepath.Join(publicDir, htmlName),
		ImagesDir: filepath.Join(publicDir, ImagesDirName),
	}

	if err := copyFile(htmlSrc, result.HTMLPath); err != nil {
		return nil, fmt.Errorf("failed to copy HTML file: %w", err)
	}
	log.Info().Str("dest", result.HTMLPath).Msg("copied collage HTML")

	if isDir(result.ImagesDir) {
		if err := os.RemoveAll(result.ImagesDir); err != nil {
			return nil, fmt.Errorf("failed to remove existing images folder: %w", err)
		}
		result.ReplacedDir = true
		log.Info().Str("dest", result.ImagesDir).Msg("removed existing images folder")
	}

	count, err := copyTree(ctx, imagesSrc, result.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to copy images folder: %w", err)
	}
	result.ImageCount = count

	log.Info().Int(logging.FieldCount, count).Str("dest", result.ImagesDir).Msg("copied images folder")

	return result, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyTree copies src into dst and returns the number of PNG files copied.
func copyTree(ctx context.Context, src, dst string) (int, error) {
	pngs := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := copyFile(path, target); err != nil {
			return err
		}
		if filepath.Dir(rel) == "." && strings.EqualFold(filepath.Ext(rel), ".png") {
			pngs++
		}
		return nil
	})
	return pngs, err
}

// copyFile copies src to dst, preserving the file mode and modification time.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return err
	}

	tmp := dst + ".tmp"
	dstFile, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(tmp)
		return err
	}
	if err := dstFile.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
