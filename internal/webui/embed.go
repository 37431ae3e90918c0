// Package webui holds the static public assets served next to the view shell.
package webui

import (
	"embed"
	"errors"
	"io/fs"
	"os"
)

// The path "public" is relative to this package directory (internal/webui).
//
//go:embed public
var embedded embed.FS

// PublicFS is the embedded public directory: the default stylesheet, the
// shell script and a placeholder collage.
var PublicFS = mustSub(embedded, "public")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Public returns the public file system for dir layered over the embedded
// assets. Files on disk win; missing files fall back to the embedded copy.
// An empty or missing dir yields the embedded assets alone.
func Public(dir string) fs.FS {
	if dir == "" {
		return PublicFS
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return PublicFS
	}
	return overlay{upper: os.DirFS(dir), lower: PublicFS}
}

type overlay struct {
	upper fs.FS
	lower fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	f, err := o.upper.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.lower.Open(name)
}
