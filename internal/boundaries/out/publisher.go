package out

import "context"

// PublishResult summarizes a publish run.
type PublishResult struct {
	HTMLPath    string
	ImagesDir   string
	ImageCount  int
	ReplacedDir bool
}

// CollagePublisher copies a generated collage and its images into a public directory.
type CollagePublisher interface {
	Publish(ctx context.Context, srcDir, publicDir string) (*PublishResult, error)
}
