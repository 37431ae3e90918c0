// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (HTTP fetch, session cache, metrics, filesystem).
package out

import (
	"context"
	"time"

	"github.com/stockcharts/collageview/internal/domain"
)

// AssetFetcher defines the contract for fetching a text asset from the public path.
type AssetFetcher interface {
	// Fetch issues a GET for path and returns the full body as text.
	// A non-2xx response yields *domain.HTTPStatusError, a request that could
	// not complete yields *domain.TransportError.
	Fetch(ctx context.Context, path string) (string, error)
}

// ViewerObserver receives a notification each time a viewer settles.
type ViewerObserver interface {
	ObserveSettle(phase domain.Phase, elapsed time.Duration)
	ObserveMount()
	ObserveDiscard()
}
