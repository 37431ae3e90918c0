// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (HTTP, CLI)
// and the business logic (use cases).
package in

import (
	"context"

	"github.com/stockcharts/collageview/internal/domain"
)

// Viewer defines the contract of the collage view shell.
type Viewer interface {
	// Mount enters the loading state and starts the single fetch.
	Mount(ctx context.Context) error

	// Unmount ends the viewer lifetime. Late fetch results are discarded.
	Unmount()

	// State returns a snapshot of the current state.
	State() domain.ViewState

	// Subscribe returns a channel receiving every committed state and a
	// function that cancels the subscription.
	Subscribe() (<-chan domain.ViewState, func())

	// Wait blocks until the viewer settles or ctx is done.
	Wait(ctx context.Context) (domain.ViewState, error)
}

// ViewerFactory builds a fresh, unmounted viewer.
type ViewerFactory func() Viewer
